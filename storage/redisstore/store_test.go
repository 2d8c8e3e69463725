package redisstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/par"
	"github.com/jrsteele09/go-authz-core/storage/redisstore"
	"github.com/jrsteele09/go-authz-core/token"
	"github.com/jrsteele09/go-authz-core/uma"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.NewWithClient(client, "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redisstore.New(context.Background(), redisstore.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = redisstore.New(context.Background(), redisstore.Config{})
	require.Error(t, err)
}

func TestClientRepo(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)
	repo := store.Clients()

	expired := &clients.Client{
		ID:             "expired",
		Name:           "Expired",
		RedirectURIs:   []string{"https://client.example.com/cb"},
		ExpirationDate: utils.Ptr(testNow.Add(-time.Hour)),
		Deletable:      true,
	}
	require.NoError(t, repo.Upsert(ctx, expired))
	require.NoError(t, repo.Upsert(ctx, &clients.Client{ID: "permanent", ExpirationDate: utils.Ptr(testNow.Add(-time.Hour))}))
	require.NoError(t, repo.Upsert(ctx, &clients.Client{ID: "valid", ExpirationDate: utils.Ptr(testNow.Add(10 * time.Minute)), Deletable: true}))
	require.NoError(t, repo.Upsert(ctx, &clients.Client{ID: "forever", Deletable: true}))
	require.True(t, mr.Exists("test:client:expired"))

	got, err := repo.Get(ctx, "expired")
	require.NoError(t, err)
	require.Equal(t, "Expired", got.Name)
	require.Equal(t, expired.RedirectURIs, got.RedirectURIs)
	require.True(t, got.ExpirationDate.Equal(*expired.ExpirationDate))

	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	require.ElementsMatch(t, []string{"expired"}, ids)

	deleted, err := repo.DeleteExpired(ctx, "permanent", testNow)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = repo.DeleteExpired(ctx, "valid", testNow)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = repo.DeleteExpired(ctx, "expired", testNow)
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = repo.Get(ctx, "expired")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	_, err = repo.DeleteExpired(ctx, "expired", testNow)
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	t.Run("clearing the expiry removes it from the index", func(t *testing.T) {
		permanent, err := repo.Get(ctx, "permanent")
		require.NoError(t, err)
		permanent.Deletable = true
		require.NoError(t, repo.Upsert(ctx, permanent))
		list, err := repo.ListExpired(ctx, testNow, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		permanent.ExpirationDate = nil
		require.NoError(t, repo.Upsert(ctx, permanent))

		list, err = repo.ListExpired(ctx, testNow, 10)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("upsert assigns an id", func(t *testing.T) {
		c := &clients.Client{Name: "new"}
		require.NoError(t, repo.Upsert(ctx, c))
		require.NotEmpty(t, c.ID)
	})
}

func TestClientRepo_PermanentClientsAreNotIndexed(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.Clients()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Upsert(ctx, &clients.Client{
			ID:             fmt.Sprintf("permanent-%d", i),
			ExpirationDate: utils.Ptr(testNow.Add(-48 * time.Hour)),
		}))
	}
	require.NoError(t, repo.Upsert(ctx, &clients.Client{
		ID:             "expired-deletable",
		ExpirationDate: utils.Ptr(testNow.Add(-time.Hour)),
		Deletable:      true,
	}))

	list, err := repo.ListExpired(ctx, testNow, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "expired-deletable", list[0].ID)
}

func TestTokenRepo(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.Tokens()

	old := &token.Token{
		Code:       "old",
		Type:       token.TypeAccessToken,
		ClientID:   "c1",
		ExpiresAt:  testNow.Add(-time.Minute),
		Attributes: token.Attributes{X5tS256: "thumb"},
	}
	require.NoError(t, repo.Upsert(ctx, old))
	require.NoError(t, repo.Upsert(ctx, &token.Token{Code: "live", ExpiresAt: testNow.Add(time.Minute)}))

	got, err := repo.GetByCode(ctx, "old")
	require.NoError(t, err)
	require.Equal(t, "thumb", got.Attributes.X5tS256)

	list, err := repo.ListExpired(ctx, testNow, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "old", list[0].Code)

	require.NoError(t, repo.Delete(ctx, "live"))
	require.ErrorIs(t, repo.Delete(ctx, "live"), autherrors.ErrNotFound)
	_, err = repo.GetByCode(ctx, "live")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func TestTokenRepo_RenewedAfterScanSurvives(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.Tokens()

	require.NoError(t, repo.Upsert(ctx, &token.Token{Code: "t1", ExpiresAt: testNow.Add(-time.Minute)}))
	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	renewed := list[0]
	renewed.ExpiresAt = testNow.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, renewed))

	deleted, err := repo.DeleteExpired(ctx, "t1", testNow)
	require.NoError(t, err)
	require.False(t, deleted)
	_, err = repo.GetByCode(ctx, "t1")
	require.NoError(t, err)
}

func TestRPTRepo(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.RPTs()

	require.NoError(t, repo.Upsert(ctx, &uma.RPT{Code: "r1", ClientID: "c1", PermissionIDs: []string{"p1"}, ExpiresAt: testNow.Add(-time.Second)}))

	got, err := repo.GetByCode(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, got.PermissionIDs)

	deleted, err := repo.DeleteExpired(ctx, "r1", testNow)
	require.NoError(t, err)
	require.True(t, deleted)

	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPARRepo(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.PushedRequests()

	id := par.RequestURIPrefix + "abc"
	request := &par.PushedAuthorizationRequest{
		ID: id,
		Attributes: oauthmodel.AuthorizationParameters{
			ClientID:         "c1",
			ResponseType:     "code",
			Scope:            "openid",
			MaxAge:           utils.Ptr(300),
			CustomParameters: map[string]string{"tenant": "t1"},
		},
		CreatedAt: testNow.Add(-2 * time.Minute),
		ExpiresAt: testNow.Add(-time.Minute),
		SingleUse: true,
	}
	require.NoError(t, repo.Upsert(ctx, request))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "openid", got.Attributes.Scope)
	require.Equal(t, 300, *got.Attributes.MaxAge)
	require.Equal(t, "t1", got.Attributes.CustomParameters["tenant"])
	require.True(t, got.SingleUse)

	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	deleted, err := repo.DeleteExpired(ctx, id, testNow)
	require.NoError(t, err)
	require.True(t, deleted)
	require.ErrorIs(t, repo.Delete(ctx, id), autherrors.ErrNotFound)
}

func TestListExpired_SkipsRecordsDeletedAfterIndexing(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)
	repo := store.Tokens()

	require.NoError(t, repo.Upsert(ctx, &token.Token{Code: "a", ExpiresAt: testNow.Add(-time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &token.Token{Code: "b", ExpiresAt: testNow.Add(-time.Minute)}))
	mr.Del("test:token:a")

	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "b", list[0].Code)

	// The dangling index entry is dropped by the delete attempt
	_, err = repo.DeleteExpired(ctx, "a", testNow)
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func TestListExpired_Limit(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	repo := store.Tokens()

	for i, code := range []string{"t1", "t2", "t3"} {
		require.NoError(t, repo.Upsert(ctx, &token.Token{Code: code, ExpiresAt: testNow.Add(-time.Duration(3-i) * time.Minute)}))
	}
	list, err := repo.ListExpired(ctx, testNow, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "t1", list[0].Code)
	require.Equal(t, "t2", list[1].Code)
}
