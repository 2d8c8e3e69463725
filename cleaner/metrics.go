package cleaner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/jrsteele09/go-authz-core/cleaner"

	attributeCollection = "collection"
)

type metrics struct {
	scanned  metric.Int64Counter
	deleted  metric.Int64Counter
	retained metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}

	var err error
	m.scanned, err = meter.Int64Counter(
		"authz.cleaner.scanned",
		metric.WithDescription("Number of expired records found by the sweeper"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleaner.scanned counter")
	}

	m.deleted, err = meter.Int64Counter(
		"authz.cleaner.deleted",
		metric.WithDescription("Number of expired records removed by the sweeper"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleaner.deleted counter")
	}

	m.retained, err = meter.Int64Counter(
		"authz.cleaner.retained",
		metric.WithDescription("Number of expired records kept because they are not deletable or were renewed"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleaner.retained counter")
	}

	m.failed, err = meter.Int64Counter(
		"authz.cleaner.failed",
		metric.WithDescription("Number of records the sweeper failed to remove"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleaner.failed counter")
	}

	m.duration, err = meter.Float64Histogram(
		"authz.cleaner.duration",
		metric.WithDescription("Sweep duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleaner.duration histogram")
	}
	return m, nil
}

func (m *metrics) record(ctx context.Context, stats Stats) {
	attrs := metric.WithAttributes(attribute.String(attributeCollection, stats.Collection))
	m.scanned.Add(ctx, int64(stats.Scanned), attrs)
	m.deleted.Add(ctx, int64(stats.Deleted), attrs)
	m.retained.Add(ctx, int64(stats.Retained), attrs)
	m.failed.Add(ctx, int64(stats.Failed), attrs)
}

func (m *metrics) recordDuration(ctx context.Context, d time.Duration) {
	m.duration.Record(ctx, float64(d.Microseconds())/1000)
}
