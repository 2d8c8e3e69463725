package config

type StorageConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetClientCacheSize() int
}

// Storage selects Redis when REDIS_ADDR is set; otherwise the in-memory stores are used.
type Storage struct {
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix  string `env:"REDIS_KEY_PREFIX" envDefault:"authz:"`
	ClientCacheSize int    `env:"CLIENT_CACHE_SIZE" envDefault:"1024"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.RedisKeyPrefix
}

func (s Storage) GetClientCacheSize() int {
	return s.ClientCacheSize
}
