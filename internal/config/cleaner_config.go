package config

import "time"

type CleanerConfig interface {
	GetCleanerEnabled() bool
	GetCleanerInterval() time.Duration
	GetCleanerBatchSize() int
	GetCleanerDeleteRetries() uint
}

type Cleaner struct {
	Enabled       bool          `env:"CLEANER_ENABLED" envDefault:"true"`
	Interval      time.Duration `env:"CLEANER_INTERVAL" envDefault:"5m"`
	BatchSize     int           `env:"CLEANER_BATCH_SIZE" envDefault:"100"`
	DeleteRetries uint          `env:"CLEANER_DELETE_RETRIES" envDefault:"3"`
}

var _ CleanerConfig = Cleaner{}

func (c Cleaner) GetCleanerEnabled() bool {
	return c.Enabled
}

func (c Cleaner) GetCleanerInterval() time.Duration {
	return c.Interval
}

func (c Cleaner) GetCleanerBatchSize() int {
	return c.BatchSize
}

func (c Cleaner) GetCleanerDeleteRetries() uint {
	return c.DeleteRetries
}
