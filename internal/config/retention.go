package config

import (
	"os"
	"strconv"
	"time"
)

type RetentionConfig struct {
	Enabled       bool
	PurgeInterval time.Duration
	MaxAge        time.Duration
}

func NewRetentionConfig() *RetentionConfig {
	intervalMin, err := strconv.Atoi(os.Getenv("RETENTION_PURGE_INTERVAL_MIN"))
	if err != nil || intervalMin <= 0 {
		intervalMin = 60
	}
	maxAgeDays, err := strconv.Atoi(os.Getenv("RETENTION_MAX_AGE_DAYS"))
	if err != nil || maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	return &RetentionConfig{
		Enabled:       os.Getenv("RETENTION_DISABLED") != "true",
		PurgeInterval: time.Duration(intervalMin) * time.Minute,
		MaxAge:        time.Duration(maxAgeDays) * 24 * time.Hour,
	}
}
