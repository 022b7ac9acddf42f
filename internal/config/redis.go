package config

import (
	"os"
	"strconv"
	"time"
)

type RedisConfig struct {
	DB        int
	Url       string
	Password  string
	ReportTTL time.Duration
	// RecentLimit caps the recent-run index
	RecentLimit int64
}

func NewRedisConfig() *RedisConfig {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "localhost:6379"
	}
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		db = 0
	}
	ttlMin, err := strconv.Atoi(os.Getenv("REDIS_REPORT_TTL_MIN"))
	if err != nil || ttlMin <= 0 {
		ttlMin = 24 * 60
	}
	return &RedisConfig{
		DB:          db,
		Url:         url,
		Password:    os.Getenv("REDIS_PASSWORD"),
		ReportTTL:   time.Duration(ttlMin) * time.Minute,
		RecentLimit: 100,
	}
}
