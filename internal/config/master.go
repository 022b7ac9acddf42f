package config

import "os"

type AppConfig struct {
	DebugMode       bool
	UnitTestConfig  *UnitTestConfig
	RetentionConfig *RetentionConfig
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	JwtConfig       *JwtConfig
	HTTPConfig      *HTTPConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		UnitTestConfig:  NewUnitTestConfig(),
		RetentionConfig: NewRetentionConfig(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		JwtConfig:       NewJwtConfig(),
		HTTPConfig:      NewHTTPConfig(),
	}
}
