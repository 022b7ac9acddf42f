package config

import "os"

// JwtConfig guards the unit-test API. An empty secret leaves it open.
type JwtConfig struct {
	Secret string
	Issuer string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
		Issuer: os.Getenv("JWT_ISSUER"),
	}
}
