package config

import (
	"os"
	"strconv"
)

type HTTPConfig struct {
	Port        int
	ServiceName string
}

func NewHTTPConfig() *HTTPConfig {
	port, err := strconv.Atoi(os.Getenv("HTTP_PORT"))
	if err != nil || port <= 0 {
		port = 8080
	}
	name := os.Getenv("SERVICE_NAME")
	if name == "" {
		name = "plantguard-unittest"
	}
	return &HTTPConfig{
		Port:        port,
		ServiceName: name,
	}
}
