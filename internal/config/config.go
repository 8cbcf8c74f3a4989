package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	AuthAPIURL  string
	TasksAPIURL string
	TokenPath   string
	WorkerCount int
}

type StubConfig struct {
	AuthPort  string
	TasksPort string
}

func Load() Config {
	return Config{
		AuthAPIURL:  getEnv("AUTH_API_URL", "http://localhost:8001"),
		TasksAPIURL: getEnv("TASKS_API_URL", "http://localhost:8002"),
		TokenPath:   getEnv("TOKEN_PATH", defaultTokenPath()),
		WorkerCount: 3,
	}
}

func LoadStub() StubConfig {
	return StubConfig{
		AuthPort:  getEnv("AUTH_PORT", "8001"),
		TasksPort: getEnv("TASKS_PORT", "8002"),
	}
}

// defaultTokenPath - аналог localStorage: один токен в пользовательском конфиге
func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "taskboard", "token")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
