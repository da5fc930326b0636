package client

import (
	"errors"
	"os"
	"strings"
)

// LoadConfig builds Config from envs.
func LoadConfig() (Config, error) {
	base := getenvDefault("POOL_SERVER_URL", "http://localhost:8080")
	user := os.Getenv("POOL_API_USERNAME")
	pass := os.Getenv("POOL_API_PASSWORD")
	if user == "" || pass == "" {
		return Config{}, errors.New("missing POOL_API_USERNAME / POOL_API_PASSWORD")
	}
	return Config{
		BaseURL:  strings.TrimRight(base, "/"),
		Username: user,
		Password: pass,
	}, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
