package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	App     AppConfig
	Neo4j   Neo4jConfig
	Backend BackendConfig
	Redis   RedisConfig
	Events  EventsConfig
}

type AppConfig struct {
	AppName           string
	Environment       string
	HTTPPort          string
	EnrichMaxInflight int
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type BackendConfig struct {
	BaseURL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type EventsConfig struct {
	Enabled bool
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:           req("APP_NAME"),
		Environment:       req("APP_ENV"),
		HTTPPort:          req("HTTP_PORT"),
		EnrichMaxInflight: optInt("ENRICH_MAX_INFLIGHT", 8),
	}

	cfg.Neo4j = Neo4jConfig{
		URI:      opt("NEO4J_URI", "bolt://localhost:7687"),
		Username: opt("NEO4J_USERNAME", "neo4j"),
		Password: opt("NEO4J_PASSWORD", "password"),
		Database: opt("NEO4J_DATABASE", "neo4j"),
	}

	cfg.Backend = BackendConfig{
		BaseURL: opt("BACKEND_BASE_URL", "http://localhost:8080/SwapItBe"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST", ""),
		Port:     opt("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD", ""),
	}

	cfg.Events = EventsConfig{
		Enabled: optBool("EVENTS_ENABLED", true),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func optBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
