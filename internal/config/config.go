/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis preference cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS notification sink
	NATSURL   string
	NATSToken string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("GRIMNIR_ENV", "development"),
		HTTPBind:    getEnv("GRIMNIR_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("GRIMNIR_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("GRIMNIR_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("GRIMNIR_DB_DSN", ""),

		JWTSigningKey: getEnv("GRIMNIR_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("GRIMNIR_METRICS_BIND", "127.0.0.1:9000"),

		TracingEnabled:    getEnvBool("GRIMNIR_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("GRIMNIR_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("GRIMNIR_TRACING_SAMPLE_RATE", 1.0),

		RedisAddr:     getEnv("GRIMNIR_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("GRIMNIR_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("GRIMNIR_REDIS_DB", 0),

		NATSURL:   getEnv("GRIMNIR_NATS_URL", "nats://localhost:4222"),
		NATSToken: getEnv("GRIMNIR_NATS_TOKEN", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("GRIMNIR_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("GRIMNIR_JWT_SIGNING_KEY must be provided")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
