package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures everything the process needs from its environment. main
// builds it once and injects the pieces; no other package reads env state.
type Config struct {
	Addr       string
	SchemaPath string
	Database   Database
	Redis      Redis

	// RunningInDocker switches host defaults for the compose deployment.
	RunningInDocker bool
}

// Database holds PostgreSQL connection parameters.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Redis holds broadcast channel connection parameters.
type Redis struct {
	Addr    string
	Channel string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	inDocker := os.Getenv("RUNNING_IN_DOCKER") == "true"

	addr := os.Getenv("AUDITTRAIL_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	dbHost := "localhost"
	redisHost := "localhost"
	dbPort := envInt("DB_PORT", 5432)
	redisPort := envInt("REDIS_PORT", 6379)
	if inDocker {
		// Inside the compose network the services listen on their default
		// ports regardless of host mappings.
		dbHost, dbPort = "postgres", 5432
		redisHost, redisPort = "redis", 6379
	}

	schemaPath := os.Getenv("AUDIT_SCHEMA_PATH")
	if schemaPath == "" {
		schemaPath = "schema/audit_log_schema.json"
	}

	return Config{
		Addr:       addr,
		SchemaPath: schemaPath,
		Database: Database{
			Host:     dbHost,
			Port:     dbPort,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  "disable",
		},
		Redis: Redis{
			Addr:    fmt.Sprintf("%s:%d", redisHost, redisPort),
			Channel: "audit_events_channel",
		},
		RunningInDocker: inDocker,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
