package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvEnvironment     = "DOXETL_ENVIRONMENT"
	EnvLogLevel        = "DOXETL_LOG_LEVEL"
	EnvLogFormat       = "DOXETL_LOG_FORMAT"
	EnvLogFile         = "DOXETL_LOG_FILE"
	EnvAuditDB         = "DOXETL_AUDIT_DB"
	EnvStreamChunkSize = "DOXETL_STREAM_CHUNK_SIZE"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// An explicit path overrides variables already set and must exist. With an
// empty path, ./.env is loaded if present without overriding.
func LoadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	if v, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return i, nil
	}
	return def, nil
}
