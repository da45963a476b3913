package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/scenarioctl/scenarioctl/internal/database"
)

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name        string
	DatabaseURL string
	DotenvPath  string
	FromConfig  bool
	FromDotenv  bool
}

// Driver is the database driver type the environment connects with.
func (e *ResolvedEnvironment) Driver() string {
	return database.DetectDriver(e.DatabaseURL)
}

// ResolveEnvironment resolves a named environment into a concrete database URL.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}
	if config != nil && config.DatabaseURL != "" && envConfig.DatabaseURL == "" {
		envConfig.DatabaseURL = config.DatabaseURL
	}

	resolved := &ResolvedEnvironment{
		Name:        envName,
		DatabaseURL: envConfig.DatabaseURL,
		FromConfig:  envExists,
	}

	var (
		baseDir        string
		projectDir     string
		dotenvFileName = ".env." + envName
	)
	if config != nil {
		baseDir = config.ConfigDir()
		projectDir = config.ProjectDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, dotenvFileName)

	if _, err := os.Stat(resolved.DotenvPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
		}
		if projectDir != "" && projectDir != baseDir {
			altPath := filepath.Join(projectDir, dotenvFileName)
			if altInfo, altErr := os.Stat(altPath); altErr == nil && !altInfo.IsDir() {
				resolved.DotenvPath = altPath
			}
		}
	}

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		if value := dotenvDatabaseURL(values); value != "" {
			resolved.DatabaseURL = value
		}
	}

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found", envName, FileName, resolved.DotenvPath)
	}

	if resolved.DatabaseURL == "" {
		resolved.DatabaseURL = defaultDatabaseURL
	}

	url, err := resolveSQLitePath(resolved.DatabaseURL, baseDir)
	if err != nil {
		return nil, err
	}
	resolved.DatabaseURL = url

	return resolved, nil
}

// dotenvDatabaseURL picks the connection string from a .env file. A generic
// DATABASE_URL wins over the driver specific keys.
func dotenvDatabaseURL(values map[string]string) string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "MYSQL_URL", "SQLITE_DB_PATH"} {
		if value := values[key]; value != "" {
			return value
		}
	}
	if value := values["LIBSQL_URL"]; value != "" {
		if authToken := values["LIBSQL_AUTH_TOKEN"]; authToken != "" {
			return fmt.Sprintf("%s?authToken=%s", value, authToken)
		}
		return value
	}
	return ""
}

// resolveSQLitePath makes a relative SQLite file path absolute against base,
// keeping the URL scheme.
func resolveSQLitePath(connStr, base string) (string, error) {
	if database.DetectDriver(connStr) != "sqlite" || !database.IsSQLiteFilePath(connStr) {
		return connStr, nil
	}

	path := database.ExtractSQLiteFilePath(connStr)
	resolved, err := resolvePath(path, base)
	if err != nil {
		return "", err
	}
	if resolved == path {
		return connStr, nil
	}
	return strings.Replace(connStr, path, resolved, 1), nil
}
