// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scenarioctl/scenarioctl/internal/database"
)

// Open returns a connection for the given driver type, closed on cleanup.
// SQLite databases live in t.TempDir(). PostgreSQL and MySQL tests are
// skipped unless POSTGRES_TEST_URL / MYSQL_TEST_URL are set, or fail when
// REQUIRE_TEST_DB=true.
func Open(t *testing.T, driverType string) *database.Conn {
	t.Helper()

	requireDB := os.Getenv("REQUIRE_TEST_DB") == "true"

	var connStr string
	switch driverType {
	case "sqlite":
		connStr = "sqlite://" + filepath.Join(t.TempDir(), "test.db")
	case "postgres":
		connStr = os.Getenv("POSTGRES_TEST_URL")
	case "mysql":
		connStr = os.Getenv("MYSQL_TEST_URL")
	default:
		t.Fatalf("Unknown database type: %s", driverType)
	}

	if connStr == "" {
		if requireDB {
			t.Fatalf("%s required but no test URL configured", driverType)
		}
		t.Skipf("%s not configured", driverType)
	}

	conn, err := database.Open(context.Background(), connStr)
	if err != nil {
		if requireDB || driverType == "sqlite" {
			t.Fatalf("Failed to open %s: %v", driverType, err)
		}
		t.Skipf("%s not reachable: %v", driverType, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// Drivers returns the driver types parameterised tests should cover.
func Drivers() []string {
	drivers := []string{"sqlite"}
	if os.Getenv("POSTGRES_TEST_URL") != "" {
		drivers = append(drivers, "postgres")
	}
	if os.Getenv("MYSQL_TEST_URL") != "" {
		drivers = append(drivers, "mysql")
	}
	return drivers
}
