package repository

import (
	"os"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/approvalflow/approvalflow/internal/config"
)

func withDatabaseType(t *testing.T, dbType string) {
	t.Helper()
	old := os.Getenv(config.DATABASE_TYPE)
	os.Setenv(config.DATABASE_TYPE, dbType)
	t.Cleanup(func() { os.Setenv(config.DATABASE_TYPE, old) })
}

func TestPlaceholder(t *testing.T) {
	withDatabaseType(t, config.DATABASE_TYPE_POSTGRES)
	if got := placeholder(3); got != "$3" {
		t.Errorf("Expected $3 for postgres, got %s", got)
	}

	withDatabaseType(t, config.DATABASE_TYPE_MYSQL)
	if got := placeholder(3); got != "?" {
		t.Errorf("Expected ? for mysql, got %s", got)
	}

	withDatabaseType(t, config.DATABASE_TYPE_SQLLITE)
	if got := placeholder(1); got != "?" {
		t.Errorf("Expected ? for sqlite, got %s", got)
	}
}

func TestPlaceholderFormat(t *testing.T) {
	withDatabaseType(t, config.DATABASE_TYPE_POSTGRES)
	if placeholderFormat() != sq.Dollar {
		t.Error("Expected Dollar format for postgres")
	}

	withDatabaseType(t, config.DATABASE_TYPE_MYSQL)
	if placeholderFormat() != sq.Question {
		t.Error("Expected Question format for mysql")
	}
}

func TestSupportsReturning(t *testing.T) {
	withDatabaseType(t, config.DATABASE_TYPE_POSTGRES)
	if !supportsReturning() {
		t.Error("Postgres supports RETURNING")
	}

	withDatabaseType(t, config.DATABASE_TYPE_MYSQL)
	if supportsReturning() {
		t.Error("MySQL does not support RETURNING")
	}
}

func TestFormatDateInDatabase(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)

	withDatabaseType(t, config.DATABASE_TYPE_SQLLITE)
	if got := formatDateInDatabase(ts); got != "2025-06-01 12:30:45.123" {
		t.Errorf("Unexpected sqlite format: %s", got)
	}

	withDatabaseType(t, config.DATABASE_TYPE_MYSQL)
	if got := formatDateInDatabase(ts); got != "2025-06-01 12:30:45.123456" {
		t.Errorf("Unexpected mysql format: %s", got)
	}

	withDatabaseType(t, config.DATABASE_TYPE_POSTGRES)
	if got := formatDateInDatabase(ts); got != "2025-06-01T12:30:45.123456789Z" {
		t.Errorf("Unexpected postgres format: %s", got)
	}
}
