package repository

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/approvalflow/approvalflow/internal/config"
)

// placeholder returns the correct bind variable for the given index based on DB type.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func placeholder(i int) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// placeholderFormat is the squirrel equivalent of placeholder for built queries.
func placeholderFormat() sq.PlaceholderFormat {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES {
		return sq.Dollar
	}
	return sq.Question
}

func supportsReturning() bool {
	return config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_POSTGRES
}

func formatDateInDatabase(t time.Time) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_SQLLITE {
		return t.UTC().Format("2006-01-02 15:04:05.000")
	}
	if db == config.DATABASE_TYPE_MYSQL {
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	}
	// PostgreSQL supports RFC3339
	return t.UTC().Format(time.RFC3339Nano)
}
