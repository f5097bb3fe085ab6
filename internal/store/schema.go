package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var schemas = map[string][]string{
	DriverMySQL: {`
		CREATE TABLE IF NOT EXISTS contacts (
			id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
			full_name    VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20)  NOT NULL,
			email        VARCHAR(120) NOT NULL,
			address      TEXT         NULL,
			company      VARCHAR(100) NULL,
			notes        TEXT         NULL,
			created_at   DATETIME     NOT NULL,
			updated_at   DATETIME     NOT NULL,
			INDEX ix_contacts_full_name (full_name),
			INDEX ix_contacts_email (email)
		) DEFAULT CHARSET = utf8mb4`,
	},
	DriverPostgres: {`
		CREATE TABLE IF NOT EXISTS contacts (
			id           BIGSERIAL    PRIMARY KEY,
			full_name    VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20)  NOT NULL,
			email        VARCHAR(120) NOT NULL,
			address      TEXT         NULL,
			company      VARCHAR(100) NULL,
			notes        TEXT         NULL,
			created_at   TIMESTAMP    NOT NULL,
			updated_at   TIMESTAMP    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_contacts_full_name ON contacts (full_name)`,
		`CREATE INDEX IF NOT EXISTS ix_contacts_email ON contacts (email)`,
	},
}

// EnsureSchema creates the contacts table and its indexes unless they exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements, ok := schemas[db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", db.DriverName())
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// ResetSchema drops the contacts table with all its data and creates it again.
func ResetSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS contacts`); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return EnsureSchema(ctx, db)
}

// DSN builds a data source name for the driver from its parts.
//
// MySQL connections parse DATETIME columns into time.Time in UTC and report matched instead of
// changed rows, so that updating a contact with unchanged values is not mistaken for a missing
// contact.
func DSN(driver, user, password, host, name string) (string, error) {
	switch driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = password
		cfg.Net = "tcp"
		cfg.Addr = host
		cfg.DBName = name
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.ClientFoundRows = true
		return cfg.FormatDSN(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     host,
			Path:     "/" + name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
