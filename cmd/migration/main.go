package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
)

// Usage examples on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go -reset
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/testdata.sql
func main() {
	reset := flag.Bool("reset", false, "drop the contacts table with all data before creating it")
	file := flag.String("file", "", "an sql file to execute after the schema has been created")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("failed to load configuration", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	dsn, err := cfg.Database.DSN()
	if err != nil {
		fail("failed to build data source name", err)
	}
	db, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		fail("failed to open database", err)
	}
	defer db.Close()

	ctx := context.Background()
	if *reset {
		slog.Warn("dropping all contacts")
		err = store.ResetSchema(ctx, db)
	} else {
		err = store.EnsureSchema(ctx, db)
	}
	if err != nil {
		fail("failed to migrate", err)
	}

	if *file != "" {
		count, err := execFile(ctx, db, *file)
		if err != nil {
			fail("failed to execute "+*file, err)
		}
		slog.Info("executed sql file", "file", *file, "statements", count)
	}
	slog.Info("schema is up to date", "driver", cfg.Database.Driver)
}

// execFile executes the statements of an sql file one by one. A statement ends with the line
// that contains its semicolon.
func execFile(ctx context.Context, db *sqlx.DB, name string) (int, error) {
	readFile, err := os.Open(name) // nosemgrep
	if err != nil {
		return 0, err
	}
	defer readFile.Close()

	count := 0
	fileScanner := bufio.NewScanner(readFile)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			if _, err := db.ExecContext(ctx, builder.String()); err != nil {
				return count, fmt.Errorf("statement %d: %w", count+1, err)
			}
			count++
			builder.Reset()
		}
	}
	return count, fileScanner.Err()
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
