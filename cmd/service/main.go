package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/service"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	// Variables that are already set win over the .env file.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	dsn, err := cfg.Database.DSN()
	if err != nil {
		slog.Error("failed to build data source name", "error", err)
		os.Exit(1)
	}
	db, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		slog.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database", "driver", cfg.Database.Driver, "name", cfg.Database.Name)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, cfg.Database.Name),
	)

	svc := service.New(store.New(db), service.Options{
		ContactsPerPage:      cfg.Server.ContactsPerPage,
		MaxUploadSize:        cfg.Upload.MaxFileSize,
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		MaxImportWait:        cfg.Upload.MaxWait,
		RequestLogging:       cfg.Logging.RequestLogging(),
		SecretKey:            []byte(cfg.Server.SecretKey),
		Registry:             registry,
	})
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: svc.SetupHttpRouter(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// Running imports finish or are canceled together with their requests.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
