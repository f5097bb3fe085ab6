// Package config reads the settings of the contact manager from environment variables.
//
// Every setting is described by struct tags on Config:
//
//	env      name of the environment variable
//	default  value used when the variable is unset or empty
//	required "true" if the variable must be set
//
// Run the service with a .env file in the working directory to set variables for development;
// variables that are already set in the environment take precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
)

// Config holds all settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Logging  LoggingConfig
}

// ServerConfig holds the HTTP settings.
type ServerConfig struct {
	Port            int           `env:"PORT"              default:"8080"`
	ContactsPerPage int           `env:"CONTACTS_PER_PAGE" default:"10"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  default:"10s"`
	SecretKey       string        `env:"SECRET_KEY"`
}

// DatabaseConfig holds the connection settings. URL, when set, is used as it is and the
// individual parts are ignored.
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER"    default:"mysql"`
	User     string `env:"DBUSER"`
	Password string `env:"DBPWD"`
	Host     string `env:"DBHOST"       default:"localhost:3306"`
	Name     string `env:"DBNAME"       default:"contacts"`
	URL      string `env:"DATABASE_URL"`
}

// UploadConfig limits CSV imports.
type UploadConfig struct {
	MaxFileSize   int64         `env:"UPLOAD_MAX_FILE_SIZE"  default:"16777216"`
	MaxConcurrent int64         `env:"UPLOAD_MAX_CONCURRENT" default:"2"`
	MaxWait       time.Duration `env:"UPLOAD_MAX_WAIT"       default:"10s"`
}

// LoggingConfig selects the log output. GinLogging "off" disables the line per request.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL"   default:"info"`
	Format     string `env:"LOG_FORMAT"  default:"text"`
	GinLogging string `env:"GIN_LOGGING" default:"on"`
}

// RequestLogging reports whether every request is logged.
func (l LoggingConfig) RequestLogging() bool {
	return !strings.EqualFold(l.GinLogging, "off")
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	return store.DSN(d.Driver, d.User, d.Password, d.Host, d.Name)
}

// Validate checks all settings and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ContactsPerPage <= 0 {
		errs = append(errs, "CONTACTS_PER_PAGE must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Database.Driver != store.DriverMySQL && c.Database.Driver != store.DriverPostgres {
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: %s, %s",
			c.Database.Driver, store.DriverMySQL, store.DriverPostgres))
	}
	if c.Database.URL == "" && c.Database.User == "" {
		errs = append(errs, "DBUSER is required unless DATABASE_URL is set")
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWait <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns the settings for logging. Passwords, the database URL and the secret key are
// masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Port: %d, ContactsPerPage: %d, ShutdownTimeout: %s, SecretKey: %s}, ",
		c.Server.Port, c.Server.ContactsPerPage, c.Server.ShutdownTimeout, mask(c.Server.SecretKey))
	fmt.Fprintf(&b, "Database: {Driver: %q, User: %q, Password: %s, Host: %q, Name: %q, URL: %s}, ",
		c.Database.Driver, c.Database.User, mask(c.Database.Password), c.Database.Host, c.Database.Name,
		mask(c.Database.URL))
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxWait: %s}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxWait)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q, GinLogging: %q}",
		c.Logging.Level, c.Logging.Format, c.Logging.GinLogging)
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return `""`
	}
	return "[MASKED]"
}
