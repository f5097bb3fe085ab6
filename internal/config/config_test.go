package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env returns a lookup function on a fixed set of variables.
func env(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(map[string]string{"DBUSER": "dirk"}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ContactsPerPage)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "contacts", cfg.Database.Name)
	assert.Equal(t, int64(16*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, int64(2), cfg.Upload.MaxConcurrent)
	assert.Equal(t, 10*time.Second, cfg.Upload.MaxWait)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Logging.RequestLogging())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"DATABASE_URL":          "postgres://u:p@db:5432/contacts",
		"DB_DRIVER":             "pgx",
		"PORT":                  "9090",
		"CONTACTS_PER_PAGE":     "25",
		"UPLOAD_MAX_CONCURRENT": "4",
		"UPLOAD_MAX_WAIT":       "1m",
		"LOG_LEVEL":             "debug",
		"GIN_LOGGING":           "OFF",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Server.ContactsPerPage)
	assert.Equal(t, int64(4), cfg.Upload.MaxConcurrent)
	assert.Equal(t, time.Minute, cfg.Upload.MaxWait)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.RequestLogging())

	dsn, err := cfg.Database.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/contacts", dsn)
}

// TestLoadRealEnvironment expects Load to read the process environment.
func TestLoadRealEnvironment(t *testing.T) {
	t.Setenv("DBUSER", "dirk")
	t.Setenv("PORT", "8181")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "dirk", cfg.Database.User)
}

func TestLoadInvalidValue(t *testing.T) {
	_, err := load(env(map[string]string{"DBUSER": "dirk", "PORT": "eighty"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid value for PORT="eighty"`)

	_, err = load(env(map[string]string{"DBUSER": "dirk", "UPLOAD_MAX_WAIT": "10"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

// TestValidateReportsAllErrors expects one line per invalid setting.
func TestValidateReportsAllErrors(t *testing.T) {
	_, err := load(env(map[string]string{
		"PORT":                 "70000",
		"DB_DRIVER":            "sqlite",
		"UPLOAD_MAX_FILE_SIZE": "-1",
		"LOG_FORMAT":           "xml",
	}))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "PORT (70000) must be 1-65535")
	assert.Contains(t, msg, `DB_DRIVER ("sqlite") must be one of: mysql, pgx`)
	assert.Contains(t, msg, "DBUSER is required unless DATABASE_URL is set")
	assert.Contains(t, msg, "UPLOAD_MAX_FILE_SIZE must be positive")
	assert.Contains(t, msg, `LOG_FORMAT ("xml") must be one of: text, json`)
}

func TestDSNFromParts(t *testing.T) {
	cfg, err := load(env(map[string]string{"DBUSER": "dirk", "DBPWD": "secret", "DBHOST": "db:3306"}))
	require.NoError(t, err)

	dsn, err := cfg.Database.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "dirk:secret@tcp(db:3306)/contacts")
}

// TestStringMasksSecrets expects no password, URL or key in the printable form.
func TestStringMasksSecrets(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"DBUSER":       "dirk",
		"DBPWD":        "bullo92",
		"DATABASE_URL": "mysql://dirk:bullo92@db/contacts",
		"SECRET_KEY":   "s3cr3t",
	}))
	require.NoError(t, err)

	s := cfg.String()
	assert.NotContains(t, s, "bullo92")
	assert.NotContains(t, s, "s3cr3t")
	assert.Contains(t, s, "[MASKED]")
	assert.Contains(t, s, `User: "dirk"`)
}
