package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file use t.Setenv and therefore cannot run in parallel.

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SALESQL_INPUT", "SALESQL_DB", "SALESQL_QUERIES", "SALESQL_OUT", "SALESQL_TABLE",
		"SALESQL_TOP", "SALESQL_CURRENCY", "SALESQL_ENCODING", "SALESQL_RECOMMENDATION",
		"SALESQL_EXPORT_FORMAT", "SALESQL_EXPORT_COMPRESSION", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultInput, cfg.Input)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.Equal(t, DefaultTopLimit, cfg.TopLimit)
	assert.Equal(t, DefaultCurrency, cfg.Currency)
	assert.Equal(t, DefaultEncoding, cfg.Encoding)
	assert.Equal(t, "none", cfg.ExportFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESQL_INPUT", "in.csv.gz")
	t.Setenv("SALESQL_TABLE", "transactions")
	t.Setenv("SALESQL_TOP", "10")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "in.csv.gz", cfg.Input)
	assert.Equal(t, "transactions", cfg.Table)
	assert.Equal(t, 10, cfg.TopLimit)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, v := range []string{"abc", "5x", "1.5"} {
		t.Setenv("SALESQL_TOP", v)
		cfg, err := Load()
		require.Error(t, err, v)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "SALESQL_TOP")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SALESQL_CURRENCY=EUR\nSALESQL_RECOMMENDATION=Stock up before November\n"), 0o600))
	t.Setenv("SALESQL_CURRENCY", "")
	t.Setenv("SALESQL_RECOMMENDATION", "")
	// godotenv does not override variables that are set, even to "".
	require.NoError(t, os.Unsetenv("SALESQL_CURRENCY"))
	require.NoError(t, os.Unsetenv("SALESQL_RECOMMENDATION"))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "Stock up before November", cfg.Recommendation)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Input: "data.csv", Table: "sales", TopLimit: 5, LogLevel: "info", LogFormat: "console"}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty input", mutate: func(c *Config) { c.Input = " " }, wantErr: true},
		{name: "empty table", mutate: func(c *Config) { c.Table = "" }, wantErr: true},
		{name: "zero top", mutate: func(c *Config) { c.TopLimit = 0 }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger("debug", format)
		require.NoError(t, err, format)
		require.NotNil(t, l)
		_ = l.Sync()
	}

	_, err := NewLogger("verbose", "json")
	assert.Error(t, err)
	_, err = NewLogger("info", "yaml")
	assert.Error(t, err)
}
