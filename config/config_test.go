package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Library.Timezone)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func Test_Load_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
database:
  name: lib_test
library:
  register_office: Branch 2
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "lib_test", cfg.Database.Name)
	assert.Equal(t, "Branch 2", cfg.Library.RegisterOffice)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func Test_Load_EnvOverridesFile(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func Test_Validate_RejectsBadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Library.Timezone = "Mars/Olympus"

	assert.Error(t, cfg.Validate())
}

func Test_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Pass: "p", Host: "h", Port: "3306", Name: "db"}

	assert.Equal(t, "u:p@tcp(h:3306)/db?parseTime=true&loc=UTC", d.DSN())
}
