package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("environment overrides", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("HTTP_ADDR", ":7000")
		t.Setenv("JWT_SECRET", "env_secret")
		t.Setenv("JWT_EXPIRES_IN", "12h")
		t.Setenv("BCRYPT_ROUNDS", "11")
		t.Setenv("MIGRATE_ON_START", "false")
		t.Setenv("RATE_LIMIT_RATE", "0.5")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":7000", cfg.HTTPAddr)
		assert.Equal(t, "env_secret", cfg.SecretKey)
		assert.Equal(t, 12*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 11, cfg.BcryptCost)
		assert.False(t, cfg.MigrateOnStart)
		assert.Equal(t, 0.5, cfg.RateLimitRate)
		assert.Equal(t, time.Hour, cfg.ResetTokenValidityDuration, "unset variables keep defaults")
	})

	t.Run("dotenv file from flag", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("SMTP_HOST=mail.example.com\nSMTP_PORT=2525\n"), 0o600))
		t.Cleanup(func() {
			_ = os.Unsetenv("SMTP_HOST")
			_ = os.Unsetenv("SMTP_PORT")
		})
		os.Args = []string{"testbin", "-env", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "mail.example.com", cfg.SMTPHost)
		assert.Equal(t, 2525, cfg.SMTPPort)
	})

	t.Run("missing dotenv file from flag panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-e", filepath.Join(t.TempDir(), "absent.env")}
		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("malformed value panics", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("BCRYPT_ROUNDS", "many")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
