package wallabag

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/dvcrn/wallabag-client/pkg/notfound"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, notfound.Smart, cfg.NotFoundPolicy)
	assert.Zero(t, cfg.ProbeCacheTTL)

	client := cfg.NewHTTPClient()
	assert.Equal(t, cfg.Timeout, client.Timeout)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.BaseURL = "https://wallabag.example.com"
		cfg.Credentials = credentials.Credentials{
			ClientID:     "1_client",
			ClientSecret: "secret",
			Username:     "reader",
			Password:     "pass",
		}
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		errors []string
	}{
		{
			name:   "missing base url",
			mutate: func(c *Config) { c.BaseURL = "" },
			errors: []string{"base_url is required"},
		},
		{
			name:   "bad scheme",
			mutate: func(c *Config) { c.BaseURL = "ftp://wallabag.example.com" },
			errors: []string{`base_url must use http or https scheme, got: "ftp"`},
		},
		{
			name:   "unknown policy",
			mutate: func(c *Config) { c.NotFoundPolicy = notfound.Policy(9) },
			errors: []string{"unknown not_found_policy Policy(9)"},
		},
		{
			name: "every problem reported",
			mutate: func(c *Config) {
				c.Timeout = 0
				c.ProbeCacheTTL = -time.Second
				c.Credentials.ClientSecret = ""
				c.Credentials.Password = ""
			},
			errors: []string{
				"timeout must be positive, got: 0s",
				"probe_cache_ttl must be non-negative, got: -1s",
				"client_id and client_secret must be set together",
				"username and password must be set together",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			require.Len(t, merr.Errors, len(tt.errors))
			for i, want := range tt.errors {
				assert.EqualError(t, merr.Errors[i], want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://wallabag.example.com
timeout: 15s
not_found_policy: throw
probe_cache_ttl: 1m
credentials:
  client_id: 1_client
  client_secret: secret
  username: reader
  password: from-file
`), 0600))

	t.Setenv(credentials.EnvPassword, "from-env")
	t.Setenv(credentials.EnvRefreshToken, "R1")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://wallabag.example.com", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, notfound.Throw, cfg.NotFoundPolicy)
	assert.Equal(t, time.Minute, cfg.ProbeCacheTTL)
	assert.Equal(t, "reader", cfg.Credentials.Username)
	assert.Equal(t, "from-env", cfg.Credentials.Password)
	assert.Equal(t, "R1", cfg.Credentials.RefreshToken)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://localhost:8080\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, notfound.Smart, cfg.NotFoundPolicy)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	badPolicy := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(badPolicy, []byte("base_url: http://localhost\nnot_found_policy: ignore\n"), 0600))
	_, err = LoadConfig(badPolicy)
	assert.ErrorContains(t, err, `unknown not-found policy "ignore"`)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("timeout: 5s\n"), 0600))
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "base_url is required")
}

func TestDefaultConfigPath(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/test-config")
		assert.Equal(t, filepath.Join("/tmp/test-config", "wallabag", "config.yaml"), DefaultConfigPath())
	})

	t.Run("without XDG_CONFIG_HOME set", func(t *testing.T) {
		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)

		t.Setenv("XDG_CONFIG_HOME", "")
		assert.Equal(t, filepath.Join(homeDir, ".config", "wallabag", "config.yaml"), DefaultConfigPath())
	})
}
