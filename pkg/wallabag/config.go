package wallabag

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/dvcrn/wallabag-client/pkg/notfound"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config configures a Client.
//
// Example configuration (YAML):
//
//	base_url: https://wallabag.example.com
//	timeout: 30s
//	not_found_policy: smart
//	credentials:
//	  client_id: 1_abc
//	  client_secret: xyz
//	  username: reader
//	  password: secret
type Config struct {
	// BaseURL is the root of the service, without the api/ suffix.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each HTTP request, including token grants.
	// Default: 60 seconds
	Timeout time.Duration `yaml:"timeout"`

	Credentials credentials.Credentials `yaml:"credentials"`

	// NotFoundPolicy is the policy for operations that treat a 404 as
	// "nothing there". Default: smart
	NotFoundPolicy notfound.Policy `yaml:"not_found_policy"`

	// ProbeCacheTTL remembers a successful reachability probe. Zero probes
	// on every classified 404.
	ProbeCacheTTL time.Duration `yaml:"probe_cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		NotFoundPolicy: notfound.Smart,
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid base_url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		result = multierror.Append(result, fmt.Errorf("base_url must use http or https scheme, got: %q", u.Scheme))
	}

	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be positive, got: %v", c.Timeout))
	}
	if c.ProbeCacheTTL < 0 {
		result = multierror.Append(result, fmt.Errorf("probe_cache_ttl must be non-negative, got: %v", c.ProbeCacheTTL))
	}

	switch c.NotFoundPolicy {
	case notfound.Throw, notfound.DefaultValue, notfound.Smart:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown not_found_policy %v", c.NotFoundPolicy))
	}

	creds := c.Credentials
	if (creds.ClientID == "") != (creds.ClientSecret == "") {
		result = multierror.Append(result, fmt.Errorf("client_id and client_secret must be set together"))
	}
	if (creds.Username == "") != (creds.Password == "") {
		result = multierror.Append(result, fmt.Errorf("username and password must be set together"))
	}

	return result.ErrorOrNil()
}

// NewHTTPClient creates the HTTP client requests are sent through.
func (c *Config) NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig and overlays
// WALLABAG_* credential variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Credentials = credentials.FromEnv(cfg.Credentials)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/wallabag/config.yaml, falling
// back to ~/.config. It returns "" when no home directory is known.
func DefaultConfigPath() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "wallabag", "config.yaml")
}
