// Package config provides loading and parsing of planner.yaml configuration
// files. A planner configuration names the service endpoints per dialect,
// the default run configuration, timeout bounds, and the optional cache and
// registry integrations.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pddlkit/sdk/types"
)

// ServiceConfig names one planning-service endpoint.
type ServiceConfig struct {
	// URL is the endpoint the dialect posts to.
	URL string `yaml:"url"`
}

// CacheConfig configures the optional Redis plan cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string `yaml:"url,omitempty"`

	// TTL is how long cached plans stay valid. Go duration string
	// (e.g. "10m", "2h"). Default: 1h.
	TTL string `yaml:"ttl,omitempty"`
}

// GetTTL parses the TTL string, returning the default on absence or error.
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// RegistryConfig configures the optional etcd endpoint registry.
type RegistryConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoints lists the etcd cluster members.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace prefixes all registry keys. Default: "pddlkit".
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the registration lease in seconds. Default: 30.
	TTL int `yaml:"ttl,omitempty"`
}

// TimeoutsConfig maps onto types.TimeoutConfig.
type TimeoutsConfig struct {
	Default types.Seconds `yaml:"default,omitempty"`
	Min     types.Seconds `yaml:"min,omitempty"`
	Max     types.Seconds `yaml:"max,omitempty"`
}

// Bounds converts to the types representation.
func (t TimeoutsConfig) Bounds() types.TimeoutConfig {
	return types.TimeoutConfig{Default: t.Default, Min: t.Min, Max: t.Max}
}

// Config represents a planner.yaml configuration file.
type Config struct {
	// Per-dialect endpoints. At least one must be configured.
	Solve   *ServiceConfig `yaml:"solve,omitempty"`
	Request *ServiceConfig `yaml:"request,omitempty"`
	Package *ServiceConfig `yaml:"package,omitempty"`

	// Defaults is the run configuration applied when a caller supplies
	// none.
	Defaults types.RunConfiguration `yaml:"defaults,omitempty"`

	Timeouts TimeoutsConfig `yaml:"timeouts,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
}

// Load reads and parses a planner.yaml file from the given path.
// If the path is a directory, it looks for planner.yaml or planner.yml in
// that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "planner.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "planner.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("no planner.yaml or planner.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the configuration is usable: at least one service
// endpoint, well-formed URLs, consistent timeout bounds, and a recognized
// plan format.
func (c *Config) Validate() error {
	if c.Solve == nil && c.Request == nil && c.Package == nil {
		return fmt.Errorf("no planning service configured: set one of solve, request, package")
	}

	for name, svc := range map[string]*ServiceConfig{
		"solve": c.Solve, "request": c.Request, "package": c.Package,
	} {
		if svc == nil {
			continue
		}
		if svc.URL == "" {
			return fmt.Errorf("%s: missing url", name)
		}
		u, err := url.Parse(svc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: invalid url %q", name, svc.URL)
		}
	}

	if err := c.Timeouts.Bounds().Validate(); err != nil {
		return fmt.Errorf("timeouts: %w", err)
	}

	if c.Defaults.PlanFormat != "" && !c.Defaults.PlanFormat.Valid() {
		return fmt.Errorf("defaults: unknown plan format %q", c.Defaults.PlanFormat)
	}

	if c.Registry.Enabled && len(c.Registry.Endpoints) == 0 {
		return fmt.Errorf("registry: enabled without endpoints")
	}

	return nil
}
