package sdk

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pddlkit/sdk/cache"
	"github.com/pddlkit/sdk/config"
	"github.com/pddlkit/sdk/registry"
	"github.com/pddlkit/sdk/service"
	"github.com/pddlkit/sdk/types"
	"github.com/pddlkit/sdk/validate"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// clientConfig collects construction-time settings for a Client.
type clientConfig struct {
	variant    string
	serviceURL string

	configPath string

	logger     *slog.Logger
	httpClient *http.Client
	timeouts   types.TimeoutConfig
	defaults   types.RunConfiguration

	cache     cache.Cache
	registry  registry.Registry
	planner   string
	validator *validate.Validator

	pollDelay time.Duration
	sleeper   service.Sleeper
}

// WithSolveService points the client at a synchronous /solve endpoint.
func WithSolveService(url string) ClientOption {
	return func(c *clientConfig) {
		c.variant = "solve"
		c.serviceURL = url
	}
}

// WithRequestService points the client at an asynchronous /request endpoint.
func WithRequestService(url string) ClientOption {
	return func(c *clientConfig) {
		c.variant = "request"
		c.serviceURL = url
	}
}

// WithPackageService points the client at a packaged/preview service base
// URL. The solver package is chosen per run via
// RunConfiguration.PackageName.
func WithPackageService(baseURL string) ClientOption {
	return func(c *clientConfig) {
		c.variant = "package"
		c.serviceURL = baseURL
	}
}

// WithConfigFile loads a planner.yaml configuration. Explicit options take
// precedence over file settings.
func WithConfigFile(path string) ClientOption {
	return func(c *clientConfig) {
		c.configPath = path
	}
}

// WithLogger sets a custom diagnostic logger.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithHTTPClient sets the http.Client used for all round-trips.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeouts sets the bounds applied to run configuration budgets.
func WithTimeouts(cfg types.TimeoutConfig) ClientOption {
	return func(c *clientConfig) {
		c.timeouts = cfg
	}
}

// WithDefaults sets the run configuration applied when a caller supplies
// none; a partial caller configuration is filled from these defaults
// field by field.
func WithDefaults(cfg types.RunConfiguration) ClientOption {
	return func(c *clientConfig) {
		c.defaults = cfg
	}
}

// WithCache installs a plan cache consulted before each request and
// populated on terminal success.
func WithCache(planCache cache.Cache) ClientOption {
	return func(c *clientConfig) {
		c.cache = planCache
	}
}

// WithRegistry resolves the named planner's endpoint through reg at each
// Plan call instead of using a static service URL.
func WithRegistry(reg registry.Registry, plannerName string) ClientOption {
	return func(c *clientConfig) {
		c.registry = reg
		c.planner = plannerName
	}
}

// WithValidator validates every returned plan list; violations are logged
// as warnings and never fail the call.
func WithValidator(v *validate.Validator) ClientOption {
	return func(c *clientConfig) {
		c.validator = v
	}
}

// WithPollDelay overrides the packaged dialect's pause between callback
// polls.
func WithPollDelay(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.pollDelay = d
	}
}

// WithSleeper replaces the wall-clock sleeper used by the packaged
// dialect's poll loop. Intended for tests.
func WithSleeper(s service.Sleeper) ClientOption {
	return func(c *clientConfig) {
		c.sleeper = s
	}
}

// applyFile merges planner.yaml settings into the collected configuration,
// without overriding anything already set by an explicit option.
func (c *clientConfig) applyFile(fileCfg *config.Config) error {
	if c.serviceURL == "" {
		switch {
		case fileCfg.Solve != nil:
			c.variant = "solve"
			c.serviceURL = fileCfg.Solve.URL
		case fileCfg.Request != nil:
			c.variant = "request"
			c.serviceURL = fileCfg.Request.URL
		case fileCfg.Package != nil:
			c.variant = "package"
			c.serviceURL = fileCfg.Package.URL
		}
	}

	if (c.timeouts == types.TimeoutConfig{}) {
		c.timeouts = fileCfg.Timeouts.Bounds()
	}
	if (c.defaults == types.RunConfiguration{}) {
		c.defaults = fileCfg.Defaults
	}

	if c.cache == nil && fileCfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisOptions{
			URL: fileCfg.Cache.URL,
			TTL: fileCfg.Cache.GetTTL(),
		})
		if err != nil {
			return err
		}
		c.cache = redisCache
	}

	if c.registry == nil && fileCfg.Registry.Enabled {
		reg, err := registry.NewClient(registry.Config{
			Endpoints: fileCfg.Registry.Endpoints,
			Namespace: fileCfg.Registry.Namespace,
			TTL:       fileCfg.Registry.TTL,
		})
		if err != nil {
			return err
		}
		c.registry = reg
	}

	return nil
}
