package sdk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pddlkit/sdk/cache"
	"github.com/pddlkit/sdk/config"
	"github.com/pddlkit/sdk/parser"
	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/service"
	"github.com/pddlkit/sdk/types"
)

// Document is one PDDL document: a domain or a problem.
type Document struct {
	Name string
	Text string
}

// Client is a configured connection to one planning-service dialect.
// Safe for concurrent use; every Plan call runs on its own state.
type Client struct {
	cfg    clientConfig
	svc    *service.Service
	logger *slog.Logger
}

// NewClient creates a planning client.
//
// Example:
//
//	client, err := sdk.NewClient(
//	    sdk.WithRequestService("https://paas.example.com/request"),
//	    sdk.WithDefaults(types.RunConfiguration{Timeout: 30}),
//	)
func NewClient(opts ...ClientOption) (*Client, error) {
	var cfg clientConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.configPath != "" {
		fileCfg, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := cfg.applyFile(fileCfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.cache == nil {
		cfg.cache = cache.Nop{}
	}

	if cfg.serviceURL == "" && cfg.registry == nil {
		return nil, ErrNoServiceConfigured
	}
	if cfg.registry != nil && cfg.variant == "" {
		return nil, fmt.Errorf("%w: registry mode needs a dialect; use WithSolveService, WithRequestService, or WithPackageService", ErrInvalidConfig)
	}
	if err := cfg.timeouts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := &Client{cfg: cfg, logger: cfg.logger}

	// With a static URL the variant and service are fixed up front; in
	// registry mode they are rebuilt per call from the resolved endpoint.
	if cfg.registry == nil {
		svc, err := c.buildService(cfg.serviceURL)
		if err != nil {
			return nil, err
		}
		c.svc = svc
	}

	return c, nil
}

// buildService assembles the dialect variant and service core for a URL.
func (c *Client) buildService(url string) (*service.Service, error) {
	var variant service.Variant
	switch c.cfg.variant {
	case "solve":
		variant = service.NewSolveVariant(url)
	case "request":
		variant = service.NewRequestVariant(url)
	case "package":
		var pkgOpts []service.PackageOption
		if c.cfg.pollDelay > 0 {
			pkgOpts = append(pkgOpts, service.WithPollDelay(c.cfg.pollDelay))
		}
		if c.cfg.sleeper != nil {
			pkgOpts = append(pkgOpts, service.WithSleeper(c.cfg.sleeper))
		}
		variant = service.NewPackageVariant(url, pkgOpts...)
	default:
		return nil, fmt.Errorf("%w: unknown dialect %q", ErrInvalidConfig, c.cfg.variant)
	}

	svcOpts := []service.Option{
		service.WithLogger(c.logger),
		service.WithTimeouts(c.cfg.timeouts),
	}
	if c.cfg.httpClient != nil {
		svcOpts = append(svcOpts, service.WithHTTPClient(c.cfg.httpClient))
	}

	return service.New(variant, svcOpts...), nil
}

// Plan submits one domain/problem pair and returns the completed plans.
//
// A nil run configuration uses the client defaults; a partial one is filled
// from the defaults field by field. A nil callbacks discards output; a nil
// parser gets a fresh accumulator. Cached results, when a cache is
// installed, are replayed through HandlePlan without a network call.
func (c *Client) Plan(ctx context.Context, domain, problem Document, runCfg *types.RunConfiguration, callbacks service.Callbacks) ([]*types.Plan, error) {
	return c.PlanWithParser(ctx, domain, problem, runCfg, parser.NewAccumulator(parser.Options{}), callbacks)
}

// PlanWithParser is Plan with a caller-supplied plan parser, for callers
// that need a custom epsilon or want to inspect raw plan lines.
func (c *Client) PlanWithParser(ctx context.Context, domain, problem Document, runCfg *types.RunConfiguration, planParser parser.PlanParser, callbacks service.Callbacks) ([]*types.Plan, error) {
	if callbacks == nil {
		callbacks = service.NopCallbacks{}
	}

	cfg := c.mergeConfig(runCfg)

	svc := c.svc
	url := c.cfg.serviceURL
	if c.cfg.registry != nil {
		endpoint, err := c.cfg.registry.Resolve(ctx, c.cfg.variant, c.cfg.planner)
		if err != nil {
			return nil, planerr.New(c.cfg.variant, "resolve", planerr.ErrCodeTransport,
				fmt.Sprintf("failed to resolve planner %q", c.cfg.planner)).WithCause(err)
		}
		url = endpoint.URL
		svc, err = c.buildService(url)
		if err != nil {
			return nil, err
		}
	}

	cacheKey := cache.Key(url, domain.Text, problem.Text, cfg.EffectiveFormat())
	if plans, ok, err := c.cfg.cache.Get(ctx, cacheKey); err != nil {
		c.logger.Warn("plan cache read failed", "error", err)
	} else if ok {
		c.logger.Debug("plan cache hit", "key", cacheKey)
		for _, plan := range plans {
			callbacks.HandlePlan(plan)
		}
		return plans, nil
	}

	req := &types.PlanningRequest{
		RequestID:     uuid.NewString(),
		DomainName:    domain.Name,
		DomainText:    domain.Text,
		ProblemName:   problem.Name,
		ProblemText:   problem.Text,
		Configuration: cfg,
	}

	plans, err := svc.Plan(ctx, req, planParser, callbacks)
	if err != nil {
		return nil, err
	}

	// An empty result can mean the request never reached a terminal state
	// (a still-searching async poll, a reported failure) and must not be
	// replayed on later calls.
	if len(plans) > 0 {
		if err := c.cfg.cache.Put(ctx, cacheKey, plans); err != nil {
			c.logger.Warn("plan cache write failed", "error", err)
		}
	}

	if c.cfg.validator != nil {
		report := c.cfg.validator.Validate(plans)
		for _, warning := range report.Warnings {
			c.logger.Warn("plan validation warning", "requestId", req.RequestID, "warning", warning)
		}
		c.logger.Debug("plan validation", "requestId", req.RequestID, "quality", report.Quality)
	}

	return plans, nil
}

// Close releases the client's cache and registry connections, if any.
func (c *Client) Close() error {
	var firstErr error
	if err := c.cfg.cache.Close(); err != nil {
		firstErr = err
	}
	if c.cfg.registry != nil {
		if err := c.cfg.registry.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mergeConfig fills a caller configuration from the client defaults.
func (c *Client) mergeConfig(override *types.RunConfiguration) types.RunConfiguration {
	cfg := c.cfg.defaults
	if override == nil {
		return cfg
	}

	merged := *override
	if merged.AuthenticationToken == "" {
		merged.AuthenticationToken = cfg.AuthenticationToken
	}
	if merged.RequestOptions == "" {
		merged.RequestOptions = cfg.RequestOptions
	}
	if merged.Timeout == 0 {
		merged.Timeout = cfg.Timeout
	}
	if merged.PlanFormat == "" {
		merged.PlanFormat = cfg.PlanFormat
	}
	if merged.PlanTimeUnit == "" {
		merged.PlanTimeUnit = cfg.PlanTimeUnit
	}
	if merged.PackageName == "" {
		merged.PackageName = cfg.PackageName
	}
	if !merged.SearchDebugger.Enabled {
		merged.SearchDebugger = cfg.SearchDebugger
	}
	return merged
}
