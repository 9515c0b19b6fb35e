package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pddlkit/sdk/parser"
	"github.com/pddlkit/sdk/types"
)

// Variant is the dialect-specific half of a planning service: it knows how
// to build the request and how to reconcile the response. Implementations
// must be stateless; all per-invocation state lives on the Call the core
// passes in.
type Variant interface {
	// Name returns the dialect name used in errors and metadata.
	Name() string

	// CreateRequestBody builds the dialect request body. Returning a nil
	// body with a nil error means there is nothing to send; the core then
	// returns an empty plan list without any network call.
	CreateRequestBody(req *types.PlanningRequest) (any, error)

	// CreateURL returns the endpoint for this request.
	CreateURL(req *types.PlanningRequest) (string, error)

	// ProcessResponseBody reconciles one decoded response body into
	// plans, using the call for parser, callbacks, and follow-up polls.
	ProcessResponseBody(ctx context.Context, call *Call, body json.RawMessage) ([]*types.Plan, error)
}

// Call is the per-invocation state shared between the core and a variant's
// reconciler. A fresh Call is created for every Plan invocation; nothing on
// it is reused across concurrent requests.
type Call struct {
	// Request is the planning request being served.
	Request *types.PlanningRequest

	// URL is the originating request URL. Relative callback URLs from
	// the packaged dialect resolve against it.
	URL string

	// Parser accumulates plan content for this invocation.
	Parser parser.PlanParser

	// Callbacks receives all caller-visible output.
	Callbacks Callbacks

	// HTTP issues follow-up polls for dialects that need them.
	HTTP *JSONClient

	// Timeout is the wire timeout applied to each round-trip.
	Timeout time.Duration

	// Logger records diagnostics. Never a substitute for Callbacks.
	Logger *slog.Logger

	tel *telemetry
}

// recordPoll counts one follow-up poll for the dialect's metrics.
func (c *Call) recordPoll(ctx context.Context, service string) {
	if c.tel != nil {
		c.tel.recordPoll(ctx, service)
	}
}

// requestOptions builds the HTTP options for this call's round-trips.
func (c *Call) requestOptions(friendlyName string) RequestOptions {
	opts := RequestOptions{
		Timeout:       c.Timeout,
		FriendlyName:  friendlyName,
		Authenticated: c.Request.Configuration.Authenticated(),
		Headers:       map[string]string{},
	}
	if token := c.Request.Configuration.AuthenticationToken; token != "" {
		opts.Headers["Authorization"] = "Bearer " + token
	}
	return opts
}

// Service orchestrates planning requests against one configured dialect.
// Safe for concurrent use; every Plan call gets its own Call state.
type Service struct {
	variant  Variant
	http     *JSONClient
	logger   *slog.Logger
	timeouts types.TimeoutConfig
	tel      *telemetry
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHTTPClient sets the underlying http.Client used for all round-trips.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.http = NewJSONClient(client, s.logger)
	}
}

// WithTimeouts sets the timeout bounds applied to run configurations.
func WithTimeouts(cfg types.TimeoutConfig) Option {
	return func(s *Service) {
		s.timeouts = cfg
	}
}

// New creates a planning service for the given dialect variant.
func New(variant Variant, opts ...Option) *Service {
	s := &Service{
		variant: variant,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = NewJSONClient(nil, s.logger)
	}
	s.tel = newTelemetry()
	return s
}

// Plan runs one planning request end-to-end: announce, build, post, and
// reconcile. It returns the completed plans, possibly empty for reported
// failures, or a fatal error; never both.
func (s *Service) Plan(ctx context.Context, req *types.PlanningRequest, planParser parser.PlanParser, callbacks Callbacks) ([]*types.Plan, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if planParser == nil {
		planParser = parser.NewAccumulator(parser.Options{})
	}
	if callbacks == nil {
		callbacks = NopCallbacks{}
	}

	ctx, span := s.tel.startPlanSpan(ctx, s.variant.Name(), req.RequestID)
	defer span.End()

	url, err := s.variant.CreateURL(req)
	if err != nil {
		return nil, err
	}

	// Announce before any network traffic. Side effects only.
	callbacks.HandleOutput(fmt.Sprintf("Planning domain %q, problem %q via %s service...\n",
		req.DomainName, req.ProblemName, s.variant.Name()))
	callbacks.ProvidePlannerOptions(PlannerMetadata{
		ServiceName: s.variant.Name(),
		URL:         url,
		RequestID:   req.RequestID,
		PlanFormat:  req.Configuration.EffectiveFormat(),
	})

	body, err := s.variant.CreateRequestBody(req)
	if err != nil {
		return nil, err
	}
	if body == nil {
		// Nothing to send for this configuration. Not an error.
		s.logger.Debug("no request to send", "service", s.variant.Name(), "requestId", req.RequestID)
		return []*types.Plan{}, nil
	}

	budget := s.timeouts.Resolve(req.Configuration.Timeout)
	call := &Call{
		Request:   req,
		URL:       url,
		Parser:    planParser,
		Callbacks: callbacks,
		HTTP:      s.http,
		Timeout:   types.WireTimeout(budget),
		Logger:    s.logger,
		tel:       s.tel,
	}

	s.tel.recordRequest(ctx, s.variant.Name())

	raw, err := s.http.PostJSON(ctx, url, body, call.requestOptions(s.variant.Name()))
	if err != nil {
		s.tel.recordError(ctx, s.variant.Name(), err)
		return nil, err
	}

	plans, err := s.variant.ProcessResponseBody(ctx, call, raw)
	if err != nil {
		s.tel.recordError(ctx, s.variant.Name(), err)
		return nil, err
	}

	s.tel.recordPlans(ctx, s.variant.Name(), len(plans))
	return plans, nil
}
