package service

import "github.com/pddlkit/sdk/types"

// PlannerMetadata describes the run about to start. It is delivered to
// observers through Callbacks.ProvidePlannerOptions before any network
// traffic; it carries no control-flow significance.
type PlannerMetadata struct {
	// ServiceName is the dialect name ("solve", "request", "package").
	ServiceName string

	// URL is the endpoint the request will be posted to.
	URL string

	// RequestID identifies this invocation.
	RequestID string

	// PlanFormat is the plan encoding that will be requested.
	PlanFormat types.PlanFormat
}

// Callbacks is the caller-supplied response handling interface.
// All human-visible output of a planning run reaches the caller through
// these three methods, in the order events occur.
type Callbacks interface {
	// HandleOutput delivers service-side log text and client
	// announcements. May be called several times per run; the async
	// dialect may redeliver cumulative output across polls.
	HandleOutput(text string)

	// HandlePlan delivers one completed plan. Each completed plan is
	// delivered exactly once per planning invocation.
	HandlePlan(plan *types.Plan)

	// ProvidePlannerOptions notifies observers that planning has started.
	ProvidePlannerOptions(meta PlannerMetadata)
}

// NopCallbacks discards everything. Useful for callers that only want the
// returned plan list.
type NopCallbacks struct{}

func (NopCallbacks) HandleOutput(string) {}

func (NopCallbacks) HandlePlan(*types.Plan) {}

func (NopCallbacks) ProvidePlannerOptions(PlannerMetadata) {}
