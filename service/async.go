package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pddlkit/sdk/parser"
	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/types"
)

// Status vocabulary of the asynchronous /request dialect.
const (
	asyncNotInitialized      = "NOT_INITIALIZED"
	asyncInitiating          = "INITIATING"
	asyncSearchingInitial    = "SEARCHING_INITIAL_PLAN"
	asyncSearchingBetterPlan = "SEARCHING_BETTER_PLAN"
	asyncStopped             = "STOPPED"
	asyncFailed              = "FAILED"
)

// requestResponse is the /request dialect's envelope. The service is an
// anytime planner: plans holds every plan completed so far, resent in full
// on each poll.
type requestResponse struct {
	Status requestStatus      `json:"status"`
	Plans  []requestPlanEntry `json:"plans"`
	Output string             `json:"output"`

	// TimeUnit is the unit of step times in this response. This dialect
	// historically defaults to hours when absent.
	TimeUnit types.TimeUnit `json:"timeUnit,omitempty"`
}

type requestStatus struct {
	Status string              `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Error  *requestStatusError `json:"error,omitempty"`
}

type requestStatusError struct {
	Message string `json:"message"`
}

type requestPlanEntry struct {
	Content         string   `json:"content"`
	MetricValue     *float64 `json:"metricValue,omitempty"`
	StatesEvaluated *int     `json:"statesEvaluated,omitempty"`
	Makespan        *float64 `json:"makespan,omitempty"`
}

func (e requestPlanEntry) metaData() (types.PlanMetaData, bool) {
	var meta types.PlanMetaData
	has := false
	if e.MetricValue != nil {
		meta.MetricValue = *e.MetricValue
		has = true
	}
	if e.StatesEvaluated != nil {
		meta.StatesEvaluated = *e.StatesEvaluated
		has = true
	}
	if e.Makespan != nil {
		meta.Makespan = *e.Makespan
		has = true
	}
	return meta, has
}

// RequestVariant is the asynchronous /request dialect. The core issues one
// POST per Plan invocation; whether to poll again on a non-terminal answer
// is the caller's decision. Callers that poll keep their own
// AsyncReconciler so already-delivered plans are not re-emitted.
type RequestVariant struct {
	url string
}

// NewRequestVariant creates the asynchronous dialect against the given
// endpoint.
func NewRequestVariant(url string) *RequestVariant {
	return &RequestVariant{url: url}
}

// Name implements Variant.
func (v *RequestVariant) Name() string { return "request" }

// CreateURL implements Variant.
func (v *RequestVariant) CreateURL(_ *types.PlanningRequest) (string, error) {
	if v.url == "" {
		return "", planerr.New(v.Name(), "create-url", planerr.ErrCodeContractViolation,
			"no service URL configured")
	}
	return v.url, nil
}

// CreateRequestBody implements Variant.
func (v *RequestVariant) CreateRequestBody(req *types.PlanningRequest) (any, error) {
	cfg := req.Configuration

	configuration := map[string]any{
		"timeout":    float64(cfg.Timeout),
		"planFormat": string(cfg.EffectiveFormat()),
	}
	if cfg.RequestOptions != "" {
		configuration["options"] = cfg.RequestOptions
	}
	if cfg.SearchDebugger.Enabled {
		configuration["searchDebugger"] = cfg.SearchDebugger
	}

	return map[string]any{
		"domain": map[string]string{
			"name": req.DomainName,
			"pddl": req.DomainText,
		},
		"problem": map[string]string{
			"name": req.ProblemName,
			"pddl": req.ProblemText,
		},
		"configuration": configuration,
	}, nil
}

// ProcessResponseBody implements Variant with a reconciler scoped to this
// single response.
func (v *RequestVariant) ProcessResponseBody(ctx context.Context, call *Call, body json.RawMessage) ([]*types.Plan, error) {
	return NewAsyncReconciler().Process(ctx, call, body)
}

// AsyncReconciler interprets successive /request responses within one
// planning session. It tracks which completed plans have already been
// delivered so the service's resend-everything behavior never produces
// duplicate HandlePlan calls. Not safe for concurrent use; create one per
// session.
type AsyncReconciler struct {
	// lastPlanPrinted is the index of the last plan delivered to the
	// caller, -1 before any delivery. Never decremented.
	lastPlanPrinted int

	// entriesIngested is the number of leading response entries already
	// fed to the parser. Entry indexes and parser plan indexes diverge
	// as soon as one entry yields no steps, so the two are tracked
	// separately.
	entriesIngested int
}

// NewAsyncReconciler creates a reconciler with an empty delivery cursor.
func NewAsyncReconciler() *AsyncReconciler {
	return &AsyncReconciler{lastPlanPrinted: -1}
}

// Process reconciles one response body.
//
// Response output is emitted as received on every call; the service treats
// it as a cumulative log, so repeated text across polls is possible and
// accepted. Plans the service resends are parsed again but only plans
// beyond the delivery cursor reach HandlePlan.
func (r *AsyncReconciler) Process(_ context.Context, call *Call, body json.RawMessage) ([]*types.Plan, error) {
	const serviceName = "request"

	var resp requestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, planerr.New(serviceName, "process-response", planerr.ErrCodeContractViolation,
			"failed to decode response").WithCause(err)
	}

	if resp.Output != "" {
		call.Callbacks.HandleOutput(resp.Output)
	}

	switch resp.Status.Status {
	case asyncStopped, asyncSearchingBetterPlan:
		if resp.Status.Reason == "TIMEOUT" {
			call.Logger.Debug("planning service stopped on its own timeout",
				"requestId", call.Request.RequestID)
		}

		if len(resp.Plans) > 0 {
			if err := r.ingestPlans(call, resp); err != nil {
				return nil, err
			}
			r.emitNew(call)
		}

		plans := call.Parser.Plans()
		if len(plans) == 0 {
			call.Callbacks.HandleOutput("No plan found.")
		}
		return plans, nil

	case asyncFailed:
		message := "planning failed"
		if resp.Status.Error != nil && resp.Status.Error.Message != "" {
			message = resp.Status.Error.Message
		}
		return nil, planerr.New(serviceName, "process-response", planerr.ErrCodeServiceFailed, message)

	case asyncNotInitialized, asyncInitiating, asyncSearchingInitial:
		return nil, planerr.New(serviceName, "process-response", planerr.ErrCodeTimeout,
			fmt.Sprintf("planning timed out while the service was still initializing (status %s)", resp.Status.Status))

	default:
		return nil, planerr.New(serviceName, "process-response", planerr.ErrCodeContractViolation,
			fmt.Sprintf("unexpected response status %q", resp.Status.Status))
	}
}

// ingestPlans normalizes every plan entry and feeds the call's parser.
// Entries are converted concurrently; the converted plans are appended and
// sealed strictly in the response's index order so delivery order and the
// cursor stay deterministic.
func (r *AsyncReconciler) ingestPlans(call *Call, resp requestResponse) error {
	const serviceName = "request"

	unit := resp.TimeUnit
	if unit == "" {
		unit = call.Request.Configuration.PlanTimeUnit
	}
	// This dialect's historical default unit is hours.
	scale := unit.FactorOr(3600)

	format := call.Request.Configuration.EffectiveFormat()
	eps := call.Parser.Epsilon()

	converted := make([][]types.PlanStep, len(resp.Plans))
	errs := make([]error, len(resp.Plans))

	var wg sync.WaitGroup
	for i, entry := range resp.Plans {
		// The service resends every completed plan on each poll; leading
		// entries ingested in an earlier response are skipped outright.
		if i < r.entriesIngested {
			continue
		}
		wg.Add(1)
		go func(i int, entry requestPlanEntry) {
			defer wg.Done()
			converted[i], errs[i] = convertPlanEntry(serviceName, entry.Content, format, scale, eps)
		}(i, entry)
	}
	wg.Wait()

	for i, entry := range resp.Plans {
		if i < r.entriesIngested {
			continue
		}
		if errs[i] != nil {
			return errs[i]
		}
		for _, step := range converted[i] {
			call.Parser.AppendStep(step)
		}
		if meta, ok := entry.metaData(); ok {
			call.Parser.SetPlanMetaData(meta)
		}
		if err := call.Parser.OnPlanFinished(); err != nil {
			return err
		}
		r.entriesIngested = i + 1
	}

	return nil
}

// emitNew delivers every completed plan past the cursor, in index order,
// and advances the cursor.
func (r *AsyncReconciler) emitNew(call *Call) {
	plans := call.Parser.Plans()
	for i := r.lastPlanPrinted + 1; i < len(plans); i++ {
		call.Callbacks.HandlePlan(plans[i])
		r.lastPlanPrinted = i
	}
}

// convertPlanEntry turns one plan buffer into ordered steps using a scratch
// accumulator, so conversions can run concurrently without touching the
// shared parser.
func convertPlanEntry(serviceName, content string, format types.PlanFormat, scale, epsilon float64) ([]types.PlanStep, error) {
	if content == "" {
		return nil, nil
	}

	scratch := parser.NewAccumulator(parser.Options{Epsilon: epsilon})
	if err := finalizePlanContent(serviceName, scratch, format, content, scale); err != nil {
		return nil, err
	}

	plans := scratch.Plans()
	if len(plans) == 0 {
		return nil, nil
	}
	return plans[len(plans)-1].Steps, nil
}
