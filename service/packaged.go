package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/types"
)

// DefaultPollDelay is the pause between callback-URL polls of the packaged
// dialect.
const DefaultPollDelay = 500 * time.Millisecond

// Sleeper injects the inter-poll delay so tests can run the poll loop
// without wall-clock waits.
type Sleeper interface {
	// Sleep pauses for d or until the context is done, returning the
	// context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type clockSleeper struct{}

func (clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// packagedResult is the structured form of the packaged dialect's result
// field. Output is either a plain log string or a mapping of plan-buffer
// names to plan text, depending on the backend.
type packagedResult struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
	Stdout string          `json:"stdout,omitempty"`
	Stderr string          `json:"stderr,omitempty"`
	Plan   []jsonStep      `json:"plan,omitempty"`
}

// PackageVariant is the packaged/preview dialect: the submit POST answers
// with a callback URL which is polled with GET until a terminal status
// appears. This is the only dialect that performs multi-round-trip polling
// on its own; the loop is bounded solely by the caller's transport timeout.
type PackageVariant struct {
	url     string
	delay   time.Duration
	sleeper Sleeper
}

// PackageOption configures a PackageVariant.
type PackageOption func(*PackageVariant)

// WithSleeper replaces the wall-clock sleeper used between polls.
func WithSleeper(s Sleeper) PackageOption {
	return func(v *PackageVariant) {
		v.sleeper = s
	}
}

// WithPollDelay overrides the pause between polls.
func WithPollDelay(d time.Duration) PackageOption {
	return func(v *PackageVariant) {
		v.delay = d
	}
}

// NewPackageVariant creates the packaged dialect against the given base URL.
// The solver package itself is selected per request through
// RunConfiguration.PackageName.
func NewPackageVariant(baseURL string, opts ...PackageOption) *PackageVariant {
	v := &PackageVariant{
		url:     baseURL,
		delay:   DefaultPollDelay,
		sleeper: clockSleeper{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name implements Variant.
func (v *PackageVariant) Name() string { return "package" }

// CreateURL implements Variant.
func (v *PackageVariant) CreateURL(req *types.PlanningRequest) (string, error) {
	if v.url == "" {
		return "", planerr.New(v.Name(), "create-url", planerr.ErrCodeContractViolation,
			"no service URL configured")
	}
	pkg := req.Configuration.PackageName
	if pkg == "" {
		return v.url, nil
	}
	return strings.TrimSuffix(v.url, "/") + "/package/" + pkg + "/solve", nil
}

// CreateRequestBody implements Variant. Without a configured package there
// is nothing to solve with; returning nil makes the core skip the network
// call and return an empty plan list.
func (v *PackageVariant) CreateRequestBody(req *types.PlanningRequest) (any, error) {
	if req.Configuration.PackageName == "" {
		return nil, nil
	}
	return map[string]string{
		"domain":  req.DomainText,
		"problem": req.ProblemText,
	}, nil
}

// pollOutcome tells the poll loop what to do after one reconciliation.
type pollOutcome struct {
	// done reports a terminal result; plans holds it.
	done  bool
	plans []*types.Plan

	// delayed requests the inter-poll pause before the next GET.
	delayed bool
}

// ProcessResponseBody implements Variant. It reconciles the submit response
// and then polls the server-supplied callback URL until a terminal status,
// pausing between PENDING polls. Partial output is emitted as soon as it
// appears; HandlePlan fires only on a terminal result.
func (v *PackageVariant) ProcessResponseBody(ctx context.Context, call *Call, body json.RawMessage) ([]*types.Plan, error) {
	pollURL := call.URL

	for {
		outcome, err := v.reconcile(call, body, &pollURL)
		if err != nil {
			return nil, err
		}
		if outcome.done {
			return outcome.plans, nil
		}

		if outcome.delayed {
			if err := v.sleeper.Sleep(ctx, v.delay); err != nil {
				return nil, planerr.New(v.Name(), "poll", planerr.ErrCodeTransport,
					"polling aborted").WithCause(err)
			}
		}

		call.recordPoll(ctx, v.Name())
		body, err = call.HTTP.GetJSON(ctx, pollURL, call.requestOptions(v.Name()))
		if err != nil {
			return nil, err
		}
	}
}

// reconcile classifies one response body. On a non-terminal classification
// it updates pollURL for the next GET.
func (v *PackageVariant) reconcile(call *Call, body json.RawMessage, pollURL *string) (pollOutcome, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			"failed to decode response").WithCause(err)
	}

	statusRaw, hasStatus := raw["status"]
	status, statusIsString := decodeString(statusRaw)
	if hasStatus && !statusIsString {
		return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			fmt.Sprintf("status field is not a string: %s", string(statusRaw)))
	}
	topError, _ := decodeString(raw["Error"])

	resultRaw, hasResult := raw["result"]
	resultURL, resultIsString := decodeString(resultRaw)

	var result *packagedResult
	if hasResult && !resultIsString {
		var structured packagedResult
		if err := json.Unmarshal(resultRaw, &structured); err == nil {
			result = &structured
		}
	}

	// Partial output must never be lost, even while still pending.
	if result != nil {
		v.emitProgress(call, result)
	}

	switch {
	case status == "PENDING":
		if resultIsString && resultURL != "" {
			resolved, err := v.resolveCallback(call.URL, resultURL)
			if err != nil {
				return pollOutcome{}, err
			}
			*pollURL = resolved
		}
		return pollOutcome{delayed: true}, nil

	case status == "error" || topError != "":
		if result != nil {
			if result.Error != "" {
				call.Callbacks.HandleOutput(result.Error)
			}
			return pollOutcome{done: true, plans: []*types.Plan{}}, nil
		}
		if topError != "" {
			return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeServiceFailed, topError)
		}
		return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			fmt.Sprintf("service reported an error without detail: %s", string(body)))

	case !hasStatus:
		if resultIsString {
			resolved, err := v.resolveCallback(call.URL, resultURL)
			if err != nil {
				return pollOutcome{}, err
			}
			*pollURL = resolved
			return pollOutcome{}, nil
		}
		if !hasResult {
			plans, err := v.scanBarePlanKeys(call, raw)
			if err != nil {
				return pollOutcome{}, err
			}
			return pollOutcome{done: true, plans: plans}, nil
		}
		return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			"result field is neither a callback URL nor absent")

	case status == "ok" && result != nil:
		plans, err := v.extractPlans(call, result)
		if err != nil {
			return pollOutcome{}, err
		}
		return pollOutcome{done: true, plans: plans}, nil

	default:
		return pollOutcome{}, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			fmt.Sprintf("unexpected response status %q", status))
	}
}

// emitProgress forwards whatever service-side output the structured result
// carries, regardless of status.
func (v *PackageVariant) emitProgress(call *Call, result *packagedResult) {
	if text, ok := decodeString(result.Output); ok && text != "" {
		call.Callbacks.HandleOutput(text)
	}
	if result.Stdout != "" {
		call.Callbacks.HandleOutput(result.Stdout)
	}
	if result.Stderr != "" {
		call.Callbacks.HandleOutput(result.Stderr)
	}
}

// extractPlans handles the terminal "ok" shape: plan buffers live either in
// a structured step array under result.plan or keyed plan texts under the
// result.output mapping.
func (v *PackageVariant) extractPlans(call *Call, result *packagedResult) ([]*types.Plan, error) {
	scale := call.Request.Configuration.PlanTimeUnit.FactorOr(1)

	if len(result.Plan) > 0 {
		appendJSONSteps(call.Parser, result.Plan, scale)
		if err := call.Parser.OnPlanFinished(); err != nil {
			return nil, err
		}
	}

	var outputs map[string]string
	if len(result.Output) > 0 {
		// Only a mapping holds plan buffers; a plain string was already
		// emitted as progress output.
		_ = json.Unmarshal(result.Output, &outputs)
	}
	for _, key := range sortedKeys(outputs) {
		if err := finalizePlanContent(v.Name(), call.Parser, types.FormatTasks, outputs[key], scale); err != nil {
			return nil, err
		}
	}

	plans := call.Parser.Plans()
	if len(plans) > 0 {
		call.Callbacks.HandlePlan(plans[0])
	} else {
		call.Callbacks.HandleOutput("No plan found.")
	}
	return plans, nil
}

// scanBarePlanKeys handles the legacy no-envelope shape: any top-level key
// containing "plan" holds raw plan text.
func (v *PackageVariant) scanBarePlanKeys(call *Call, raw map[string]json.RawMessage) ([]*types.Plan, error) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if strings.Contains(strings.ToLower(key), "plan") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		content, ok := decodeString(raw[key])
		if !ok || content == "" {
			continue
		}
		if err := finalizePlanContent(v.Name(), call.Parser, types.FormatTasks, content, 1); err != nil {
			return nil, err
		}
	}

	return call.Parser.Plans(), nil
}

// resolveCallback resolves a server-supplied callback URL, absolute or
// relative, against the originating request URL.
func (v *PackageVariant) resolveCallback(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", planerr.New(v.Name(), "poll", planerr.ErrCodeContractViolation,
			fmt.Sprintf("invalid request URL %q", base)).WithCause(err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", planerr.New(v.Name(), "poll", planerr.ErrCodeContractViolation,
			fmt.Sprintf("invalid callback URL %q", ref)).WithCause(err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// decodeString decodes a raw JSON value as a string, reporting whether it
// was one.
func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
