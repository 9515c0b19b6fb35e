package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/types"
)

// solveResponse is the /solve dialect's envelope.
type solveResponse struct {
	Status string       `json:"status"`
	Result *solveResult `json:"result,omitempty"`
}

type solveResult struct {
	Output string     `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
	Plan   []jsonStep `json:"plan,omitempty"`
	Stdout string     `json:"stdout,omitempty"`
	Stderr string     `json:"stderr,omitempty"`
}

// SolveVariant is the synchronous /solve dialect: one POST, the whole result
// in the single response, no polling.
type SolveVariant struct {
	url string
}

// NewSolveVariant creates the synchronous dialect against the given endpoint.
func NewSolveVariant(url string) *SolveVariant {
	return &SolveVariant{url: url}
}

// Name implements Variant.
func (v *SolveVariant) Name() string { return "solve" }

// CreateURL implements Variant.
func (v *SolveVariant) CreateURL(_ *types.PlanningRequest) (string, error) {
	if v.url == "" {
		return "", planerr.New(v.Name(), "create-url", planerr.ErrCodeContractViolation,
			"no service URL configured")
	}
	return v.url, nil
}

// CreateRequestBody implements Variant. The /solve dialect takes the two
// PDDL documents verbatim.
func (v *SolveVariant) CreateRequestBody(req *types.PlanningRequest) (any, error) {
	return map[string]string{
		"domain":  req.DomainText,
		"problem": req.ProblemText,
	}, nil
}

// ProcessResponseBody implements Variant.
//
// A "status":"error" response is a reported failure: its output and error
// text go to HandleOutput and an empty plan list is returned. A
// "status":"ok" response with a result yields the result's plan, if any.
// Captured stdout and stderr are forwarded as output in either case.
// Everything else is a contract violation.
func (v *SolveVariant) ProcessResponseBody(_ context.Context, call *Call, body json.RawMessage) ([]*types.Plan, error) {
	var resp solveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			"failed to decode response").WithCause(err)
	}

	switch {
	case resp.Status == "error":
		if resp.Result != nil {
			if resp.Result.Output != "" {
				call.Callbacks.HandleOutput(resp.Result.Output)
			}
			if resp.Result.Error != "" {
				call.Callbacks.HandleOutput(resp.Result.Error)
			}
			emitSolveStreams(call, resp.Result)
		}
		return []*types.Plan{}, nil

	case resp.Status == "ok" && resp.Result != nil:
		if resp.Result.Output != "" {
			call.Callbacks.HandleOutput(resp.Result.Output)
		}
		emitSolveStreams(call, resp.Result)

		if len(resp.Result.Plan) > 0 {
			scale := call.Request.Configuration.PlanTimeUnit.FactorOr(1)
			appendJSONSteps(call.Parser, resp.Result.Plan, scale)
			if err := call.Parser.OnPlanFinished(); err != nil {
				return nil, err
			}
		}

		plans := call.Parser.Plans()
		if len(plans) == 0 {
			call.Callbacks.HandleOutput("No plan found.")
		}
		return plans, nil

	default:
		return nil, planerr.New(v.Name(), "process-response", planerr.ErrCodeContractViolation,
			fmt.Sprintf("unexpected response status %q", resp.Status))
	}
}

// emitSolveStreams forwards the planner's captured stdout and stderr.
func emitSolveStreams(call *Call, result *solveResult) {
	if result.Stdout != "" {
		call.Callbacks.HandleOutput(result.Stdout)
	}
	if result.Stderr != "" {
		call.Callbacks.HandleOutput(result.Stderr)
	}
}
