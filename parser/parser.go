package parser

import (
	"github.com/pddlkit/sdk/types"
)

// DefaultEpsilon is the minimum step separation assumed when a service
// reports steps without explicit timestamps.
const DefaultEpsilon = 0.001

// PlanParser is the collaborator the service reconcilers feed plan content
// into. Implementations accumulate steps across one or more append calls,
// seal the current buffer on OnPlanFinished, and report sealed plans via
// Plans.
type PlanParser interface {
	// AppendStep adds one structured step to the plan being accumulated.
	AppendStep(step types.PlanStep)

	// AppendLine adds one pre-formatted step line. Unparseable lines are
	// retained as raw output but produce no step.
	AppendLine(line string)

	// AppendXplan decodes an xplan XML document and appends its steps.
	// The decode completes before AppendXplan returns, so a following
	// OnPlanFinished never seals a partially converted plan.
	AppendXplan(xplan string) error

	// OnPlanFinished seals the accumulated steps into a plan. A finish
	// with no accumulated steps is a no-op.
	OnPlanFinished() error

	// Plans returns all plans sealed so far, in the order finished.
	Plans() []*types.Plan

	// SetPlanMetaData attaches metadata to the plan currently being
	// accumulated; it is recorded on the next sealed plan.
	SetPlanMetaData(meta types.PlanMetaData)

	// Epsilon returns the minimum step separation used to synthesize
	// timestamps for steps that have none.
	Epsilon() float64
}

// Options configures an Accumulator.
type Options struct {
	// Epsilon is the minimum step separation. Zero means DefaultEpsilon.
	Epsilon float64
}

// Accumulator is the default PlanParser implementation.
// It is not safe for concurrent use; create one per planning invocation.
type Accumulator struct {
	epsilon float64

	steps   []types.PlanStep
	meta    types.PlanMetaData
	hasMeta bool

	rawLines []string

	plans []*types.Plan
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(opts Options) *Accumulator {
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return &Accumulator{epsilon: eps}
}

// Epsilon returns the configured minimum step separation.
func (a *Accumulator) Epsilon() float64 {
	return a.epsilon
}

// AppendStep adds one structured step, assigning the next order index.
func (a *Accumulator) AppendStep(step types.PlanStep) {
	step.OrderIndex = len(a.steps)
	a.steps = append(a.steps, step)
}

// SetPlanMetaData records metadata for the plan currently being accumulated.
func (a *Accumulator) SetPlanMetaData(meta types.PlanMetaData) {
	a.meta = meta
	a.hasMeta = true
}

// OnPlanFinished seals the accumulated steps into a plan and resets the
// buffer. Raw lines that produced no step are discarded with the buffer.
func (a *Accumulator) OnPlanFinished() error {
	if len(a.steps) == 0 {
		a.reset()
		return nil
	}

	plan := &types.Plan{Steps: a.steps}
	if a.hasMeta {
		plan.Meta = a.meta
	}
	a.plans = append(a.plans, plan)

	a.reset()
	return nil
}

// Plans returns all plans sealed so far.
func (a *Accumulator) Plans() []*types.Plan {
	return a.plans
}

// RawLines returns the unsealed raw lines retained from AppendLine calls.
// Useful for diagnostics when a plan buffer fails to parse.
func (a *Accumulator) RawLines() []string {
	return a.rawLines
}

func (a *Accumulator) reset() {
	a.steps = nil
	a.rawLines = nil
	a.meta = types.PlanMetaData{}
	a.hasMeta = false
}
