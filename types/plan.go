package types

import (
	"fmt"
	"strings"
)

// PlanStep is a single action occurrence within a plan.
// Times and durations are always expressed in seconds; services that report
// other units are converted before a PlanStep is constructed.
type PlanStep struct {
	// Time is the scheduled start time of the action, in seconds.
	Time float64 `json:"time"`

	// ActionName is the action with its outer parentheses stripped,
	// e.g. "move truck1 depot1 depot2".
	ActionName string `json:"actionName"`

	// IsDurative reports whether the service declared an explicit duration
	// for this step.
	IsDurative bool `json:"isDurative"`

	// Duration is the action duration in seconds. For non-durative steps
	// this holds the parser's epsilon separation.
	Duration float64 `json:"duration"`

	// OrderIndex is the step's position within its plan. Strictly
	// increasing within one plan.
	OrderIndex int `json:"orderIndex"`
}

// Validate checks the step invariants: non-negative time and duration.
func (s PlanStep) Validate() error {
	if s.Time < 0 {
		return fmt.Errorf("step %d: negative time %v", s.OrderIndex, s.Time)
	}
	if s.Duration < 0 {
		return fmt.Errorf("step %d: negative duration %v", s.OrderIndex, s.Duration)
	}
	return nil
}

// PlanMetaData carries optional diagnostics a service attaches to a plan.
type PlanMetaData struct {
	// MetricValue is the value of the optimization metric, if reported.
	MetricValue float64 `json:"metricValue,omitempty"`

	// StatesEvaluated is the number of search states the planner evaluated.
	StatesEvaluated int `json:"statesEvaluated,omitempty"`

	// Makespan is the total plan duration in seconds, if reported.
	Makespan float64 `json:"makespan,omitempty"`
}

// Plan is an ordered, finalized sequence of plan steps.
// A Plan is immutable once returned from the parser.
type Plan struct {
	Steps []PlanStep   `json:"steps"`
	Meta  PlanMetaData `json:"meta,omitempty"`
}

// Makespan returns the end time of the latest-finishing step, in seconds.
// Returns the recorded metadata makespan when the plan has no steps.
func (p *Plan) Makespan() float64 {
	end := p.Meta.Makespan
	for _, s := range p.Steps {
		if t := s.Time + s.Duration; t > end {
			end = t
		}
	}
	return end
}

// Text renders the plan in the conventional one-step-per-line form,
// "time: (action) [duration]" for durative steps and "time: (action)"
// otherwise.
func (p *Plan) Text() string {
	var b strings.Builder
	for _, s := range p.Steps {
		if s.IsDurative {
			fmt.Fprintf(&b, "%g: (%s) [%g]\n", s.Time, s.ActionName, s.Duration)
		} else {
			fmt.Fprintf(&b, "%g: (%s)\n", s.Time, s.ActionName)
		}
	}
	return b.String()
}

// StripActionParens removes one pair of enclosing parentheses from an action
// name, if present. Service dialects disagree on whether step names carry
// them.
func StripActionParens(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		return strings.TrimSpace(name[1 : len(name)-1])
	}
	return name
}
