package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pddlkit/sdk/parser"
	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/types"
)

// jsonStep is the wire form of one step in a JSON-encoded plan.
// Time and duration are optional; their absence is meaningful (see
// appendJSONSteps).
type jsonStep struct {
	Name     string   `json:"name"`
	Time     *float64 `json:"time,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// appendJSONSteps feeds a JSON step array into the parser.
//
// A step without an explicit time is placed at (index+1) × epsilon. A step
// with a non-null duration is durative; one without gets the epsilon
// separation and is not. Explicit times and durations are multiplied by
// scale to convert the service's declared unit to seconds.
func appendJSONSteps(p parser.PlanParser, steps []jsonStep, scale float64) {
	eps := p.Epsilon()
	for i, s := range steps {
		step := types.PlanStep{
			ActionName: types.StripActionParens(s.Name),
		}

		if s.Time != nil {
			step.Time = *s.Time * scale
		} else {
			step.Time = float64(i+1) * eps
		}

		if s.Duration != nil {
			step.Duration = *s.Duration * scale
			step.IsDurative = true
		} else {
			step.Duration = eps
		}

		p.AppendStep(step)
	}
}

// appendPlanContent feeds one plan buffer into the parser according to the
// declared encoding, without finalizing. JSON content is unit-converted by
// scale; tasks lines and xplan documents carry their own time base.
func appendPlanContent(serviceName string, p parser.PlanParser, format types.PlanFormat, content string, scale float64) error {
	switch format {
	case types.FormatJSON:
		var steps []jsonStep
		if err := json.Unmarshal([]byte(content), &steps); err != nil {
			return planerr.New(serviceName, "normalize", planerr.ErrCodeParseError,
				"failed to decode JSON plan steps").WithCause(err)
		}
		appendJSONSteps(p, steps, scale)

	case types.FormatTasks:
		for _, line := range strings.Split(content, "\n") {
			p.AppendLine(line)
		}

	case types.FormatXplan:
		if err := p.AppendXplan(content); err != nil {
			return planerr.New(serviceName, "normalize", planerr.ErrCodeParseError,
				"failed to convert xplan content").WithCause(err)
		}

	default:
		return planerr.New(serviceName, "normalize", planerr.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported plan format %q", format))
	}

	return nil
}

// finalizePlanContent appends one plan buffer and seals it.
func finalizePlanContent(serviceName string, p parser.PlanParser, format types.PlanFormat, content string, scale float64) error {
	if err := appendPlanContent(serviceName, p, format, content, scale); err != nil {
		return err
	}
	return p.OnPlanFinished()
}
