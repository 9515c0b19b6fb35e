package parser

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pddlkit/sdk/types"
)

// xplanDocument is the subset of the xplan XML schema the accumulator reads.
// Action attributes vary between producers; both "start"/"time" and a nested
// <name> element or inline text are accepted.
type xplanDocument struct {
	XMLName xml.Name      `xml:"xplan"`
	Actions []xplanAction `xml:"plan>action"`
}

type xplanAction struct {
	Start    string `xml:"start,attr"`
	Time     string `xml:"time,attr"`
	Duration string `xml:"duration,attr"`
	Name     string `xml:"name"`
	Inline   string `xml:",chardata"`
}

// AppendXplan decodes an xplan document and appends its actions as steps.
// The full document is decoded before any step is appended, so callers can
// finalize immediately after AppendXplan returns.
func (a *Accumulator) AppendXplan(xplan string) error {
	var doc xplanDocument
	if err := xml.Unmarshal([]byte(xplan), &doc); err != nil {
		return fmt.Errorf("failed to parse xplan: %w", err)
	}

	steps := make([]types.PlanStep, 0, len(doc.Actions))
	for i, action := range doc.Actions {
		step, err := action.toStep(i+1, a.epsilon)
		if err != nil {
			return err
		}
		steps = append(steps, step)
	}

	for _, step := range steps {
		a.AppendStep(step)
	}
	return nil
}

func (x xplanAction) toStep(position int, epsilon float64) (types.PlanStep, error) {
	name := strings.TrimSpace(x.Name)
	if name == "" {
		name = strings.TrimSpace(x.Inline)
	}
	if name == "" {
		return types.PlanStep{}, fmt.Errorf("xplan action %d: missing name", position)
	}

	step := types.PlanStep{
		ActionName: types.StripActionParens(name),
		Duration:   epsilon,
	}

	start := x.Start
	if start == "" {
		start = x.Time
	}
	if start != "" {
		t, err := strconv.ParseFloat(start, 64)
		if err != nil {
			return types.PlanStep{}, fmt.Errorf("xplan action %d: bad start time %q: %w", position, start, err)
		}
		step.Time = t
	} else {
		step.Time = float64(position) * epsilon
	}

	if x.Duration != "" {
		d, err := strconv.ParseFloat(x.Duration, 64)
		if err != nil {
			return types.PlanStep{}, fmt.Errorf("xplan action %d: bad duration %q: %w", position, x.Duration, err)
		}
		step.Duration = d
		step.IsDurative = true
	}

	return step, nil
}
