package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pddlkit/sdk/types"
)

// stepLine matches the conventional planner output line
// "time: (action) [duration]", where the time prefix and the duration suffix
// are both optional.
var stepLine = regexp.MustCompile(`^\s*(?:(\d+(?:\.\d+)?)\s*:)?\s*\(([^)]+)\)\s*(?:\[(\d+(?:\.\d+)?)\])?\s*$`)

// AppendLine parses one pre-formatted step line and appends the resulting
// step. Comment lines (leading ';') and lines that don't look like steps are
// retained as raw output and produce no step.
func (a *Accumulator) AppendLine(line string) {
	a.rawLines = append(a.rawLines, line)

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ";") {
		return
	}

	m := stepLine.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}

	step := types.PlanStep{
		ActionName: strings.TrimSpace(m[2]),
	}

	if m[1] != "" {
		step.Time, _ = strconv.ParseFloat(m[1], 64)
	} else {
		// No explicit timestamp: space steps epsilon apart.
		step.Time = float64(len(a.steps)+1) * a.epsilon
	}

	if m[3] != "" {
		step.Duration, _ = strconv.ParseFloat(m[3], 64)
		step.IsDurative = true
	} else {
		step.Duration = a.epsilon
	}

	a.AppendStep(step)
}
