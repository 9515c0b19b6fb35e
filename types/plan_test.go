package types

import (
	"strings"
	"testing"
)

func TestStripActionParens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "parenthesized action", input: "(move a b)", want: "move a b"},
		{name: "bare action", input: "move a b", want: "move a b"},
		{name: "surrounding whitespace", input: "  (move a b)  ", want: "move a b"},
		{name: "inner whitespace preserved", input: "( move  a  b )", want: "move  a  b"},
		{name: "empty string", input: "", want: ""},
		{name: "only opening paren", input: "(move a b", want: "(move a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripActionParens(tt.input); got != tt.want {
				t.Errorf("StripActionParens(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlanStepValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    PlanStep
		wantErr bool
	}{
		{name: "valid step", step: PlanStep{Time: 1.5, Duration: 0.5}, wantErr: false},
		{name: "zero values", step: PlanStep{}, wantErr: false},
		{name: "negative time", step: PlanStep{Time: -1}, wantErr: true},
		{name: "negative duration", step: PlanStep{Duration: -0.1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanMakespan(t *testing.T) {
	plan := &Plan{
		Steps: []PlanStep{
			{Time: 0, Duration: 2},
			{Time: 1, Duration: 5},
			{Time: 4, Duration: 1},
		},
	}
	if got := plan.Makespan(); got != 6 {
		t.Errorf("Makespan() = %v, want 6", got)
	}

	empty := &Plan{Meta: PlanMetaData{Makespan: 3.5}}
	if got := empty.Makespan(); got != 3.5 {
		t.Errorf("Makespan() of empty plan = %v, want metadata value 3.5", got)
	}
}

func TestPlanText(t *testing.T) {
	plan := &Plan{
		Steps: []PlanStep{
			{Time: 0, ActionName: "board p1 t1", IsDurative: true, Duration: 2},
			{Time: 2, ActionName: "fly t1 c1 c2"},
		},
	}

	text := plan.Text()
	if !strings.Contains(text, "0: (board p1 t1) [2]") {
		t.Errorf("Text() missing durative step line, got:\n%s", text)
	}
	if !strings.Contains(text, "2: (fly t1 c1 c2)") {
		t.Errorf("Text() missing non-durative step line, got:\n%s", text)
	}
	if strings.Contains(text, "(fly t1 c1 c2) [") {
		t.Errorf("Text() rendered a duration for a non-durative step:\n%s", text)
	}
}
