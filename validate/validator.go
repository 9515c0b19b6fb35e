// Package validate grades the plans a planning service returns and applies
// caller-supplied acceptance rules.
//
// Quality grading distinguishes a full result (at least one non-empty plan)
// from a partial or empty one. Acceptance rules are CEL expressions
// evaluated per step or per plan; a rule that evaluates to false records a
// warning. Warnings never fail the planning call; the caller decides what
// to do with a suspect plan.
package validate

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/pddlkit/sdk/types"
)

// Quality indicates the completeness of a planning result.
type Quality string

const (
	// QualityFull represents at least one plan with steps.
	QualityFull Quality = "full"
	// QualityPartial represents plans present but some without steps.
	QualityPartial Quality = "partial"
	// QualityEmpty represents a run that finished without any plan.
	QualityEmpty Quality = "empty"
)

// Report is the outcome of validating one planning result.
type Report struct {
	Quality  Quality  `json:"quality"`
	Warnings []string `json:"warnings,omitempty"`
}

// Options configures a Validator.
type Options struct {
	// StepRules are CEL expressions evaluated once per step with the
	// variables action (string), time (double), duration (double),
	// durative (bool), and index (int). A rule returning false records
	// a warning for that step.
	StepRules []string

	// PlanRules are CEL expressions evaluated once per plan with the
	// variables steps (int) and makespan (double).
	PlanRules []string
}

type rule struct {
	expr    string
	program cel.Program
}

// Validator validates plans against compiled acceptance rules.
// Safe for concurrent use once built.
type Validator struct {
	stepRules []rule
	planRules []rule
}

// New compiles the configured rules. Compilation errors surface here, not
// at validation time.
func New(opts Options) (*Validator, error) {
	stepEnv, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("time", cel.DoubleType),
		cel.Variable("duration", cel.DoubleType),
		cel.Variable("durative", cel.BoolType),
		cel.Variable("index", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build step rule environment: %w", err)
	}

	planEnv, err := cel.NewEnv(
		cel.Variable("steps", cel.IntType),
		cel.Variable("makespan", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan rule environment: %w", err)
	}

	v := &Validator{}

	for _, expr := range opts.StepRules {
		program, err := compileRule(stepEnv, expr)
		if err != nil {
			return nil, err
		}
		v.stepRules = append(v.stepRules, rule{expr: expr, program: program})
	}

	for _, expr := range opts.PlanRules {
		program, err := compileRule(planEnv, expr)
		if err != nil {
			return nil, err
		}
		v.planRules = append(v.planRules, rule{expr: expr, program: program})
	}

	return v, nil
}

func compileRule(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for rule %q: %w", expr, err)
	}
	return program, nil
}

// Validate grades the plans and evaluates every rule against them.
func (v *Validator) Validate(plans []*types.Plan) *Report {
	report := &Report{Quality: gradePlans(plans)}

	for planIdx, plan := range plans {
		for _, r := range v.planRules {
			ok, err := evalBool(r.program, map[string]any{
				"steps":    len(plan.Steps),
				"makespan": plan.Makespan(),
			})
			if err != nil {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("plan %d: rule %q failed to evaluate: %v", planIdx, r.expr, err))
				continue
			}
			if !ok {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("plan %d violates %q", planIdx, r.expr))
			}
		}

		for _, step := range plan.Steps {
			for _, r := range v.stepRules {
				ok, err := evalBool(r.program, map[string]any{
					"action":   step.ActionName,
					"time":     step.Time,
					"duration": step.Duration,
					"durative": step.IsDurative,
					"index":    step.OrderIndex,
				})
				if err != nil {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("plan %d step %d: rule %q failed to evaluate: %v",
							planIdx, step.OrderIndex, r.expr, err))
					continue
				}
				if !ok {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("plan %d step %d (%s) violates %q",
							planIdx, step.OrderIndex, step.ActionName, r.expr))
				}
			}
		}
	}

	return report
}

func evalBool(program cel.Program, vars map[string]any) (bool, error) {
	out, _, err := program.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("non-boolean result %v", out.Value())
	}
	return b, nil
}

func gradePlans(plans []*types.Plan) Quality {
	if len(plans) == 0 {
		return QualityEmpty
	}
	withSteps := 0
	for _, plan := range plans {
		if len(plan.Steps) > 0 {
			withSteps++
		}
	}
	switch withSteps {
	case len(plans):
		return QualityFull
	case 0:
		return QualityEmpty
	default:
		return QualityPartial
	}
}
