// Package types provides the core type definitions of the planning SDK.
//
// It defines the normalized plan model every service dialect converges on
// (plans, steps, and their metadata) together with the request-side types:
// planning requests, run configurations, plan formats, time units, and
// timeout handling.
//
// # Plan Types
//
// A Plan is an ordered sequence of steps with times and durations in
// seconds, regardless of the unit the service reported:
//
//	for _, step := range plan.Steps {
//	    fmt.Printf("%g: (%s)\n", step.Time, step.ActionName)
//	}
//
// # Request Types
//
// A PlanningRequest carries the two PDDL documents and a RunConfiguration:
//
//	req := &types.PlanningRequest{
//	    DomainName:  "logistics",
//	    DomainText:  domainPDDL,
//	    ProblemName: "p01",
//	    ProblemText: problemPDDL,
//	    Configuration: types.RunConfiguration{
//	        Timeout:    30,
//	        PlanFormat: types.FormatJSON,
//	    },
//	}
package types
