// Package sdk is a client library for remote planning-as-a-service HTTP
// endpoints that solve AI planning problems expressed in PDDL.
//
// The SDK never computes a plan itself: it submits a domain/problem pair to
// a remote solver and reconciles the service's loosely specified JSON
// responses into a uniform in-memory plan representation.
//
// # Core Concepts
//
//   - Client: a configured connection to one planning service dialect
//   - Variants: the three service dialects: synchronous solve,
//     asynchronous request (anytime planning with polling), and packaged
//     preview (callback-URL polling)
//   - Callbacks: the caller-supplied interface that receives service
//     output and completed plans as they become available
//   - Parser: the plan accumulator that turns JSON steps, step lines, and
//     xplan XML into ordered plans with times normalized to seconds
//
// # Basic Usage
//
//	client, err := sdk.NewClient(
//	    sdk.WithSolveService("https://solver.example.com/solve"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	plans, err := client.Plan(ctx,
//	    sdk.Document{Name: "logistics", Text: domainPDDL},
//	    sdk.Document{Name: "problem-07", Text: problemPDDL},
//	    nil, callbacks)
//
// # Integrations
//
// A Redis plan cache (package cache) can replay terminal results for
// identical problems, and an etcd endpoint registry (package registry) can
// resolve a planner by name instead of a hardcoded URL. Both are optional;
// a bare Client only needs a service URL.
package sdk
