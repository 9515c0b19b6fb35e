// Package service talks to remote planning services and reconciles their
// heterogeneous JSON responses into ordered plans.
//
// Three service dialects are supported, each behind the same Variant
// contract:
//
//   - solve: one synchronous POST, plan or failure in the single response
//   - request: asynchronous anytime planning; each response may carry zero or
//     more improving plans plus a status/poll vocabulary
//   - package: packaged/preview solvers that answer with a callback URL and
//     are polled with GET until a terminal status appears
//
// The shared Service core owns the request lifecycle: it announces the run
// through the caller's Callbacks, builds the dialect request, injects bearer
// auth, enforces the wire timeout (nominal budget plus 10% slack), issues
// exactly one POST, and hands the decoded body to the dialect's reconciler.
// All caller-visible output flows through Callbacks; logging is diagnostic
// only.
package service
