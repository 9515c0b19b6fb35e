// Package parser accumulates plan steps from the heterogeneous encodings
// planning services emit and finalizes them into ordered plans.
//
// Three encodings are supported: structured steps appended one at a time
// (AppendStep), pre-formatted step lines in the conventional
// "time: (action) [duration]" form (AppendLine), and xplan XML documents
// (AppendXplan). Steps accumulate until OnPlanFinished seals the current
// buffer into a Plan; a single accumulator can collect several plans across
// successive finish calls, which is how anytime services report improving
// plans.
package parser
