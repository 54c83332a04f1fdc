// Package observe provides the lifecycle observability hook for orchestration
// runs. The state machine emits a discrete Event at each transition point
// (planning, replanning, progress-ledger creation, request/response exchange,
// outer reset, final answer, error); a Sink consumes them.
//
// The hook is advisory and cross-cutting: it is parameterized into the driver
// rather than layered over the actors, the state machine never blocks on a
// sink, and the absence of a sink means no-op rather than a hidden
// process-wide default.
package observe
