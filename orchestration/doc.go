// Package orchestration implements the manager/worker coordination protocol:
// a manager actor plans the task, delegates one turn per round to a worker
// agent actor, judges progress after every exchange, recovers from sustained
// stalling by resetting and replanning, and synthesizes a final answer.
//
// All communication flows through a runtime.Bus topic created per run. Each
// actor is single-threaded with respect to its own state: the bus serializes
// handler execution per subscription, and the manager's state machine runs on
// one goroutine that owns the run context exclusively. The manager keeps at
// most one request outstanding at a time, trading parallelism for determinism
// and bounded cost.
package orchestration
