// Package core provides the foundational domain types, interfaces and run
// state used by Convoke. It defines the core abstractions for:
//
//   - Chat messages (immutable conversational content)
//   - Message envelopes (the closed set of bus messages: start, request,
//     response, reset)
//   - RunContext (the mutable orchestration state owned by the manager actor)
//   - Task and progress ledgers (the manager's written record and per-round
//     judgment)
//   - Manager and Participant contracts
//   - Typed error kinds for run failures
//
// The package intentionally keeps implementation concerns (actors, bus,
// prompt engineering, concrete participants) out of scope, exposing small
// interfaces so alternative managers and participant backends can be plugged
// in without touching the orchestration machinery.
package core
