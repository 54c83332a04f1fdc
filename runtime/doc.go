// Package runtime provides the topic-addressed asynchronous message delivery
// substrate connecting all actors in a run.
//
// The Bus contract is deliberately minimal (publish an envelope to a topic,
// subscribe a handler to a topic) so alternative substrates (a broker, a
// distributed runtime) can replace the in-process default. The bundled
// InProcBus delivers each subscriber's messages on a dedicated goroutine,
// which gives every actor the single-threaded handler discipline the
// orchestration layer relies on: no two handlers of the same subscription
// ever execute concurrently, and delivery order per subscriber matches
// publish order.
package runtime
