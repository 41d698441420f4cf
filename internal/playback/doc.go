// Package playback drives sequential playback of a routine.
//
// A Player is an explicit state machine:
//
//	Idle -> Playing(index) -> {Paused, AutoAdvancing(countdown), Completed}
//
// TIMER OWNERSHIP:
//
// A Player owns at most one timer. Every transition cancels the current
// timer before optionally starting a new one, and Close cancels it
// unconditionally. Each timer callback carries the generation it was
// started in; a callback whose generation is stale does nothing, so no
// countdown can advance a player after it was cancelled.
//
// PERSISTENCE:
//
// Position writes and step completions go to a Sink fire-and-forget, in
// the order they happened. Writes are idempotent (routine, position)
// overwrites, so retries inside the sink are always safe. Flush and Close
// wait for every queued write.
package playback
