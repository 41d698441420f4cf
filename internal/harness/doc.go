// Package harness runs progression scenarios against the engine.
//
// A scenario loads a catalog, drives one device session through a list of
// steps and checks the resulting trace and final progress. Each run uses an
// in-memory KV, an in-memory account service and a fake clock, so traces are
// identical across runs and can be compared with golden files.
//
// # Scenario Format
//
//	name: unlock_chain
//	description: "Completing h1 unlocks h2"
//	catalog: ../../catalog/testdata/catalog.yaml
//	setup:
//	  accounts:
//	    - user: u1
//	      completions: [h3]
//	steps:
//	  - do: complete
//	    node: h1
//	  - do: signin
//	    user: u1
//	  - do: open
//	    routine: morning
//	    index: 0
//	  - do: video_ended
//	  - do: advance
//	    seconds: 5
//	assertions:
//	  - type: trace_contains
//	    event: unlocked
//	    id: h2
//	  - type: unlocked
//	    nodes: [h2]
//	    locked: [advanced]
//
// Catalog paths are relative to the scenario file.
//
// # Steps
//
// Progress steps: complete, position, autoplay, signin, signout, retry.
// Account service steps: remote_fail, remote_heal.
// Player steps act on the routine last opened: open, next, previous, jump,
// video_ended, cancel, key, pause, resume, player_autoplay, close.
// advance moves the fake clock, firing countdown ticks.
//
// A step that is expected to fail names the error kind in error:
// unknown_node, not_completable, position_out_of_range, no_remote, remote_sync.
//
// # Trace
//
// Every step appends a "step" event, then one "player" event per player
// transition, an "error" event if the step failed, and finally one
// "unlocked" or "locked" event per node whose state changed, in catalog
// order.
//
// # Assertion Types
//
//   - trace_contains: an event with the given type and fields exists
//   - trace_order: event keys appear in order (gaps allowed)
//   - trace_count: an event key appears exactly count times
//   - unlocked: nodes are unlocked and locked nodes are not
//   - progress: percentage (and completed count) of a level or routine
//   - position: stored position of a routine
//   - saved_locally: the saved-locally indicator
//   - identity: the active user, "" for the device
package harness
