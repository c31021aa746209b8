// Package engine implements the progress aggregation engine.
//
// The engine is the heart of crewdeck - every task and subtask mutation
// flows through it, and it alone maintains the denormalized completion
// state across the three-level hierarchy:
//
//	project.totalTasks / project.completedTasks / project.progress
//	task.progress / task.status (completion edge)
//	subtask.status / subtask.completedAt / subtask.completedBy
//
// AGGREGATION RULES:
//
// Task progress is always round(completedSubtasks/totalSubtasks*100) over
// the task's current persisted subtask set. When every subtask is
// completed the task is force-transitioned to "completed"; when a
// completed task's ratio drops below 100% it is force-transitioned back
// to "in_progress" and its completion stamps are cleared. These forced
// transitions override any status the caller asked for.
//
// Project counters move only on task completion edges and task
// create/delete. Project edits never touch them.
//
// EXECUTION MODEL:
//
// Every operation is synchronous within the triggering call: no queues,
// no background workers, no retries. Single-entity mutations are
// all-or-nothing; bulk mutations are best-effort per element and report
// aggregated results instead of failing the whole batch.
//
// Bulk operations snapshot each touched project once, accumulate
// per-project counter deltas, and patch each project exactly once at the
// end. A concurrent writer touching the same project between the bulk
// snapshot and the final patch is silently clobbered. This lost-update
// hazard is a known property of the batching scheme; see bulk.go.
//
// Every state transition emits an activity record through the activity
// log writer, so the feed is a complete trail of add/remove/update,
// assign/unassign, and complete/reopen transitions.
package engine
