// Package task defines the core entities of the orchestrator: tasks, their
// lifecycle state machine, the events that carry them between manager and
// worker, and the runtime-facing configuration derived from a task.
package task
