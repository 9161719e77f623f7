// Package events provides a broker for task lifecycle events.
//
// Manager and worker publish events as tasks move through dispatch and
// execution; subscribers (the CLI event log, tests) receive them over
// buffered channels and are skipped when their buffer is full.
package events
