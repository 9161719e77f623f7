// Package worker implements the node-local execution core: a FIFO queue
// of incoming tasks, an authoritative task database, and a reconciliation
// loop that validates state transitions and drives the container runtime.
//
// The worker also serves the HTTP surface the manager talks to: task
// submission and inspection, stop-by-id, and host telemetry.
package worker
