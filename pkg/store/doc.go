// Package store provides in-memory stores for task and event records.
//
// Both manager and worker keep their authoritative records here. Reads
// return copied snapshots so callers never share memory with the store.
package store
