// Package scheduler defines the pluggable worker-selection seam and its
// round-robin reference implementation.
package scheduler
