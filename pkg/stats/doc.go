// Package stats samples host telemetry for the worker's stats endpoint.
//
// Memory figures are reported in megabytes and percentages with two
// decimals, matching the wire format the stats endpoint exposes.
package stats
