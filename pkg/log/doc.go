// Package log provides structured logging for drey components.
//
// It wraps zerolog with a global logger initialized once at process start
// and helpers for creating component- and task-scoped child loggers.
package log
