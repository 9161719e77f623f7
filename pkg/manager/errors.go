package manager

import "errors"

// Manager errors. Dispatch failures carry detail via wrapping; callers
// discriminate with errors.Is.
var (
	// ErrNoWorkersAvailable indicates the worker pool is empty
	ErrNoWorkersAvailable = errors.New("no workers available")

	// ErrWorkerCommunication indicates a worker answered with a failure status
	ErrWorkerCommunication = errors.New("worker communication failed")

	// ErrNetwork indicates the worker could not be reached at all
	ErrNetwork = errors.New("network error")
)
