package worker

import "errors"

// Worker errors. RunTask wraps these with runtime-error context when they
// surface through runtime-returning operations, preserving the chain for
// errors.Is.
var (
	// ErrNoTasksInQueue indicates the queue was empty
	ErrNoTasksInQueue = errors.New("no tasks in queue")

	// ErrInvalidStateTransition indicates the FSM rejected the requested move
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrDockerClient indicates the runtime adapter could not be used
	ErrDockerClient = errors.New("docker client error")
)
