package runtime

import "errors"

// Typed runtime errors. Callers discriminate with errors.Is; every error
// returned by NewClient, Run and Stop wraps exactly one of these. Close
// returns the daemon client's error as is.
var (
	// ErrClient indicates the runtime daemon cannot be reached
	ErrClient = errors.New("no client")

	// ErrImagePull indicates the image pull stream failed
	ErrImagePull = errors.New("image pull failed")

	// ErrContainerCreation indicates container creation failed
	ErrContainerCreation = errors.New("container creation failed")

	// ErrContainerStart indicates the container could not be started
	ErrContainerStart = errors.New("container start failed")

	// ErrContainerStop indicates the container could not be stopped
	ErrContainerStop = errors.New("container stop failed")
)
