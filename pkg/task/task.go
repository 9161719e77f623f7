package task

import (
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
)

// Task represents a containerized workload with its configuration and
// runtime state. The manager dispatches tasks to workers; a worker drives
// each task through the container runtime.
type Task struct {
	// ID uniquely identifies the task
	ID uuid.UUID `json:"id" validate:"required"`

	// ContainerID is set once the runtime has created the container.
	// It is present iff the task has ever reached Running.
	ContainerID string `json:"container_id,omitempty"`

	// Name is a human-readable identifier for the task
	Name string `json:"name" validate:"required"`

	// State indicates the current lifecycle stage of the task
	State State `json:"state"`

	// Image specifies the container image to run
	Image string `json:"image" validate:"required"`

	// Memory is the memory allocation in bytes
	Memory uint64 `json:"memory"`

	// Disk is the disk allocation in bytes
	Disk uint64 `json:"disk"`

	// ExposedPorts lists the ports exposed by the container
	ExposedPorts []uint16 `json:"exposed_ports"`

	// PortBindings maps container ports to host ports
	PortBindings map[string]string `json:"port_bindings"`

	// RestartPolicy is one of the runtime's recognized restart policies.
	// Unrecognized values degrade to "no".
	RestartPolicy string `json:"restart_policy"`

	// StartTime records when the worker last began driving the task
	StartTime *time.Time `json:"start_time"`

	// FinishTime records when the worker last touched the task. It is set
	// on both successful start and successful stop.
	FinishTime *time.Time `json:"finish_time"`
}

// Event is the unit of dispatch between manager and worker. The embedded
// Task carries the desired state the worker should drive toward.
type Event struct {
	// TaskID identifies the task this event concerns
	TaskID uuid.UUID `json:"task_id" validate:"required"`

	// Type is a free-form label describing the event
	Type string `json:"event_type"`

	// Timestamp records when the event was produced
	Timestamp *time.Time `json:"timestamp"`

	// Task is the authoritative record for the requested transition
	Task Task `json:"task"`
}

// Config is the runtime-facing projection of a Task: the subset of task
// attributes the container runtime needs, in the shapes its API expects.
type Config struct {
	// Name names both the task and the container
	Name string

	AttachStdin  bool
	AttachStdout bool
	AttachStderr bool

	// ExposedPorts is the set of container ports to expose
	ExposedPorts nat.PortSet

	// Cmd overrides the image's default command when non-empty
	Cmd []string

	// Image is the container image reference
	Image string

	// Cpu is the CPU budget in fractional cores
	Cpu float64

	// Memory is the memory limit in bytes, signed for the runtime API
	Memory int64

	// Disk is the disk limit in bytes, signed for the runtime API
	Disk int64

	// Env holds KEY=VALUE environment entries
	Env []string

	// RestartPolicy is the normalized restart policy name
	RestartPolicy string
}

// restartPolicies are the policy names the runtime recognizes.
var restartPolicies = map[string]bool{
	"":               true,
	"no":             true,
	"always":         true,
	"unless-stopped": true,
	"on-failure":     true,
}

// NormalizeRestartPolicy degrades unrecognized restart policy values to "no".
func NormalizeRestartPolicy(policy string) string {
	if restartPolicies[policy] {
		return policy
	}
	return "no"
}

// NewConfig projects a Task into the configuration handed to the runtime.
func NewConfig(t *Task) Config {
	exposed := nat.PortSet{}
	for _, p := range t.ExposedPorts {
		exposed[nat.Port(fmt.Sprintf("%d/tcp", p))] = struct{}{}
	}

	return Config{
		Name:          t.Name,
		Image:         t.Image,
		RestartPolicy: NormalizeRestartPolicy(t.RestartPolicy),
		Memory:        int64(t.Memory),
		Disk:          int64(t.Disk),
		ExposedPorts:  exposed,
	}
}
