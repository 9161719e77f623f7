package scheduler

import (
	"github.com/dreylabs/drey/pkg/task"
)

// Node describes a worker endpoint's capacity for future resource-aware
// schedulers.
type Node struct {
	Name            string
	IP              string
	Cores           uint64
	Memory          uint64
	MemoryAllocated uint64
	Disk            uint64
	DiskAllocated   uint64
	Role            string
	TaskCount       uint64
}

// Scheduler selects a node for a task. Implementations narrow the
// candidate set, score it, and pick the winner.
type Scheduler interface {
	// SelectCandidateNodes returns the nodes able to run t
	SelectCandidateNodes(t *task.Task, nodes []*Node) []*Node

	// Score rates each candidate by name; higher is better
	Score(t *task.Task, nodes []*Node) map[string]float64

	// Pick chooses the winning node from the scored candidates
	Pick(scores map[string]float64, candidates []*Node) *Node
}

// RoundRobin selects nodes in rotation, ignoring resources entirely.
type RoundRobin struct {
	Name string

	// LastWorker is the rotation cursor. It advances before every
	// selection, so a fresh scheduler hands out index 1 first and wraps
	// to 0 after the last index.
	LastWorker int
}

var _ Scheduler = (*RoundRobin)(nil)

// NewRoundRobin creates the round-robin scheduler.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{Name: "roundrobin"}
}

// Next advances the cursor over n slots and returns the selected index,
// or -1 when there are no slots. Advancement is unconditional: the cursor
// moves whether or not the caller's subsequent send succeeds.
func (r *RoundRobin) Next(n int) int {
	if n == 0 {
		return -1
	}
	r.LastWorker = (r.LastWorker + 1) % n
	return r.LastWorker
}

// SelectCandidateNodes returns all nodes; round-robin places anywhere.
func (r *RoundRobin) SelectCandidateNodes(t *task.Task, nodes []*Node) []*Node {
	return nodes
}

// Score rates every node equally.
func (r *RoundRobin) Score(t *task.Task, nodes []*Node) map[string]float64 {
	scores := make(map[string]float64, len(nodes))
	for _, node := range nodes {
		scores[node.Name] = 1.0
	}
	return scores
}

// Pick returns the next node in rotation, ignoring scores.
func (r *RoundRobin) Pick(scores map[string]float64, candidates []*Node) *Node {
	idx := r.Next(len(candidates))
	if idx < 0 {
		return nil
	}
	return candidates[idx]
}
