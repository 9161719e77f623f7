// Package reconciler runs the manager's periodic pull loop: sweep worker
// health, poll every worker's task list, and fold observed state into the
// manager's database.
package reconciler
