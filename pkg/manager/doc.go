// Package manager implements the central dispatcher: it accepts task
// submissions, assigns them to workers round-robin, maintains the
// correlated dispatch indices, and folds remote worker state back into
// its view of truth.
package manager
