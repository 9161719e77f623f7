// Package health provides HTTP reachability checks for worker endpoints.
package health
