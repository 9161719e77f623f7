// Package client provides the HTTP client used for manager-to-worker
// traffic and CLI-to-manager submissions.
package client
