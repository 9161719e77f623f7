package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreylabs/drey/pkg/task"
)

// ErrBadStatus marks a response that arrived but carried a non-2xx status.
// Transport failures are returned without this marker, letting callers
// distinguish worker-side rejection from network trouble.
var ErrBadStatus = errors.New("unexpected status")

// DefaultTimeout bounds every request issued by the client.
const DefaultTimeout = 30 * time.Second

// Client issues JSON requests against worker and manager endpoints.
type Client struct {
	http *http.Client
}

// New creates a client with the default request timeout.
func New() *Client {
	return &Client{
		http: &http.Client{Timeout: DefaultTimeout},
	}
}

// SendEvent posts a task event to the worker's task endpoint.
func (c *Client) SendEvent(ctx context.Context, worker string, event *task.Event) error {
	url := fmt.Sprintf("http://%s/tasks", worker)
	return c.postJSON(ctx, url, event)
}

// SubmitTask posts a task event to the manager's submission endpoint.
func (c *Client) SubmitTask(ctx context.Context, manager string, event *task.Event) error {
	url := fmt.Sprintf("http://%s/tasks", manager)
	return c.postJSON(ctx, url, event)
}

// ListTasks fetches the worker's task database snapshot.
func (c *Client) ListTasks(ctx context.Context, worker string) ([]*task.Task, error) {
	url := fmt.Sprintf("http://%s/tasks/", worker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", worker, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get tasks from %s: %w", worker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get tasks from %s: %w: %d", worker, ErrBadStatus, resp.StatusCode)
	}

	var tasks []*task.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode tasks from %s: %w", worker, err)
	}
	return tasks, nil
}

// GetStats fetches the worker's stats payload as raw JSON.
func (c *Client) GetStats(ctx context.Context, worker string) (json.RawMessage, error) {
	url := fmt.Sprintf("http://%s/stats", worker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", worker, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats from %s: %w", worker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get stats from %s: %w: %d", worker, ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stats from %s: %w", worker, err)
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: %w: %d", url, ErrBadStatus, resp.StatusCode)
	}
	return nil
}
