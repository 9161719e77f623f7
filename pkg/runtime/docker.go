package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/task"
)

// Response reports the outcome of a runtime operation.
type Response struct {
	// ContainerID identifies the container the operation acted on
	ContainerID string

	// Action labels the operation performed, "Start" or "Stop"
	Action string
}

// ContainerRuntime drives container lifecycles for a single task.
type ContainerRuntime interface {
	// Run pulls the image, creates the container and starts it
	Run(ctx context.Context, cfg task.Config) (*Response, error)

	// Stop stops the container with the daemon's default timeout
	Stop(ctx context.Context, containerID string) (*Response, error)

	// Close releases the underlying daemon connection
	Close() error
}

// Factory builds a runtime client. The worker calls it once per task
// operation; tests substitute fakes.
type Factory func() (ContainerRuntime, error)

// Client talks to the Docker daemon over its local socket.
type Client struct {
	docker *client.Client
	logger zerolog.Logger
}

var _ ContainerRuntime = (*Client)(nil)

// NewClient connects to the Docker daemon and verifies it is reachable.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClient, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: daemon unreachable: %v", ErrClient, err)
	}

	return &Client{
		docker: cli,
		logger: log.WithComponent("runtime"),
	}, nil
}

// Close releases the daemon connection.
func (c *Client) Close() error {
	return c.docker.Close()
}

// Run pulls the configured image, creates the container with the derived
// host configuration and starts it, returning the new container id.
func (c *Client) Run(ctx context.Context, cfg task.Config) (*Response, error) {
	if err := c.pullImage(ctx, cfg.Image); err != nil {
		return nil, err
	}

	containerID, err := c.createContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("container_id", containerID).Msg("Starting container")
	if err := c.docker.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContainerStart, cfg.Name, err)
	}

	return &Response{ContainerID: containerID, Action: "Start"}, nil
}

// Stop stops the container, relying on the daemon's default timeout.
func (c *Client) Stop(ctx context.Context, containerID string) (*Response, error) {
	c.logger.Info().Str("container_id", containerID).Msg("Stopping container")
	if err := c.docker.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContainerStop, containerID, err)
	}

	return &Response{ContainerID: containerID, Action: "Stop"}, nil
}

// pullMessage is the subset of the daemon's pull progress stream we report.
type pullMessage struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (c *Client) pullImage(ctx context.Context, imageRef string) error {
	c.logger.Info().Str("image", imageRef).Msg("Pulling image")

	reader, err := c.docker.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrImagePull, imageRef, err)
	}
	defer reader.Close()

	dec := json.NewDecoder(reader)
	for {
		var msg pullMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: %s: %v", ErrImagePull, imageRef, err)
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s: %s", ErrImagePull, imageRef, msg.Error)
		}
		if msg.Status != "" {
			c.logger.Debug().Str("image", imageRef).Msg(msg.Status)
		}
	}

	c.logger.Info().Str("image", imageRef).Msg("Image pulled")
	return nil
}

func (c *Client) createContainer(ctx context.Context, cfg task.Config) (string, error) {
	containerConfig := &container.Config{
		Image:        cfg.Image,
		Env:          cfg.Env,
		Cmd:          cfg.Cmd,
		ExposedPorts: cfg.ExposedPorts,
		AttachStdin:  cfg.AttachStdin,
		AttachStdout: cfg.AttachStdout,
		AttachStderr: cfg.AttachStderr,
	}

	hostConfig := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyMode(task.NormalizeRestartPolicy(cfg.RestartPolicy)),
		},
		Resources: container.Resources{
			Memory:   cfg.Memory,
			NanoCPUs: int64(cfg.Cpu * 1e9),
		},
		PublishAllPorts: true,
	}

	// Container names may not contain spaces.
	name := strings.ReplaceAll(cfg.Name, " ", "-")

	resp, err := c.docker.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrContainerCreation, cfg.Name, err)
	}

	c.logger.Info().Str("container_id", resp.ID).Str("name", name).Msg("Container created")
	return resp.ID, nil
}

// DockerFactory is the default runtime factory, building a client against
// the local daemon.
func DockerFactory() (ContainerRuntime, error) {
	return NewClient()
}
