package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dreylabs/drey/pkg/client"
	"github.com/dreylabs/drey/pkg/manager"
	"github.com/dreylabs/drey/pkg/task"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a task from a YAML manifest",
	Long: `Submit a task definition to the manager.

Example manifest:

  name: web
  image: nginx:latest
  memory: 536870912
  exposed_ports: [80]
  restart_policy: "no"
`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringP("file", "f", "", "YAML task manifest (required)")
	submitCmd.Flags().String("manager", "localhost:7070", "Manager address")
	_ = submitCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(submitCmd)
}

// taskManifest is the YAML shape of a task submission.
type taskManifest struct {
	Name          string            `yaml:"name"`
	Image         string            `yaml:"image"`
	Memory        uint64            `yaml:"memory"`
	Disk          uint64            `yaml:"disk"`
	ExposedPorts  []uint16          `yaml:"exposed_ports"`
	PortBindings  map[string]string `yaml:"port_bindings"`
	RestartPolicy string            `yaml:"restart_policy"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	managerAddr, _ := cmd.Flags().GetString("manager")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	var manifest taskManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse YAML: %v", err)
	}

	t := &task.Task{
		ID:            uuid.New(),
		Name:          manifest.Name,
		State:         task.Scheduled,
		Image:         manifest.Image,
		Memory:        manifest.Memory,
		Disk:          manifest.Disk,
		ExposedPorts:  manifest.ExposedPorts,
		PortBindings:  manifest.PortBindings,
		RestartPolicy: manifest.RestartPolicy,
	}
	event := manager.NewEvent(t, "scheduled")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.New().SubmitTask(ctx, managerAddr, event); err != nil {
		return fmt.Errorf("failed to submit task: %v", err)
	}

	fmt.Printf("Task %s submitted\n", t.ID)
	return nil
}
