package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a point-in-time sample of host telemetry plus the worker's
// task count. Memory fields hold megabytes; usage fields hold percentages.
type SystemStats struct {
	CPUUsage    float64
	TotalMemory uint64
	UsedMemory  uint64
	TotalSwap   uint64
	UsedSwap    uint64
	SystemName  string
	Hostname    string
	TotalCPUs   uint64
	DiskUsage   float64
	TaskCount   uint64
}

// MarshalJSON renders percentages as "NN.NN%" strings and memory fields as
// "N MB" strings; cpu and task counts stay numeric.
func (s SystemStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CPUUsage    string `json:"cpu_usage"`
		TotalMemory string `json:"total_memory"`
		UsedMemory  string `json:"used_memory"`
		TotalSwap   string `json:"total_swap"`
		UsedSwap    string `json:"used_swap"`
		SystemName  string `json:"system_name"`
		Hostname    string `json:"hostname"`
		TotalCPUs   uint64 `json:"total_cpus"`
		DiskUsage   string `json:"disk_usage"`
		TaskCount   uint64 `json:"task_count"`
	}{
		CPUUsage:    fmt.Sprintf("%.2f%%", s.CPUUsage),
		TotalMemory: fmt.Sprintf("%d MB", s.TotalMemory),
		UsedMemory:  fmt.Sprintf("%d MB", s.UsedMemory),
		TotalSwap:   fmt.Sprintf("%d MB", s.TotalSwap),
		UsedSwap:    fmt.Sprintf("%d MB", s.UsedSwap),
		SystemName:  s.SystemName,
		Hostname:    s.Hostname,
		TotalCPUs:   s.TotalCPUs,
		DiskUsage:   fmt.Sprintf("%.2f%%", s.DiskUsage),
		TaskCount:   s.TaskCount,
	})
}

// Collect samples the host and returns a stats record carrying taskCount.
// Sampling failures degrade to zero values so the endpoint stays available.
func Collect(taskCount uint64) SystemStats {
	s := SystemStats{
		SystemName: "Unknown",
		Hostname:   "Unknown",
		TaskCount:  taskCount,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemory = vm.Total / 1024 / 1024
		s.UsedMemory = vm.Used / 1024 / 1024
	}

	if sw, err := mem.SwapMemory(); err == nil {
		s.TotalSwap = sw.Total / 1024 / 1024
		s.UsedSwap = sw.Used / 1024 / 1024
	}

	if info, err := host.Info(); err == nil {
		if info.Platform != "" {
			s.SystemName = info.Platform
		}
		if info.Hostname != "" {
			s.Hostname = info.Hostname
		}
	}

	if n, err := cpu.Counts(true); err == nil {
		s.TotalCPUs = uint64(n)
	}

	// Percentage since the previous call, rounded to two decimals.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUUsage = math.Round(percents[0]*100) / 100
	}

	s.DiskUsage = diskUsage()

	return s
}

// diskUsage computes used/total across all mounted partitions as a
// percentage, zero when no capacity is visible.
func diskUsage() float64 {
	parts, err := disk.Partitions(false)
	if err != nil {
		return 0
	}

	var used, total float64
	for _, p := range parts {
		u, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		used += float64(u.Total - u.Free)
		total += float64(u.Total)
	}

	if total == 0 {
		return 0
	}
	return used / total * 100
}
