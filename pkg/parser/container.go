package parser

import (
	"encoding/json"
	"strings"
)

// Container is one container from an engine listing, reduced to the
// fields the exporter cares about.
type Container struct {
	ID     string // truncated to 12 characters
	Name   string
	Status string // human status line, docker format only
	State  string // lifecycle state: running, exited, ...
}

// ContainerStats is one running container's resource snapshot.
type ContainerStats struct {
	CPUPercent     float64
	MemUsedBytes   int64
	MemLimitBytes  int64
	HasMemoryUsage bool
}

// ParseContainerList parses `docker ps -a` output produced with the
// tab-delimited format `{{.ID}}\t{{.Names}}\t{{.Status}}\t{{.State}}`.
// Rows with fewer than four columns are skipped.
func ParseContainerList(text string) []Container {
	containers := make([]Container, 0, 8)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		containers = append(containers, Container{
			ID:     truncateID(parts[0]),
			Name:   parts[1],
			Status: parts[2],
			State:  parts[3],
		})
	}

	return containers
}

// ParsePodmanList parses `podman ps -a --format json` output: a JSON
// array of container objects. Entries missing an ID are skipped.
func ParsePodmanList(data []byte) []Container {
	var raw []struct {
		ID    string   `json:"Id"`
		Names []string `json:"Names"`
		State string   `json:"State"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	containers := make([]Container, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			continue
		}
		name := "unknown"
		if len(r.Names) > 0 {
			name = r.Names[0]
		}
		containers = append(containers, Container{
			ID:    truncateID(r.ID),
			Name:  name,
			State: r.State,
		})
	}

	return containers
}

// ParseContainerStats parses a single `docker stats --no-stream
// --format json` (or podman equivalent) result. Engines emit either a
// bare object or a single-element array. CPU arrives as a percentage
// string, memory as a "used / limit" pair whose unit suffixes determine
// binary vs decimal conversion.
func ParseContainerStats(data []byte) (ContainerStats, bool) {
	var obj map[string]any

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var arr []map[string]any
		if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
			return ContainerStats{}, false
		}
		obj = arr[0]
	} else if err := json.Unmarshal(data, &obj); err != nil {
		return ContainerStats{}, false
	}

	var stats ContainerStats

	if cpu, ok := statString(obj, "CPUPerc", "cpu_percent"); ok {
		stats.CPUPercent = ParsePercent(cpu)
	}

	if mem, ok := statString(obj, "MemUsage", "mem_usage"); ok {
		if used, limit, found := strings.Cut(mem, "/"); found {
			stats.MemUsedBytes = ParseMemoryString(used)
			stats.MemLimitBytes = ParseMemoryString(limit)
			stats.HasMemoryUsage = true
		}
	}

	return stats, true
}

func statString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			return v, true
		}
	}
	return "", false
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
