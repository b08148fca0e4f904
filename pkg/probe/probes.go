package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
)

// defaultProbes is the production catalogue. Each entry is a cheap,
// bounded test: binary presence, a path check, or a short trial
// invocation whose output is discarded beyond the true/false decision.
func defaultProbes() []Probe {
	return []Probe{
		{CapSensors, detectSensors},
		{CapZFS, detectZFS},
		{CapNvidiaGPU, detectNvidiaGPU},
		{CapAMDGPU, detectAMDGPU},
		{CapIntelGPU, detectIntelGPU},
		{CapQemuVMs, trialProbe("qm", "list")},
		{CapLXC, trialProbe("pct", "list")},
		{CapDocker, trialProbe("docker", "version")},
		{CapPodman, trialProbe("podman", "version")},
		{CapSmart, binaryProbe("smartctl")},
		{CapIPMI, trialProbe("ipmitool", "sensor")},
		{CapNVMe, globProbe("/sys/class/nvme/nvme*")},
		{CapSystemd, binaryProbe("systemctl")},
		{CapMdadm, detectMdadm},
		{CapNFS, detectNFS},
		{CapNutUPS, binaryProbe("upsc")},
		{CapCeph, binaryProbe("ceph")},
		{CapGlusterFS, binaryProbe("gluster")},
		{CapBtrfs, detectBtrfs},
	}
}

// binaryProbe reports true when the named tool is on PATH.
func binaryProbe(name string) Func {
	return func(_ context.Context) (bool, error) {
		return cmdutil.Exists(name), nil
	}
}

// trialProbe runs the tool once and reports true when it exits cleanly.
func trialProbe(name string, args ...string) Func {
	return func(ctx context.Context) (bool, error) {
		if !cmdutil.Exists(name) {
			return false, nil
		}
		_, err := cmdutil.Run(ctx, defaults.ProbeTimeout, name, args...)
		return err == nil, nil
	}
}

// globProbe reports true when the pattern matches at least one path.
func globProbe(pattern string) Func {
	return func(_ context.Context) (bool, error) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return false, err
		}
		return len(matches) > 0, nil
	}
}

func detectSensors(ctx context.Context) (bool, error) {
	if !cmdutil.Exists("sensors") {
		return false, nil
	}
	out, err := cmdutil.Run(ctx, defaults.ProbeTimeout, "sensors")
	return err == nil && len(out) > 10, nil
}

func detectZFS(_ context.Context) (bool, error) {
	if _, err := os.Stat("/proc/spl/kstat/zfs"); err == nil {
		return true, nil
	}
	return cmdutil.Exists("zpool"), nil
}

func detectNvidiaGPU(ctx context.Context) (bool, error) {
	if !cmdutil.Exists("nvidia-smi") {
		return false, nil
	}
	out, err := cmdutil.Run(ctx, defaults.ProbeTimeout, "nvidia-smi", "-L")
	return err == nil && strings.Contains(out, "GPU"), nil
}

// detectAMDGPU checks DRM card vendor IDs in sysfs, falling back to a
// rocm-smi trial invocation.
func detectAMDGPU(ctx context.Context) (bool, error) {
	if vendorMatch("0x1002", nil) {
		return true, nil
	}
	if cmdutil.Exists("rocm-smi") {
		_, err := cmdutil.Run(ctx, defaults.ProbeTimeout, "rocm-smi", "--showid")
		return err == nil, nil
	}
	return false, nil
}

// detectIntelGPU looks for discrete Arc/Xe parts only; integrated
// graphics carry no metrics worth a collector.
func detectIntelGPU(_ context.Context) (bool, error) {
	match := vendorMatch("0x8086", func(cardDir string) bool {
		device, err := os.ReadFile(filepath.Join(cardDir, "device"))
		if err != nil {
			return false
		}
		id := strings.TrimSpace(string(device))
		return strings.HasPrefix(id, "0x56") || strings.HasPrefix(id, "0x4c")
	})
	return match, nil
}

// vendorMatch scans /sys/class/drm for a card with the given PCI vendor
// ID, optionally requiring an extra per-card predicate.
func vendorMatch(vendorID string, extra func(cardDir string) bool) bool {
	vendorFiles, err := filepath.Glob("/sys/class/drm/card*/device/vendor")
	if err != nil {
		return false
	}
	for _, vf := range vendorFiles {
		data, err := os.ReadFile(vf)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != vendorID {
			continue
		}
		if extra == nil || extra(filepath.Dir(vf)) {
			return true
		}
	}
	return false
}

func detectMdadm(_ context.Context) (bool, error) {
	data, err := os.ReadFile("/proc/mdstat")
	if err != nil {
		return false, nil
	}
	return strings.Contains(string(data), "md"), nil
}

func detectNFS(_ context.Context) (bool, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false, nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, ":") && strings.Contains(line, "nfs") {
			return true, nil
		}
	}
	return false, nil
}

func detectBtrfs(ctx context.Context) (bool, error) {
	if !cmdutil.Exists("findmnt") {
		return false, nil
	}
	out, err := cmdutil.Run(ctx, defaults.ProbeTimeout, "findmnt", "-t", "btrfs")
	return err == nil && strings.TrimSpace(out) != "", nil
}
