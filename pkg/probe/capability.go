// Package probe implements startup capability detection.
//
// A probe is a cheap, bounded, side-effect-free test for one named
// capability of the host (binary presence, sysfs path existence, or a
// bounded trial invocation). All probes run exactly once at startup and
// their results are frozen into an immutable Set that gates which
// collectors are eligible to run for the remainder of the process.
package probe

import "sort"

// Capability is a named boolean fact about the host environment.
type Capability string

// The closed set of capabilities known at build time.
const (
	CapSensors    Capability = "sensors"
	CapZFS        Capability = "zfs"
	CapNvidiaGPU  Capability = "nvidia_gpu"
	CapAMDGPU     Capability = "amd_gpu"
	CapIntelGPU   Capability = "intel_gpu"
	CapQemuVMs    Capability = "qemu_vms"
	CapLXC        Capability = "lxc_containers"
	CapDocker     Capability = "docker"
	CapPodman     Capability = "podman"
	CapSmart      Capability = "smart"
	CapIPMI       Capability = "ipmi"
	CapNVMe       Capability = "nvme"
	CapSystemd    Capability = "systemd"
	CapMdadm      Capability = "mdadm"
	CapNFS        Capability = "nfs"
	CapNutUPS     Capability = "nut_ups"
	CapCeph       Capability = "ceph"
	CapGlusterFS  Capability = "glusterfs"
	CapBtrfs      Capability = "btrfs"
)

// All returns every capability in the closed set.
func All() []Capability {
	return []Capability{
		CapSensors, CapZFS, CapNvidiaGPU, CapAMDGPU, CapIntelGPU,
		CapQemuVMs, CapLXC, CapDocker, CapPodman, CapSmart,
		CapIPMI, CapNVMe, CapSystemd, CapMdadm, CapNFS,
		CapNutUPS, CapCeph, CapGlusterFS, CapBtrfs,
	}
}

// Set is the immutable result of running every probe once at startup.
// It is created by Detect and never mutated afterwards; all later
// components read it without locking.
type Set map[Capability]bool

// Has reports whether the capability was detected.
func (s Set) Has(c Capability) bool {
	return s[c]
}

// HasAll reports whether every listed capability was detected.
func (s Set) HasAll(caps ...Capability) bool {
	for _, c := range caps {
		if !s[c] {
			return false
		}
	}
	return true
}

// Enabled returns the sorted names of detected capabilities.
func (s Set) Enabled() []string {
	names := make([]string, 0, len(s))
	for c, ok := range s {
		if ok {
			names = append(names, string(c))
		}
	}
	sort.Strings(names)
	return names
}
