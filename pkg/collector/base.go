package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// Base collects the always-on system metrics: CPU, memory, load,
// filesystems, disk and network I/O, process and kernel counters. It
// requires no capabilities and is eligible on every host.
type Base struct {
	sink *metrics.Sink
	log  *slog.Logger

	// prevIO holds the last observed io_time sample per device for the
	// busy-time utilization delta.
	mu     sync.Mutex
	prevIO map[string]ioSample

	procRoot string
	sysRoot  string
}

type ioSample struct {
	ioTimeMs uint64
	at       time.Time
}

// NewBase constructs the base collector and declares its families.
func NewBase(env Env) *Base {
	b := &Base{
		sink:     env.Sink,
		log:      env.logger("base"),
		prevIO:   make(map[string]ioSample),
		procRoot: "/proc",
		sysRoot:  "/sys",
	}

	s := env.Sink
	s.Declare("node_boot_time_seconds", "Node boot time", metrics.KindGauge, nil)
	s.Declare("node_uptime_seconds", "System uptime in seconds", metrics.KindGauge, nil)
	s.Declare("node_time_seconds", "System time", metrics.KindGauge, nil)
	s.Declare("node_time_zone_offset_seconds", "Time zone offset", metrics.KindGauge, nil)

	s.Declare("node_cpu_count", "Number of CPUs", metrics.KindGauge, []string{"type"})
	s.Declare("node_cpu_seconds_total", "CPU time spent", metrics.KindCounter, []string{"cpu", "mode"})
	s.Declare("node_cpu_usage_percent", "CPU usage percentage", metrics.KindGauge, []string{"cpu"})
	s.Declare("node_cpu_frequency_hertz", "CPU frequency", metrics.KindGauge, []string{"cpu"})
	s.Declare("node_cpu_throttles_total", "CPU throttling events", metrics.KindCounter, []string{"cpu", "type"})

	s.Declare("node_load1", "1 minute load average", metrics.KindGauge, nil)
	s.Declare("node_load5", "5 minute load average", metrics.KindGauge, nil)
	s.Declare("node_load15", "15 minute load average", metrics.KindGauge, nil)

	s.Declare("node_memory_MemTotal_bytes", "Total memory", metrics.KindGauge, nil)
	s.Declare("node_memory_MemFree_bytes", "Free memory", metrics.KindGauge, nil)
	s.Declare("node_memory_MemAvailable_bytes", "Available memory", metrics.KindGauge, nil)
	s.Declare("node_memory_Cached_bytes", "Cached memory", metrics.KindGauge, nil)
	s.Declare("node_memory_Buffers_bytes", "Buffer memory", metrics.KindGauge, nil)
	s.Declare("node_memory_Shared_bytes", "Shared memory", metrics.KindGauge, nil)
	s.Declare("node_memory_Slab_bytes", "Slab memory", metrics.KindGauge, nil)
	s.Declare("node_memory_pressure_ratio", "Memory pressure ratio", metrics.KindGauge, nil)
	s.Declare("node_memory_SwapTotal_bytes", "Total swap", metrics.KindGauge, nil)
	s.Declare("node_memory_SwapFree_bytes", "Free swap", metrics.KindGauge, nil)
	s.Declare("node_memory_swap_used_percent", "Swap usage percentage", metrics.KindGauge, nil)

	fsLabels := []string{"device", "mountpoint", "fstype"}
	s.Declare("node_filesystem_size_bytes", "Filesystem size", metrics.KindGauge, fsLabels)
	s.Declare("node_filesystem_free_bytes", "Filesystem free", metrics.KindGauge, fsLabels)
	s.Declare("node_filesystem_avail_bytes", "Filesystem available", metrics.KindGauge, fsLabels)
	s.Declare("node_filesystem_files", "Total file nodes", metrics.KindGauge, fsLabels)
	s.Declare("node_filesystem_files_free", "Free file nodes", metrics.KindGauge, fsLabels)
	s.Declare("node_filesystem_readonly", "Filesystem is read-only", metrics.KindGauge, fsLabels)

	dev := []string{"device"}
	s.Declare("node_disk_read_bytes_total", "Disk bytes read", metrics.KindCounter, dev)
	s.Declare("node_disk_written_bytes_total", "Disk bytes written", metrics.KindCounter, dev)
	s.Declare("node_disk_reads_completed_total", "Disk reads completed", metrics.KindCounter, dev)
	s.Declare("node_disk_writes_completed_total", "Disk writes completed", metrics.KindCounter, dev)
	s.Declare("node_disk_read_time_seconds_total", "Time spent reading", metrics.KindCounter, dev)
	s.Declare("node_disk_write_time_seconds_total", "Time spent writing", metrics.KindCounter, dev)
	s.Declare("node_disk_io_time_seconds_total", "Disk I/O time", metrics.KindCounter, dev)
	s.Declare("node_disk_io_now", "Number of I/Os in progress", metrics.KindGauge, dev)
	s.Declare("node_disk_utilization", "Disk busy-time percentage over the last interval", metrics.KindGauge, dev)

	s.Declare("node_network_receive_bytes_total", "Network bytes received", metrics.KindCounter, dev)
	s.Declare("node_network_transmit_bytes_total", "Network bytes sent", metrics.KindCounter, dev)
	s.Declare("node_network_receive_packets_total", "Network packets received", metrics.KindCounter, dev)
	s.Declare("node_network_transmit_packets_total", "Network packets sent", metrics.KindCounter, dev)
	s.Declare("node_network_receive_errs_total", "Network receive errors", metrics.KindCounter, dev)
	s.Declare("node_network_transmit_errs_total", "Network transmit errors", metrics.KindCounter, dev)
	s.Declare("node_network_receive_drop_total", "Network receive drops", metrics.KindCounter, dev)
	s.Declare("node_network_transmit_drop_total", "Network transmit drops", metrics.KindCounter, dev)
	s.Declare("node_network_speed_bytes", "Network interface speed", metrics.KindGauge, dev)
	s.Declare("node_network_mtu_bytes", "Network interface MTU", metrics.KindGauge, dev)
	s.Declare("node_network_up", "Network interface is up", metrics.KindGauge, dev)
	s.Declare("node_network_tcp_connections", "TCP connections by state", metrics.KindGauge, []string{"state"})
	s.Declare("node_network_udp_connections", "UDP connections", metrics.KindGauge, nil)

	s.Declare("node_procs_running", "Running processes", metrics.KindGauge, nil)
	s.Declare("node_procs_blocked", "Blocked processes", metrics.KindGauge, nil)
	s.Declare("node_procs_total", "Total processes", metrics.KindGauge, nil)
	s.Declare("node_threads_total", "Total scheduling entities", metrics.KindGauge, nil)
	s.Declare("node_forks_total", "Total forks since boot", metrics.KindCounter, nil)
	s.Declare("node_context_switches_total", "Total context switches", metrics.KindCounter, nil)
	s.Declare("node_intr_total", "Total interrupts", metrics.KindCounter, nil)

	s.Declare("node_filefd_allocated", "Allocated file descriptors", metrics.KindGauge, nil)
	s.Declare("node_filefd_maximum", "Maximum file descriptors", metrics.KindGauge, nil)
	s.Declare("node_entropy_available_bits", "Available entropy", metrics.KindGauge, nil)

	s.Declare("node_vmstat_pgfault", "Page faults", metrics.KindCounter, nil)
	s.Declare("node_vmstat_pgmajfault", "Major page faults", metrics.KindCounter, nil)
	s.Declare("node_vmstat_pswpin", "Pages swapped in", metrics.KindCounter, nil)
	s.Declare("node_vmstat_pswpout", "Pages swapped out", metrics.KindCounter, nil)

	s.DeclareInfo("node_kernel_version", "Kernel version info")

	return b
}

func (b *Base) Name() string { return "base" }

func (b *Base) Requires() []probe.Capability { return nil }

// Collect samples every base subsystem. A failing subsystem is logged
// and folded into the returned error, but never blocks the others.
func (b *Base) Collect(ctx context.Context) error {
	sections := []struct {
		name string
		run  func(context.Context) error
	}{
		{"time", b.collectTime},
		{"cpu", b.collectCPU},
		{"load", b.collectLoad},
		{"memory", b.collectMemory},
		{"filesystem", b.collectFilesystems},
		{"diskio", b.collectDiskIO},
		{"network", b.collectNetwork},
		{"connections", b.collectConnections},
		{"procs", b.collectProcs},
		{"kernel", b.collectKernel},
	}

	var errs []error
	for _, sec := range sections {
		if err := sec.run(ctx); err != nil {
			b.log.Warn("base section failed", "section", sec.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sec.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Base) collectTime(ctx context.Context) error {
	now := time.Now()
	b.sink.Set("node_time_seconds", float64(now.Unix()))
	_, offset := now.Zone()
	b.sink.Set("node_time_zone_offset_seconds", float64(offset))

	boot, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return fmt.Errorf("boot time: %w", err)
	}
	b.sink.Set("node_boot_time_seconds", float64(boot))

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return fmt.Errorf("uptime: %w", err)
	}
	b.sink.Set("node_uptime_seconds", float64(uptime))
	return nil
}

func (b *Base) collectCPU(ctx context.Context) error {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("cpu counts: %w", err)
	}
	b.sink.Set("node_cpu_count", float64(logical), "logical")
	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		b.sink.Set("node_cpu_count", float64(physical), "physical")
	}

	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("cpu times: %w", err)
	}
	for _, t := range times {
		name := t.CPU
		b.sink.IncrementTo("node_cpu_seconds_total", t.User, name, "user")
		b.sink.IncrementTo("node_cpu_seconds_total", t.System, name, "system")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Idle, name, "idle")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Nice, name, "nice")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Iowait, name, "iowait")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Irq, name, "irq")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Softirq, name, "softirq")
		b.sink.IncrementTo("node_cpu_seconds_total", t.Steal, name, "steal")
	}

	// Interval 0 measures against the previous call, which matches the
	// scheduler cycle cadence.
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err == nil {
		for i, p := range percents {
			b.sink.Set("node_cpu_usage_percent", p, "cpu"+strconv.Itoa(i))
		}
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil {
		for i, info := range infos {
			b.sink.Set("node_cpu_frequency_hertz", info.Mhz*1e6, "cpu"+strconv.Itoa(i))
		}
	}

	b.collectThrottles()
	return nil
}

// collectThrottles reads the thermal throttle event counts sysfs exposes
// per logical CPU. The files only exist on CPUs that report throttling
// (Intel, mostly), so an empty glob is not an error.
func (b *Base) collectThrottles() {
	paths, err := filepath.Glob(b.sysRoot + "/devices/system/cpu/cpu*/thermal_throttle/*_throttle_count")
	if err != nil {
		return
	}
	for _, path := range paths {
		cpuName := filepath.Base(filepath.Dir(filepath.Dir(path)))
		if _, err := strconv.Atoi(strings.TrimPrefix(cpuName, "cpu")); err != nil {
			continue
		}

		kind := "package"
		if strings.HasPrefix(filepath.Base(path), "core") {
			kind = "core"
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64); err == nil {
			b.sink.IncrementTo("node_cpu_throttles_total", v, cpuName, kind)
		}
	}
}

func (b *Base) collectLoad(ctx context.Context) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return fmt.Errorf("load average: %w", err)
	}
	b.sink.Set("node_load1", avg.Load1)
	b.sink.Set("node_load5", avg.Load5)
	b.sink.Set("node_load15", avg.Load15)
	return nil
}

func (b *Base) collectMemory(ctx context.Context) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("virtual memory: %w", err)
	}
	b.sink.Set("node_memory_MemTotal_bytes", float64(vm.Total))
	b.sink.Set("node_memory_MemFree_bytes", float64(vm.Free))
	b.sink.Set("node_memory_MemAvailable_bytes", float64(vm.Available))
	b.sink.Set("node_memory_Cached_bytes", float64(vm.Cached))
	b.sink.Set("node_memory_Buffers_bytes", float64(vm.Buffers))
	b.sink.Set("node_memory_Shared_bytes", float64(vm.Shared))
	b.sink.Set("node_memory_Slab_bytes", float64(vm.Slab))
	if vm.Total > 0 {
		b.sink.Set("node_memory_pressure_ratio", float64(vm.Total-vm.Available)/float64(vm.Total))
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("swap memory: %w", err)
	}
	b.sink.Set("node_memory_SwapTotal_bytes", float64(swap.Total))
	b.sink.Set("node_memory_SwapFree_bytes", float64(swap.Free))
	b.sink.Set("node_memory_swap_used_percent", swap.UsedPercent)
	return nil
}

func (b *Base) collectFilesystems(ctx context.Context) error {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return fmt.Errorf("partitions: %w", err)
	}

	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		lv := []string{p.Device, p.Mountpoint, p.Fstype}
		b.sink.Set("node_filesystem_size_bytes", float64(usage.Total), lv...)
		b.sink.Set("node_filesystem_free_bytes", float64(usage.Free), lv...)
		b.sink.Set("node_filesystem_avail_bytes", float64(usage.Total-usage.Used), lv...)
		b.sink.Set("node_filesystem_files", float64(usage.InodesTotal), lv...)
		b.sink.Set("node_filesystem_files_free", float64(usage.InodesFree), lv...)

		readonly := 0.0
		for _, opt := range p.Opts {
			if opt == "ro" {
				readonly = 1.0
				break
			}
		}
		b.sink.Set("node_filesystem_readonly", readonly, lv...)
	}
	return nil
}

func (b *Base) collectDiskIO(ctx context.Context) error {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return fmt.Errorf("disk io counters: %w", err)
	}

	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, io := range counters {
		b.sink.IncrementTo("node_disk_read_bytes_total", float64(io.ReadBytes), name)
		b.sink.IncrementTo("node_disk_written_bytes_total", float64(io.WriteBytes), name)
		b.sink.IncrementTo("node_disk_reads_completed_total", float64(io.ReadCount), name)
		b.sink.IncrementTo("node_disk_writes_completed_total", float64(io.WriteCount), name)
		b.sink.IncrementTo("node_disk_read_time_seconds_total", float64(io.ReadTime)/1000, name)
		b.sink.IncrementTo("node_disk_write_time_seconds_total", float64(io.WriteTime)/1000, name)
		b.sink.IncrementTo("node_disk_io_time_seconds_total", float64(io.IoTime)/1000, name)
		b.sink.Set("node_disk_io_now", float64(io.IopsInProgress), name)

		// Utilization is the busy-time fraction of the wall-clock delta
		// since the previous sample of this device, not a since-boot
		// average.
		if prev, ok := b.prevIO[name]; ok {
			wallMs := now.Sub(prev.at).Milliseconds()
			if wallMs > 0 && io.IoTime >= prev.ioTimeMs {
				util := float64(io.IoTime-prev.ioTimeMs) / float64(wallMs) * 100
				if util > 100 {
					util = 100
				}
				b.sink.Set("node_disk_utilization", util, name)
			}
		}
		b.prevIO[name] = ioSample{ioTimeMs: io.IoTime, at: now}
	}
	return nil
}

func (b *Base) collectNetwork(ctx context.Context) error {
	counters, err := gnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("net io counters: %w", err)
	}
	for _, io := range counters {
		name := io.Name
		b.sink.IncrementTo("node_network_receive_bytes_total", float64(io.BytesRecv), name)
		b.sink.IncrementTo("node_network_transmit_bytes_total", float64(io.BytesSent), name)
		b.sink.IncrementTo("node_network_receive_packets_total", float64(io.PacketsRecv), name)
		b.sink.IncrementTo("node_network_transmit_packets_total", float64(io.PacketsSent), name)
		b.sink.IncrementTo("node_network_receive_errs_total", float64(io.Errin), name)
		b.sink.IncrementTo("node_network_transmit_errs_total", float64(io.Errout), name)
		b.sink.IncrementTo("node_network_receive_drop_total", float64(io.Dropin), name)
		b.sink.IncrementTo("node_network_transmit_drop_total", float64(io.Dropout), name)
	}

	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("interfaces: %w", err)
	}
	for _, iface := range ifaces {
		b.sink.Set("node_network_mtu_bytes", float64(iface.MTU), iface.Name)

		up := 0.0
		for _, f := range iface.Flags {
			if f == "up" {
				up = 1.0
				break
			}
		}
		b.sink.Set("node_network_up", up, iface.Name)

		if speed, ok := b.interfaceSpeedBytes(iface.Name); ok {
			b.sink.Set("node_network_speed_bytes", speed, iface.Name)
		}
	}
	return nil
}

// interfaceSpeedBytes reads the sysfs link speed, reported in Mbit/s.
// Virtual interfaces report -1 or nothing and are skipped.
func (b *Base) interfaceSpeedBytes(name string) (float64, bool) {
	data, err := os.ReadFile(b.sysRoot + "/class/net/" + name + "/speed")
	if err != nil {
		return 0, false
	}
	mbit, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || mbit < 0 {
		return 0, false
	}
	return mbit * 1e6 / 8, true
}

func (b *Base) collectConnections(ctx context.Context) error {
	tcp, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return fmt.Errorf("tcp connections: %w", err)
	}
	byState := make(map[string]int)
	for _, c := range tcp {
		byState[c.Status]++
	}
	for state, n := range byState {
		b.sink.Set("node_network_tcp_connections", float64(n), state)
	}

	udp, err := gnet.ConnectionsWithContext(ctx, "udp")
	if err != nil {
		return fmt.Errorf("udp connections: %w", err)
	}
	b.sink.Set("node_network_udp_connections", float64(len(udp)))
	return nil
}

func (b *Base) collectProcs(ctx context.Context) error {
	misc, err := load.MiscWithContext(ctx)
	if err != nil {
		return fmt.Errorf("proc stats: %w", err)
	}
	b.sink.Set("node_procs_running", float64(misc.ProcsRunning))
	b.sink.Set("node_procs_blocked", float64(misc.ProcsBlocked))
	b.sink.Set("node_threads_total", float64(misc.ProcsTotal))
	b.sink.IncrementTo("node_context_switches_total", float64(misc.Ctxt))

	if pids, err := process.PidsWithContext(ctx); err == nil {
		b.sink.Set("node_procs_total", float64(len(pids)))
	}
	return nil
}

// collectKernel covers the /proc counters gopsutil does not surface:
// interrupts, forks, file descriptors, vmstat, and entropy.
func (b *Base) collectKernel(ctx context.Context) error {
	if err := b.collectProcStat(); err != nil {
		return err
	}

	if fields, err := b.procFields("/sys/fs/file-nr"); err == nil && len(fields) >= 3 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			b.sink.Set("node_filefd_allocated", v)
		}
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
			b.sink.Set("node_filefd_maximum", v)
		}
	}

	if fields, err := b.procFields("/sys/kernel/random/entropy_avail"); err == nil && len(fields) >= 1 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			b.sink.Set("node_entropy_available_bits", v)
		}
	}

	b.collectVMStat()

	if info, err := host.InfoWithContext(ctx); err == nil {
		b.sink.SetInfo("node_kernel_version", map[string]string{
			"release": info.KernelVersion,
			"machine": info.KernelArch,
		})
	}
	return nil
}

func (b *Base) collectProcStat() error {
	data, err := os.ReadFile(b.procRoot + "/stat")
	if err != nil {
		return fmt.Errorf("read stat: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "intr":
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
				b.sink.IncrementTo("node_intr_total", v)
			}
		case "processes":
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
				b.sink.IncrementTo("node_forks_total", v)
			}
		}
	}
	return nil
}

func (b *Base) collectVMStat() {
	data, err := os.ReadFile(b.procRoot + "/vmstat")
	if err != nil {
		return
	}

	wanted := map[string]string{
		"pgfault":    "node_vmstat_pgfault",
		"pgmajfault": "node_vmstat_pgmajfault",
		"pswpin":     "node_vmstat_pswpin",
		"pswpout":    "node_vmstat_pswpout",
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		name, ok := wanted[fields[0]]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			b.sink.IncrementTo(name, v)
		}
	}
}

func (b *Base) procFields(rel string) ([]string, error) {
	data, err := os.ReadFile(b.procRoot + rel)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}
