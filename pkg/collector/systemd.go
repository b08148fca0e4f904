package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sddbus "github.com/coreos/go-systemd/v22/dbus"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/cmdutil"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/metrics"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/parser"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/probe"
)

// Systemd collects unit state counts and the overall manager state.
// The manager state comes from the systemd D-Bus API; unit listings
// come from systemctl because a full D-Bus ListUnits round trip is far
// heavier than parsing the plain listing.
type Systemd struct {
	sink *metrics.Sink
	log  *slog.Logger

	// newConn is swappable for tests.
	newConn func(ctx context.Context) (managerConn, error)
}

// managerConn is the slice of the systemd D-Bus connection we use.
type managerConn interface {
	GetManagerProperty(prop string) (string, error)
	Close()
}

func NewSystemd(env Env) *Systemd {
	s := env.Sink
	s.Declare("node_systemd_system_running", "Systemd system state", metrics.KindGauge, nil)
	s.Declare("node_systemd_units", "Total systemd units by state", metrics.KindGauge, []string{"state"})
	s.Declare("node_systemd_unit_state", "Systemd unit state", metrics.KindGauge, []string{"name", "state", "type"})

	return &Systemd{
		sink: s,
		log:  env.logger("systemd"),
		newConn: func(ctx context.Context) (managerConn, error) {
			return sddbus.NewWithContext(ctx)
		},
	}
}

func (c *Systemd) Name() string { return "systemd" }

func (c *Systemd) Requires() []probe.Capability {
	return []probe.Capability{probe.CapSystemd}
}

func (c *Systemd) Collect(ctx context.Context) error {
	if err := c.collectManagerState(ctx); err != nil {
		c.log.Warn("manager state unavailable", "error", err)
	}

	out, err := cmdutil.Run(ctx, defaults.SlowToolTimeout,
		"systemctl", "list-units", "--all", "--no-legend", "--no-pager", "--plain")
	if err != nil {
		// Degrade to the failed count alone; it is the listing that
		// matters most for alerting.
		return c.collectFailedOnly(ctx, err)
	}

	listing := parser.ParseUnitList(out)
	for state, n := range listing.StateCounts {
		c.sink.Set("node_systemd_units", float64(n), state)
	}
	for _, svc := range listing.Services {
		active := 0.0
		if svc.Active {
			active = 1.0
		}
		c.sink.Set("node_systemd_unit_state", active, svc.Name, svc.ActiveState, "service")
	}

	c.log.Debug("systemd collected", "services", len(listing.Services))
	return nil
}

func (c *Systemd) collectManagerState(ctx context.Context) error {
	conn, err := c.newConn(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	// The property value arrives as a quoted variant string.
	state, err := conn.GetManagerProperty("SystemState")
	if err != nil {
		return fmt.Errorf("SystemState: %w", err)
	}

	running := 0.0
	if strings.Trim(state, `"`) == "running" {
		running = 1.0
	}
	c.sink.Set("node_systemd_system_running", running)
	return nil
}

func (c *Systemd) collectFailedOnly(ctx context.Context, listErr error) error {
	out, err := cmdutil.Run(ctx, defaults.SlowToolTimeout,
		"systemctl", "list-units", "--failed", "--no-legend", "--no-pager", "--plain")
	if err != nil {
		return fmt.Errorf("list units: %w", listErr)
	}
	c.sink.Set("node_systemd_units", float64(parser.ParseFailedCount(out)), "failed")
	return nil
}
