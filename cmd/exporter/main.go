package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/config"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/exporter"
	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "proxmox-node-exporter",
		Usage:   "adaptive Prometheus exporter for host and hypervisor metrics",
		Version: version.Long(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML config file",
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "metrics listen port",
				Sources: cli.EnvVars("EXPORTER_PORT"),
			},
			&cli.IntFlag{
				Name:    "interval",
				Usage:   "seconds between collection cycles",
				Sources: cli.EnvVars("COLLECTION_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "parallel",
				Usage:   "run collectors concurrently",
				Sources: cli.EnvVars("PARALLEL_COLLECTORS"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "parallel collection pool size",
				Sources: cli.EnvVars("MAX_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	// Flags override both the file and the environment.
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("interval") {
		cfg.IntervalSeconds = int(cmd.Int("interval"))
	}
	if cmd.IsSet("parallel") {
		cfg.Parallel = cmd.Bool("parallel")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return exporter.Run(ctx, cfg)
}
