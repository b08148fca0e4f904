// Package version exposes build-time version information.
package version

import "fmt"

const versionDefault = "dev"

var (
	// overridden during build with ldflags, e.g.
	// -X "github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/version.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Version returns the build version string.
func Version() string {
	return version
}

// Commit returns the git commit the binary was built from.
func Commit() string {
	return commit
}

// Date returns the build date.
func Date() string {
	return date
}

// Long returns a human-readable version string for CLI output.
func Long() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}
