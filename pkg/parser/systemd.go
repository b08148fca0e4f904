package parser

import "strings"

// ServiceUnit is one .service entry from a unit listing.
type ServiceUnit struct {
	Name        string
	LoadState   string
	ActiveState string
	SubState    string
	Active      bool
}

// UnitListing is the aggregate view of `systemctl list-units --all`.
type UnitListing struct {
	// StateCounts tallies units per active-state across all unit types.
	StateCounts map[string]int
	// Services carries a per-service record for entries whose name ends
	// in .service.
	Services []ServiceUnit
}

// ParseUnitList parses `systemctl list-units --all --no-legend
// --no-pager` output: whitespace-delimited rows of
// UNIT LOAD ACTIVE SUB [DESCRIPTION...]. Rows with fewer than four
// columns are skipped.
func ParseUnitList(text string) UnitListing {
	listing := UnitListing{StateCounts: make(map[string]int)}

	for _, line := range strings.Split(text, "\n") {
		// Newer systemctl versions prefix inactive rows with a bullet.
		line = strings.TrimPrefix(strings.TrimSpace(line), "● ")
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		unit, load, active, sub := parts[0], parts[1], parts[2], parts[3]
		listing.StateCounts[active]++

		if strings.HasSuffix(unit, ".service") {
			listing.Services = append(listing.Services, ServiceUnit{
				Name:        unit,
				LoadState:   load,
				ActiveState: active,
				SubState:    sub,
				Active:      active == "active",
			})
		}
	}

	return listing
}

// ParseFailedCount counts failed units in `systemctl list-units
// --failed --no-legend` output: one unit per non-empty line.
func ParseFailedCount(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
