package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MDArray is one RAID array parsed from /proc/mdstat.
type MDArray struct {
	Device      string // /dev/mdX
	State       string // active, inactive
	Level       string // raid1, raid5, ...
	TotalDisks  int
	ActiveDisks int
	FailedDisks int

	// Sync progress from a recovery/resync/reshape line, when present.
	SyncAction    string
	SyncPercent   float64
	SyncSpeedKBps float64
	Syncing       bool
}

var (
	mdHeaderRe  = regexp.MustCompile(`^(md\d+)\s*:\s*(\S+)\s+(\S+)`)
	mdDiskRe    = regexp.MustCompile(`^\S+\[\d+\](\(\w\))?$`)
	mdPercentRe = regexp.MustCompile(`(\d+\.\d+)%`)
	mdSpeedRe   = regexp.MustCompile(`speed=(\d+)K/sec`)
	mdActionRe  = regexp.MustCompile(`\b(recovery|resync|reshape)\b`)
)

// ParseMDStat parses the contents of /proc/mdstat. An array header line
// yields device, state and disk counts; each disk token carrying a
// trailing (F) failure marker decrements the active count. A subsequent
// progress line attaches percent-complete and speed to the most recent
// array. Malformed lines are skipped.
func ParseMDStat(text string) []MDArray {
	arrays := make([]MDArray, 0, 2)
	var current *MDArray

	for _, line := range strings.Split(text, "\n") {
		if m := mdHeaderRe.FindStringSubmatch(line); m != nil {
			fields := strings.Fields(line)
			arr := MDArray{
				Device: "/dev/" + m[1],
				State:  m[2],
				Level:  m[3],
			}
			// Disk tokens look like sda1[0] or sda1[0](F) for failed.
			for _, tok := range fields {
				if !mdDiskRe.MatchString(tok) {
					continue
				}
				arr.TotalDisks++
				if strings.Contains(tok, "(F)") {
					arr.FailedDisks++
				} else {
					arr.ActiveDisks++
				}
			}
			arrays = append(arrays, arr)
			current = &arrays[len(arrays)-1]
			continue
		}

		if current == nil {
			continue
		}
		action := mdActionRe.FindString(line)
		if action == "" {
			continue
		}
		current.SyncAction = action
		current.Syncing = true
		if m := mdPercentRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				current.SyncPercent = v
			}
		}
		if m := mdSpeedRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				current.SyncSpeedKBps = v
			}
		}
	}

	return arrays
}
