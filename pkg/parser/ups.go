package parser

import "strings"

// ParseUPSList parses `upsc -l` output: one UPS name per line.
func ParseUPSList(text string) []string {
	names := make([]string, 0, 2)
	for _, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseUPSVars parses `upsc <ups>` output: "key: value" lines. Lines
// without a colon are skipped.
func ParseUPSVars(text string) map[string]string {
	vars := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = strings.TrimSpace(value)
	}
	return vars
}
