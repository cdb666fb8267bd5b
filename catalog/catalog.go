// Package catalog holds the ordered list of junction identifiers the
// collector captures. Each identifier is a key in the upstream feed, a road
// section code plus junction label such as "21:J19".
package catalog

import (
	"fmt"
	"strings"
)

// m1 lists the monitored M1 junctions, south to north.
var m1 = []string{
	"02:J2", "06:J6A", "10:J10", "15:J14", "21:J19", "23:J21",
	"28:J24", "33:J28", "38:J32", "40:J34", "46:J39", "50:J43|44",
}

// Default returns a copy of the built-in M1 catalog.
func Default() []string {
	out := make([]string, len(m1))
	copy(out, m1)
	return out
}

// Parse splits a comma separated list, trimming blanks and dropping empty entries.
func Parse(list string) []string {
	var out []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Validate rejects an empty catalog and repeated identifiers, which would
// otherwise capture the same junction twice in one run.
func Validate(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("junction catalog is empty")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("junction %q listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}
