// Package hexgrid resolves zone neighbourhoods on the Uber H3 grid.
package hexgrid

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// H3 implements ring lookups over H3 cell ids (for example "8928308280fffff").
type H3 struct{}

// NewH3 returns an H3 neighbourhood resolver.
func NewH3() H3 {
	return H3{}
}

// Ring returns zone followed by every cell within k grid steps of it, with no
// duplicates. k < 0 is treated as 0. An empty zone yields an empty ring and a
// zone that is not a valid H3 cell yields just the zone itself, so a malformed
// id in the trip log narrows the search instead of failing it.
func (H3) Ring(zone string, k int) []string {
	if zone == "" {
		return []string{}
	}
	if k < 0 {
		k = 0
	}

	cell := h3.Cell(h3.IndexFromString(zone))
	if !cell.IsValid() {
		return []string{zone}
	}
	if k == 0 {
		return []string{zone}
	}

	disk, err := h3.GridDisk(cell, k)
	if err != nil {
		return []string{zone}
	}

	// GridDisk includes the origin; it is already out[0] under its given name.
	seen := map[string]struct{}{zone: {}, cell.String(): {}}
	out := make([]string, 1, max(len(disk), 1))
	out[0] = zone
	for _, c := range disk {
		id := c.String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Validate reports whether zone parses as an H3 cell.
func Validate(zone string) error {
	if !h3.Cell(h3.IndexFromString(zone)).IsValid() {
		return fmt.Errorf("hexgrid.Validate: %q is not an H3 cell", zone)
	}
	return nil
}
