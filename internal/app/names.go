package app

import (
	"fmt"

	"presidente/internal/domain"
)

// DistinctNames fills blank names and suffixes repeats with a number, starting
// from the seat number, until the name is unused. The result can always seed a
// match.
func DistinctNames(names [domain.NumSeats]string) [domain.NumSeats]string {
	seen := make(map[string]bool, domain.NumSeats)
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		candidate := name
		for n := i + 1; seen[candidate]; n++ {
			candidate = fmt.Sprintf("%s (%d)", name, n)
		}
		seen[candidate] = true
		names[i] = candidate
	}
	return names
}
