// Package ranking narrows record sets to a day and ranks sites by their
// total pedestrian counts.
package ranking

import "github.com/swail/pedcount/pkg/pedestrian"

// FilterDay returns the records whose day of month equals day, in input
// order. The input is not modified.
func FilterDay(records pedestrian.RecordSet, day int) pedestrian.RecordSet {
	out := make(pedestrian.RecordSet, 0)
	for _, r := range records {
		if r.Day == day {
			out = append(out, r)
		}
	}
	return out
}
