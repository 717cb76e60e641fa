package ranking

import (
	"slices"

	"github.com/swail/pedcount/pkg/pedestrian"
)

// SiteTotal is the summed hourly count of one site.
type SiteTotal struct {
	Site  string `parquet:"sensor_name"`
	Total int64  `parquet:"hourly_counts"`
}

// Ranking lists sites by descending total.
type Ranking []SiteTotal

// Total returns the sum of all entries.
func (r Ranking) Total() int64 {
	var sum int64
	for _, e := range r {
		sum += e.Total
	}
	return sum
}

// TopN groups records by site name, sums their hourly counts and returns
// the n sites with the highest totals. Sites with equal totals keep the
// order in which they first appear in records. n < 1 yields an empty
// ranking.
func TopN(records pedestrian.RecordSet, n int) Ranking {
	if n < 1 {
		return Ranking{}
	}

	index := make(map[string]int)
	totals := make(Ranking, 0)
	for _, r := range records {
		i, ok := index[r.SensorName]
		if !ok {
			i = len(totals)
			index[r.SensorName] = i
			totals = append(totals, SiteTotal{Site: r.SensorName})
		}
		totals[i].Total += r.HourlyCount
	}

	slices.SortStableFunc(totals, func(a, b SiteTotal) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		default:
			return 0
		}
	})

	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}
