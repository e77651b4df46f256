package analysis

import (
	"math"
	"sort"
)

// Cohort groups the entities sharing the same first-active month. Active and
// Revenue carry one entry per recognized month; months before the cohort's
// base month hold nil, not zero.
type Cohort struct {
	Key     string     `json:"cohort"`
	Size    int        `json:"size"`
	Active  []*float64 `json:"active"`
	Revenue []*float64 `json:"revenue"`
}

// CohortAnalysis is the cohort table: the chronological month keys plus one
// row per cohort, sorted by cohort key ascending.
type CohortAnalysis struct {
	Columns []string `json:"columns"`
	Rows    []Cohort `json:"rows"`
}

// BuildCohorts keys every filtered row by its first month with positive
// activity and computes retained-count and retained-revenue percentages
// relative to each cohort's base month. Rows never active are excluded
// entirely.
func BuildCohorts(ds *Dataset, rows []Row) CohortAnalysis {
	columns := make([]string, len(ds.Months))
	for i, mc := range ds.Months {
		columns[i] = mc.Key()
	}
	analysis := CohortAnalysis{Columns: columns, Rows: []Cohort{}}
	if len(ds.Months) == 0 {
		return analysis
	}

	// First-active month per row, found month-by-month so each value
	// column is swept once.
	firstActive := make([]int, len(rows))
	for i := range firstActive {
		firstActive[i] = -1
	}
	for m := range ds.Months {
		values := ds.Values[m]
		for i, row := range rows {
			if firstActive[i] < 0 && values[row.Index] > 0 {
				firstActive[i] = m
			}
		}
	}

	members := make(map[int][]int) // base month index -> dataset row indices
	for i, row := range rows {
		if firstActive[i] < 0 {
			continue
		}
		members[firstActive[i]] = append(members[firstActive[i]], row.Index)
	}

	for base, rowIdx := range members {
		size := len(rowIdx)
		baseMonth := ds.Months[base]
		var baseRevenue float64
		for _, r := range rowIdx {
			baseRevenue += ds.Values[base][r]
		}

		cohort := Cohort{
			Key:     baseMonth.Key(),
			Size:    size,
			Active:  make([]*float64, len(ds.Months)),
			Revenue: make([]*float64, len(ds.Months)),
		}
		for m, mc := range ds.Months {
			if mc.SortKey() < baseMonth.SortKey() {
				continue
			}
			activeCount := 0
			var revenue float64
			for _, r := range rowIdx {
				v := ds.Values[m][r]
				if v > 0 {
					activeCount++
				}
				revenue += v
			}
			activePct := round1(float64(activeCount) / float64(size) * 100)
			cohort.Active[m] = &activePct

			revenuePct := 0.0
			if baseRevenue > 0 {
				revenuePct = round1(revenue / baseRevenue * 100)
			}
			cohort.Revenue[m] = &revenuePct
		}
		analysis.Rows = append(analysis.Rows, cohort)
	}

	sort.Slice(analysis.Rows, func(i, j int) bool {
		return analysis.Rows[i].Key < analysis.Rows[j].Key
	})
	return analysis
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
