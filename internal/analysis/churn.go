package analysis

// ChurnRow flags one entity with sustained zero activity.
type ChurnRow struct {
	Name           string  `json:"Cliente"`
	Location       *string `json:"Ubicacion"`
	MonthsInactive int     `json:"MonthsInactive"`
}

// DetectChurn reports the filtered rows whose trailing inactive stretch,
// measured against the latest recognized month, reaches churnMonths.
//
// An entity with no active month at all is treated as inactive since before
// the window began: its count is the earliest-to-latest month distance plus
// one.
func DetectChurn(ds *Dataset, rows []Row, churnMonths int) []ChurnRow {
	flagged := []ChurnRow{}
	if len(ds.Months) == 0 {
		return flagged
	}

	// One pass per month across all rows; the last month that sees a
	// positive value wins.
	lastActive := make([]int, len(rows))
	for i := range lastActive {
		lastActive[i] = -1
	}
	for m := range ds.Months {
		values := ds.Values[m]
		for i, row := range rows {
			if values[row.Index] > 0 {
				lastActive[i] = m
			}
		}
	}

	earliest := ds.Months[0]
	latest := ds.Months[len(ds.Months)-1]
	for i, row := range rows {
		var monthsInactive int
		if lastActive[i] < 0 {
			monthsInactive = monthsBetween(earliest, latest) + 1
		} else {
			monthsInactive = monthsBetween(ds.Months[lastActive[i]], latest)
		}
		if monthsInactive >= churnMonths {
			flagged = append(flagged, ChurnRow{
				Name:           row.Name,
				Location:       optionalString(ds.HasLocation, row.Location),
				MonthsInactive: monthsInactive,
			})
		}
	}
	return flagged
}

// monthsBetween is the calendar distance in months from a to b.
func monthsBetween(a, b MonthColumn) int {
	return (b.Year-a.Year)*12 + (b.Month - a.Month)
}
