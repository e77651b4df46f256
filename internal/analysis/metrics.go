package analysis

import "strings"

// Row holds the derived metrics of one entity for the resolved period.
// Recomputed fresh every request, never cached.
type Row struct {
	// Index points back into the Dataset value slices.
	Index    int
	Name     string
	Code     string
	Location string
	Country  string
	Cluster  string

	Previous float64
	Current  float64
	VarAbs   float64
	// Impact ranks severity independent of sign.
	Impact float64
	// VarPct is nil when no meaningful percentage exists (zero base with
	// nonzero current).
	VarPct *float64
}

// VarPercent is the shared percentage-variance rule, applied at row, group,
// series and cohort level alike:
//
//	previous != 0            -> (current-previous)/previous*100
//	previous == 0, current == 0 -> 0
//	previous == 0, current != 0 -> nil (no meaningful percentage off a zero base)
func VarPercent(current, previous float64) *float64 {
	if previous != 0 {
		v := (current - previous) / previous * 100
		return &v
	}
	if current == 0 {
		zero := 0.0
		return &zero
	}
	return nil
}

// yoyPercent is the stricter two-period variant: a zero base is nil even
// when the current value is zero, so rows lacking either denominator drop
// out of the persistent/recovery classification entirely.
func yoyPercent(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	v := (current - previous) / previous * 100
	return &v
}

// ComputeRows sums each entity over the resolved period columns and derives
// the variance metrics.
func ComputeRows(ds *Dataset, p *Period) []Row {
	currentIdx := make([]int, len(p.Current))
	for i, mc := range p.Current {
		currentIdx[i] = ds.monthIndex(mc)
	}
	previousIdx := make([]int, len(p.Previous))
	for i, mc := range p.Previous {
		previousIdx[i] = ds.monthIndex(mc)
	}

	rows := make([]Row, ds.RowCount())
	for r := range rows {
		var current, previous float64
		for _, m := range currentIdx {
			current += ds.Values[m][r]
		}
		for _, m := range previousIdx {
			previous += ds.Values[m][r]
		}
		varAbs := current - previous
		row := Row{
			Index:    r,
			Name:     ds.Names[r],
			Cluster:  ds.Clusters[r],
			Previous: previous,
			Current:  current,
			VarAbs:   varAbs,
			Impact:   abs(varAbs),
			VarPct:   VarPercent(current, previous),
		}
		if ds.HasCode {
			row.Code = ds.Codes[r]
		}
		if ds.HasLocation {
			row.Location = ds.Locations[r]
		}
		if ds.HasCountry {
			row.Country = ds.Countries[r]
		}
		rows[r] = row
	}
	return rows
}

// Filters narrow the row set. All filters are AND-combined and each is
// optional. Filtering never mutates the dataset: it always yields a derived
// view, and every downstream aggregate operates on that same view.
type Filters struct {
	// Search matches case-insensitively against name, code and, when the
	// columns exist, location and country.
	Search string
	// Location is an equality filter; "" and "all" disable it.
	Location string

	ImpactMin *float64
	ImpactMax *float64
	// VarMin/VarMax bounds are inclusive; rows with a nil percentage are
	// excluded from either bound test.
	VarMin *float64
	VarMax *float64
}

// ApplyFilters returns the filtered view of rows.
func ApplyFilters(ds *Dataset, rows []Row, f Filters) []Row {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	filterLocation := f.Location != "" && f.Location != "all" && ds.HasLocation

	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if needle != "" && !strings.Contains(searchHaystack(ds, row), needle) {
			continue
		}
		if filterLocation && row.Location != f.Location {
			continue
		}
		if f.ImpactMin != nil && row.Impact < *f.ImpactMin {
			continue
		}
		if f.ImpactMax != nil && row.Impact > *f.ImpactMax {
			continue
		}
		if f.VarMin != nil && (row.VarPct == nil || *row.VarPct < *f.VarMin) {
			continue
		}
		if f.VarMax != nil && (row.VarPct == nil || *row.VarPct > *f.VarMax) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func searchHaystack(ds *Dataset, row Row) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(row.Name))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(row.Code))
	if ds.HasLocation {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(row.Location))
	}
	if ds.HasCountry {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(row.Country))
	}
	return b.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
