package analysis

import "sort"

// ClusterRow is one derived-cluster rollup entry.
type ClusterRow struct {
	Cluster string   `json:"Cluster"`
	Prev    float64  `json:"Prev"`
	Curr    float64  `json:"Curr"`
	VarAbs  float64  `json:"VarAbs"`
	VarPct  *float64 `json:"VarPct"`
}

// CountryRow is one country rollup entry.
type CountryRow struct {
	Country string   `json:"Country"`
	Prev    float64  `json:"Prev"`
	Curr    float64  `json:"Curr"`
	VarAbs  float64  `json:"VarAbs"`
	VarPct  *float64 `json:"VarPct"`
}

// LocationRow is one location rollup entry.
type LocationRow struct {
	Location string   `json:"Ubicacion"`
	Prev     float64  `json:"Prev"`
	Curr     float64  `json:"Curr"`
	VarAbs   float64  `json:"VarAbs"`
	VarPct   *float64 `json:"VarPct"`
}

// Clusters bundles the three segment rollups of the result envelope.
type Clusters struct {
	ByCluster []ClusterRow  `json:"byCluster"`
	ByCountry []CountryRow  `json:"byCountry"`
	ByArea    []LocationRow `json:"byArea"`
}

// segmentTotal accumulates sums for one group. The group percentage is
// recomputed from the group sums with the shared zero-handling rule, never
// averaged from row percentages.
type segmentTotal struct {
	label  string
	prev   float64
	curr   float64
	varAbs float64
	varPct *float64
}

func aggregateBy(rows []Row, key func(Row) string) []segmentTotal {
	grouped := make(map[string]*segmentTotal)
	for _, row := range rows {
		label := key(row)
		total, ok := grouped[label]
		if !ok {
			total = &segmentTotal{label: label}
			grouped[label] = total
		}
		total.prev += row.Previous
		total.curr += row.Current
		total.varAbs += row.VarAbs
	}

	totals := make([]segmentTotal, 0, len(grouped))
	for _, total := range grouped {
		total.varPct = VarPercent(total.curr, total.prev)
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].varAbs != totals[j].varAbs {
			return totals[i].varAbs > totals[j].varAbs
		}
		return totals[i].label < totals[j].label
	})
	return totals
}

// AggregateClusters rolls the filtered view up by derived cluster, sorted by
// summed absolute variance descending.
func AggregateClusters(rows []Row) []ClusterRow {
	totals := aggregateBy(rows, func(r Row) string { return r.Cluster })
	out := make([]ClusterRow, len(totals))
	for i, t := range totals {
		out[i] = ClusterRow{Cluster: t.label, Prev: t.prev, Curr: t.curr, VarAbs: t.varAbs, VarPct: t.varPct}
	}
	return out
}

// AggregateCountries rolls up by country. A source table without a country
// column silently yields an empty list instead of failing.
func AggregateCountries(ds *Dataset, rows []Row) []CountryRow {
	out := []CountryRow{}
	if !ds.HasCountry {
		return out
	}
	for _, t := range aggregateBy(rows, func(r Row) string { return r.Country }) {
		out = append(out, CountryRow{Country: t.label, Prev: t.prev, Curr: t.curr, VarAbs: t.varAbs, VarPct: t.varPct})
	}
	return out
}

// AggregateLocations rolls up by location, with the same silent skip when
// the column is absent.
func AggregateLocations(ds *Dataset, rows []Row) []LocationRow {
	out := []LocationRow{}
	if !ds.HasLocation {
		return out
	}
	for _, t := range aggregateBy(rows, func(r Row) string { return r.Location }) {
		out = append(out, LocationRow{Location: t.label, Prev: t.prev, Curr: t.curr, VarAbs: t.varAbs, VarPct: t.varPct})
	}
	return out
}
