package analysis

import "sort"

// Growth bucket thresholds. A row qualifies on either condition; both
// comparisons are strict, as is the alert comparison, so values exactly at a
// threshold stay out of the bucket.
const (
	growthAbsThreshold = 3000.0
	growthPctThreshold = 50.0
)

// Buckets partitions the filtered view into the four single-period lists.
// New and Lost are mutually exclusive by construction; Alerts and Growth can
// overlap only under misconfigured thresholds, which is documented behavior
// rather than a bug.
type Buckets struct {
	Alerts []Row
	Growth []Row
	New    []Row
	Lost   []Row
}

// ClassifyBuckets applies the fixed single-period rules over the filtered
// rows. alertThreshold is a signed negative percentage.
func ClassifyBuckets(rows []Row, alertThreshold float64) Buckets {
	var b Buckets
	for _, row := range rows {
		if row.VarPct != nil && *row.VarPct < alertThreshold {
			b.Alerts = append(b.Alerts, row)
		}
		if row.VarAbs > growthAbsThreshold || (row.VarPct != nil && *row.VarPct > growthPctThreshold) {
			b.Growth = append(b.Growth, row)
		}
		if row.Previous == 0 && row.Current > 0 {
			b.New = append(b.New, row)
		}
		if row.Previous > 0 && row.Current == 0 {
			b.Lost = append(b.Lost, row)
		}
	}
	sort.SliceStable(b.Alerts, func(i, j int) bool { return b.Alerts[i].Impact > b.Alerts[j].Impact })
	sort.SliceStable(b.Growth, func(i, j int) bool { return b.Growth[i].VarAbs > b.Growth[j].VarAbs })
	sort.SliceStable(b.New, func(i, j int) bool { return b.New[i].Current > b.New[j].Current })
	sort.SliceStable(b.Lost, func(i, j int) bool { return b.Lost[i].Previous > b.Lost[j].Previous })
	return b
}

// IntelligentAlert is one row of the two-period classification.
type IntelligentAlert struct {
	Name       string  `json:"Cliente"`
	Location   *string `json:"Ubicacion"`
	VarPctLast float64 `json:"VarPctLast"`
	VarPctPrev float64 `json:"VarPctPrev"`
}

// IntelligentAlerts holds the persistent-decline and recovery lists. A row
// can appear in both when both conditions hold.
type IntelligentAlerts struct {
	Persistent []IntelligentAlert `json:"persistent"`
	Recovery   []IntelligentAlert `json:"recovery"`
}

// ClassifyTwoPeriod computes each row's YoY percentage for the latest
// recognized month and the one immediately before it, then classifies:
//
//	persistent: varLast <= persistThreshold && varPrev <= persistThreshold
//	recovery:   varPrev <= persistThreshold && varLast >= recoveryThreshold
//
// It needs both months to have a prior-year counterpart; otherwise the
// result is empty. Rows missing either percentage are excluded from both
// classifications.
func ClassifyTwoPeriod(ds *Dataset, rows []Row, persistThreshold, recoveryThreshold float64) IntelligentAlerts {
	result := IntelligentAlerts{
		Persistent: []IntelligentAlert{},
		Recovery:   []IntelligentAlert{},
	}
	if len(ds.Months) < 2 {
		return result
	}

	latest := ds.Months[len(ds.Months)-1]
	before := ds.Months[len(ds.Months)-2]
	latestPrev, ok1 := findMonthByKey(ds.Months, priorYearKey(latest))
	beforePrev, ok2 := findMonthByKey(ds.Months, priorYearKey(before))
	if !ok1 || !ok2 {
		return result
	}

	latestVals := ds.Values[ds.monthIndex(latest)]
	beforeVals := ds.Values[ds.monthIndex(before)]
	latestPrevVals := ds.Values[ds.monthIndex(latestPrev)]
	beforePrevVals := ds.Values[ds.monthIndex(beforePrev)]

	for _, row := range rows {
		varLast := yoyPercent(latestVals[row.Index], latestPrevVals[row.Index])
		varPrev := yoyPercent(beforeVals[row.Index], beforePrevVals[row.Index])
		if varLast == nil || varPrev == nil {
			continue
		}
		alert := IntelligentAlert{
			Name:       row.Name,
			Location:   optionalString(ds.HasLocation, row.Location),
			VarPctLast: *varLast,
			VarPctPrev: *varPrev,
		}
		if *varLast <= persistThreshold && *varPrev <= persistThreshold {
			result.Persistent = append(result.Persistent, alert)
		}
		if *varPrev <= persistThreshold && *varLast >= recoveryThreshold {
			result.Recovery = append(result.Recovery, alert)
		}
	}
	return result
}

func optionalString(present bool, value string) *string {
	if !present {
		return nil
	}
	return &value
}
