package analysis

import "math"

// TableRow is one entity row as exposed in the result tables. Code and
// Location are nil when the source table lacks those columns.
type TableRow struct {
	Name     string   `json:"Cliente"`
	Code     *string  `json:"HotelCode"`
	Location *string  `json:"Ubicacion"`
	Prev     float64  `json:"Prev"`
	Curr     float64  `json:"Curr"`
	VarAbs   float64  `json:"VarAbs"`
	VarPct   *float64 `json:"VarPct"`
}

// FilterMeta echoes the active filters back to the caller.
type FilterMeta struct {
	Search    string   `json:"search"`
	Location  string   `json:"location"`
	ImpactMin *float64 `json:"impactMin"`
	ImpactMax *float64 `json:"impactMax"`
	VarMin    *float64 `json:"varMin"`
	VarMax    *float64 `json:"varMax"`
}

// IntelligentThresholds echoes the two-period thresholds in effect.
type IntelligentThresholds struct {
	Persistent float64 `json:"persistent"`
	Recovery   float64 `json:"recovery"`
}

// Meta describes how the analysis was resolved.
type Meta struct {
	LatestLabel           string                `json:"latestLabel"`
	PreviousLabel         string                `json:"previousLabel"`
	PairLabel             string                `json:"pairLabel"`
	PeriodLabel           string                `json:"periodLabel"`
	AlertThreshold        float64               `json:"alertThreshold"`
	Mode                  Mode                  `json:"mode"`
	MonthKey              string                `json:"monthKey"`
	AvailableMonths       []AvailableMonth      `json:"availableMonths"`
	Filters               FilterMeta            `json:"filters"`
	IntelligentThresholds IntelligentThresholds `json:"intelligentThresholds"`
	ChurnMonths           int                   `json:"churnMonths"`
}

// Summary carries the aggregate totals and bucket counts/impacts.
type Summary struct {
	TotalPrev    float64 `json:"totalPrev"`
	TotalCurr    float64 `json:"totalCurr"`
	TotalVar     float64 `json:"totalVar"`
	TotalVarPct  float64 `json:"totalVarPct"`
	AlertsCount  int     `json:"alertsCount"`
	AlertsImpact float64 `json:"alertsImpact"`
	GrowthCount  int     `json:"growthCount"`
	GrowthImpact float64 `json:"growthImpact"`
	NewCount     int     `json:"newCount"`
	NewRevenue   float64 `json:"newRevenue"`
	LostCount    int     `json:"lostCount"`
	LostRevenue  float64 `json:"lostRevenue"`
}

// Tables holds the bucket row lists plus the location rollup.
type Tables struct {
	Alerts    []TableRow    `json:"alerts"`
	Growth    []TableRow    `json:"growth"`
	New       []TableRow    `json:"new"`
	Lost      []TableRow    `json:"lost"`
	Locations []LocationRow `json:"locations"`
}

// SeriesPoint is one month of the chronological totals series. Only months
// with a resolved prior-year pair appear.
type SeriesPoint struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Curr   float64  `json:"curr"`
	Prev   float64  `json:"prev"`
	VarPct *float64 `json:"varPct"`
}

// EntitySeriesPoint is one month of a per-entity sparkline.
type EntitySeriesPoint struct {
	Label  string   `json:"label"`
	Curr   float64  `json:"curr"`
	VarPct *float64 `json:"varPct"`
}

// EntitySeries maps the top alert and growth entities to their monthly
// series.
type EntitySeries struct {
	Alerts map[string][]EntitySeriesPoint `json:"alerts"`
	Growth map[string][]EntitySeriesPoint `json:"growth"`
}

// Result is the full analysis envelope handed to reporting and API
// consumers. Every floating value is finite-or-null by the time it leaves
// the engine.
type Result struct {
	Meta              Meta              `json:"meta"`
	Summary           Summary           `json:"summary"`
	Tables            Tables            `json:"tables"`
	Series            []SeriesPoint     `json:"series"`
	HotelSeries       EntitySeries      `json:"hotelSeries"`
	IntelligentAlerts IntelligentAlerts `json:"intelligentAlerts"`
	Clusters          Clusters          `json:"clusters"`
	Churn             []ChurnRow        `json:"churn"`
	Cohorts           CohortAnalysis    `json:"cohorts"`

	// Compare is a second analysis over the same table, attached when the
	// caller requests a comparison mode.
	Compare *Result `json:"compare,omitempty"`
}

// sanitizeFinite clamps non-finite floats to 0 so no NaN/Inf sentinel ever
// crosses the boundary.
func sanitizeFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// sanitizePct nils out non-finite percentages.
func sanitizePct(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
