package analysis

import (
	"context"
	"log/slog"
)

// Default thresholds, applied when the caller leaves them unset.
const (
	DefaultAlertThreshold    = -30.0
	DefaultRecoveryThreshold = 0.0
	DefaultChurnMonths       = 9
)

// Options configure one analysis request.
type Options struct {
	Mode     Mode
	MonthKey string

	// AlertThreshold is a signed negative percentage; zero means default.
	AlertThreshold float64
	// PersistThreshold defaults to AlertThreshold when nil.
	PersistThreshold *float64
	// RecoveryThreshold defaults to 0 when nil.
	RecoveryThreshold *float64
	// ChurnMonths defaults to 9 when not positive.
	ChurnMonths int

	Filters Filters
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeMonth
	}
	if o.AlertThreshold == 0 {
		o.AlertThreshold = DefaultAlertThreshold
	}
	if o.PersistThreshold == nil {
		persist := o.AlertThreshold
		o.PersistThreshold = &persist
	}
	if o.RecoveryThreshold == nil {
		recovery := DefaultRecoveryThreshold
		o.RecoveryThreshold = &recovery
	}
	if o.ChurnMonths <= 0 {
		o.ChurnMonths = DefaultChurnMonths
	}
	return o
}

// Analyzer runs the full derivation pipeline over a decoded table. It is
// stateless apart from its logger and safe for concurrent use.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger.With(slog.String("component", "analyzer"))}
}

// Analyze sanitizes the table, resolves the requested period and derives the
// complete result envelope. Input-shape and period-resolution failures
// return before any metrics are computed; aggregation edge cases never fail.
func (a *Analyzer) Analyze(ctx context.Context, table *Table, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	ds, err := BuildDataset(table)
	if err != nil {
		return nil, err
	}

	period, err := ResolvePeriod(ds.Months, opts.Mode, opts.MonthKey)
	if err != nil {
		return nil, err
	}

	rows := ComputeRows(ds, period)
	filtered := ApplyFilters(ds, rows, opts.Filters)

	a.logger.InfoContext(ctx, "analysis resolved",
		slog.String("mode", string(opts.Mode)),
		slog.String("period", period.PeriodLabel),
		slog.Int("months", len(ds.Months)),
		slog.Int("rows", len(rows)),
		slog.Int("filtered_rows", len(filtered)))

	buckets := ClassifyBuckets(filtered, opts.AlertThreshold)
	intelligent := ClassifyTwoPeriod(ds, filtered, *opts.PersistThreshold, *opts.RecoveryThreshold)

	monthKey := opts.MonthKey
	if monthKey == "" {
		monthKey = period.Current[len(period.Current)-1].Key()
	}

	result := &Result{
		Meta: Meta{
			LatestLabel:     period.CurrentLabel,
			PreviousLabel:   period.PreviousLabel,
			PairLabel:       period.PairLabel,
			PeriodLabel:     period.PeriodLabel,
			AlertThreshold:  opts.AlertThreshold,
			Mode:            opts.Mode,
			MonthKey:        monthKey,
			AvailableMonths: AvailableMonths(ds.Months),
			Filters: FilterMeta{
				Search:    opts.Filters.Search,
				Location:  locationOrAll(opts.Filters.Location),
				ImpactMin: opts.Filters.ImpactMin,
				ImpactMax: opts.Filters.ImpactMax,
				VarMin:    opts.Filters.VarMin,
				VarMax:    opts.Filters.VarMax,
			},
			IntelligentThresholds: IntelligentThresholds{
				Persistent: *opts.PersistThreshold,
				Recovery:   *opts.RecoveryThreshold,
			},
			ChurnMonths: opts.ChurnMonths,
		},
		Summary: buildSummary(filtered, buckets),
		Tables: Tables{
			Alerts:    toTableRows(ds, buckets.Alerts),
			Growth:    toTableRows(ds, buckets.Growth),
			New:       toTableRows(ds, buckets.New),
			Lost:      toTableRows(ds, buckets.Lost),
			Locations: AggregateLocations(ds, filtered),
		},
		Series:            buildSeries(ds, filtered),
		HotelSeries:       buildEntitySeries(ds, filtered, buckets),
		IntelligentAlerts: intelligent,
		Clusters: Clusters{
			ByCluster: AggregateClusters(filtered),
			ByCountry: AggregateCountries(ds, filtered),
			ByArea:    AggregateLocations(ds, filtered),
		},
		Churn:   DetectChurn(ds, filtered, opts.ChurnMonths),
		Cohorts: BuildCohorts(ds, filtered),
	}

	return result, nil
}

func locationOrAll(location string) string {
	if location == "" {
		return "all"
	}
	return location
}

func buildSummary(filtered []Row, b Buckets) Summary {
	s := Summary{
		AlertsCount: len(b.Alerts),
		GrowthCount: len(b.Growth),
		NewCount:    len(b.New),
		LostCount:   len(b.Lost),
	}
	for _, row := range filtered {
		s.TotalCurr += row.Current
		s.TotalPrev += row.Previous
	}
	s.TotalVar = s.TotalCurr - s.TotalPrev
	if s.TotalPrev > 0 {
		s.TotalVarPct = sanitizeFinite(s.TotalVar / s.TotalPrev * 100)
	}
	for _, row := range b.Alerts {
		s.AlertsImpact += row.VarAbs
	}
	for _, row := range b.Growth {
		s.GrowthImpact += row.VarAbs
	}
	for _, row := range b.New {
		s.NewRevenue += row.Current
	}
	for _, row := range b.Lost {
		s.LostRevenue += row.Previous
	}
	return s
}

func toTableRows(ds *Dataset, rows []Row) []TableRow {
	out := make([]TableRow, len(rows))
	for i, row := range rows {
		out[i] = TableRow{
			Name:     row.Name,
			Code:     optionalString(ds.HasCode, row.Code),
			Location: optionalString(ds.HasLocation, row.Location),
			Prev:     sanitizeFinite(row.Previous),
			Curr:     sanitizeFinite(row.Current),
			VarAbs:   sanitizeFinite(row.VarAbs),
			VarPct:   sanitizePct(row.VarPct),
		}
	}
	return out
}

// buildSeries totals each month with a resolved prior-year pair over the
// filtered view.
func buildSeries(ds *Dataset, filtered []Row) []SeriesPoint {
	series := []SeriesPoint{}
	for m, mc := range ds.Months {
		prev, ok := findMonthByKey(ds.Months, priorYearKey(mc))
		if !ok {
			continue
		}
		currVals := ds.Values[m]
		prevVals := ds.Values[ds.monthIndex(prev)]
		var currTotal, prevTotal float64
		for _, row := range filtered {
			currTotal += currVals[row.Index]
			prevTotal += prevVals[row.Index]
		}
		series = append(series, SeriesPoint{
			Key:    mc.Key(),
			Label:  mc.DisplayLabel(),
			Curr:   currTotal,
			Prev:   prevTotal,
			VarPct: sanitizePct(VarPercent(currTotal, prevTotal)),
		})
	}
	return series
}

const topEntitySeries = 10

// buildEntitySeries produces sparkline series for the top alert and growth
// entities.
func buildEntitySeries(ds *Dataset, filtered []Row, b Buckets) EntitySeries {
	return EntitySeries{
		Alerts: entitySeriesFor(ds, filtered, topNames(b.Alerts, topEntitySeries)),
		Growth: entitySeriesFor(ds, filtered, topNames(b.Growth, topEntitySeries)),
	}
}

func topNames(rows []Row, n int) []string {
	if len(rows) < n {
		n = len(rows)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = rows[i].Name
	}
	return names
}

func entitySeriesFor(ds *Dataset, filtered []Row, names []string) map[string][]EntitySeriesPoint {
	series := make(map[string][]EntitySeriesPoint, len(names))
	for _, name := range names {
		rowIdx := -1
		for _, row := range filtered {
			if row.Name == name {
				rowIdx = row.Index
				break
			}
		}
		if rowIdx < 0 {
			continue
		}
		points := []EntitySeriesPoint{}
		for m, mc := range ds.Months {
			prev, ok := findMonthByKey(ds.Months, priorYearKey(mc))
			if !ok {
				continue
			}
			curr := ds.Values[m][rowIdx]
			prevVal := ds.Values[ds.monthIndex(prev)][rowIdx]
			var varPct *float64
			if prevVal > 0 {
				pct := (curr - prevVal) / prevVal * 100
				varPct = &pct
			}
			points = append(points, EntitySeriesPoint{
				Label:  mc.DisplayLabel(),
				Curr:   curr,
				VarPct: sanitizePct(varPct),
			})
		}
		series[name] = points
	}
	return series
}
