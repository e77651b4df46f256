// Package analysis implements the year-over-year sales analysis engine.
// It turns a decoded sales export (one row per account, one column per
// calendar month) into the full result envelope the API and report writers
// consume.
//
// # Pipeline
//
// 1. Month recognition: heterogeneous column labels ("ene 2024", "2024-ene",
// "ene24") are parsed into chronological MonthColumns.
// 2. Sanitization: subtotal and blank rows are dropped and the table becomes
// a columnar Dataset.
// 3. Period resolution: the requested mode (month, ytd, rolling3, rolling6)
// and optional anchor month become concrete current/previous column sets
// with strict prior-year pairing.
// 4. Derivation: variance metrics, filters, alert buckets, two-period
// classification, segment rollups, churn detection and cohort retention all
// run over the same filtered view.
//
// # Usage
//
//	analyzer := analysis.NewAnalyzer(logger)
//	result, err := analyzer.Analyze(ctx, table, analysis.Options{Mode: analysis.ModeYTD})
package analysis
