// Package exporter renders analysis results into styled Excel workbooks.
// One sheet per report block: executive summary, variations, alerts, growth,
// intelligent alerts, new and lost accounts, segment rollups, churn and
// cohort matrices. Multi-period reports prefix sheet names with a period tag.
package exporter
