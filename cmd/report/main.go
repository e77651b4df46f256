// Command report runs the year-over-year analysis against a sales workbook
// from the command line and writes the styled Excel report, no server needed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/config"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/exporter"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/infrastructure"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/services"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
)

var (
	outputPath     string
	mode           string
	monthKey       string
	churnMonths    int
	alertThreshold float64
	logLevel       string
	allModes       bool
)

func main() {
	root := &cobra.Command{
		Use:   "report <workbook.xlsx>",
		Short: "Generate the year-over-year early warning report",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	root.Flags().StringVarP(&outputPath, "out", "o", "", "output path (defaults to <input>_informe.xlsx)")
	root.Flags().StringVarP(&mode, "mode", "m", "month", "period mode: month, ytd, rolling3 or rolling6")
	root.Flags().StringVar(&monthKey, "month", "", "anchor month as YYYY-MM (defaults to latest)")
	root.Flags().IntVar(&churnMonths, "churn-months", 0, "months of inactivity before an account counts as churned")
	root.Flags().Float64Var(&alertThreshold, "alert-threshold", 0, "variation percentage below which a drop alerts")
	root.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.Flags().BoolVar(&allModes, "all-modes", false, "render month, ytd, rolling3 and rolling6 into one workbook")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := infrastructure.InitializeLogger(config.LoggingConfig{Level: logLevel, Format: "text"})

	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	service := services.NewAnalysisService(
		decoder.NewTableCache(decoder.New(logger), 1, logger),
		analysis.NewAnalyzer(logger),
		exporter.NewReportWriter(logger),
		summary.NewService(nil, 0, logger),
		nil,
		logger,
	)

	opts := analysis.Options{
		Mode:           analysis.Mode(mode),
		MonthKey:       monthKey,
		AlertThreshold: alertThreshold,
		ChurnMonths:    churnMonths,
	}

	var requests []services.ExportRequest
	if allModes {
		for _, m := range []analysis.Mode{analysis.ModeMonth, analysis.ModeYTD, analysis.ModeRolling3, analysis.ModeRolling6} {
			requests = append(requests, services.ExportRequest{Mode: m, MonthKey: monthKey})
		}
	}

	workbook, err := service.BuildExcelReport(context.Background(), data, filepath.Base(input), opts, requests)
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	out := outputPath
	if out == "" {
		ext := filepath.Ext(input)
		out = input[:len(input)-len(ext)] + "_informe.xlsx"
	}
	if err := os.WriteFile(out, workbook, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	logger.Info("report written", slog.String("path", out), slog.Int("bytes", len(workbook)))
	fmt.Fprintf(cmd.OutOrStdout(), "Informe generado: %s\n", out)
	return nil
}
