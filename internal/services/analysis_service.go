package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/erp"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/exporter"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
)

// ErrERPNotConfigured is returned by the ERP operations when no client was
// wired at startup.
var ErrERPNotConfigured = erp.ErrNotConfigured

// Report is the service-level envelope: the engine result plus the narrative.
type Report struct {
	*analysis.Result
	Narrative summary.Narrative `json:"narrative"`
}

// ERPClient is the slice of the ERP integration this service needs.
type ERPClient interface {
	FetchSalesTable(ctx context.Context) (*analysis.Table, error)
	TestConnection(ctx context.Context) error
}

// AnalysisService wires decoding, caching, analysis, narrative generation
// and report rendering behind one facade the transport layer calls.
type AnalysisService struct {
	cache      *decoder.TableCache
	analyzer   *analysis.Analyzer
	writer     *exporter.ReportWriter
	summarizer *summary.Service
	erp        ERPClient
	logger     *slog.Logger
}

// NewAnalysisService creates the service. The ERP client may be nil when the
// integration is not configured.
func NewAnalysisService(
	cache *decoder.TableCache,
	analyzer *analysis.Analyzer,
	writer *exporter.ReportWriter,
	summarizer *summary.Service,
	erpClient ERPClient,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cache:      cache,
		analyzer:   analyzer,
		writer:     writer,
		summarizer: summarizer,
		erp:        erpClient,
		logger:     logger.With(slog.String("component", "analysis_service")),
	}
}

// Analyze decodes the upload (through the cache) and runs the engine. When
// compare is non-nil a second analysis over the same table is attached to
// the result.
func (s *AnalysisService) Analyze(ctx context.Context, data []byte, filename string, opts analysis.Options, compare *analysis.Options) (*Report, error) {
	table, err := s.cache.GetOrDecode(data, filename)
	if err != nil {
		return nil, err
	}
	return s.analyzeTable(ctx, table, opts, compare)
}

// AnalyzeFromERP pulls the sales export straight from the ERP and analyzes
// it. ERP tables are never cached: the upstream data moves under us.
func (s *AnalysisService) AnalyzeFromERP(ctx context.Context, opts analysis.Options, compare *analysis.Options) (*Report, error) {
	if s.erp == nil {
		return nil, ErrERPNotConfigured
	}
	table, err := s.erp.FetchSalesTable(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyzeTable(ctx, table, opts, compare)
}

// TestERPConnection verifies the ERP credentials with one round trip.
func (s *AnalysisService) TestERPConnection(ctx context.Context) error {
	if s.erp == nil {
		return ErrERPNotConfigured
	}
	return s.erp.TestConnection(ctx)
}

func (s *AnalysisService) analyzeTable(ctx context.Context, table *analysis.Table, opts analysis.Options, compare *analysis.Options) (*Report, error) {
	result, err := s.analyzer.Analyze(ctx, table, opts)
	if err != nil {
		return nil, err
	}
	if compare != nil {
		compared, err := s.analyzer.Analyze(ctx, table, *compare)
		if err != nil {
			return nil, fmt.Errorf("comparison analysis: %w", err)
		}
		result.Compare = compared
	}
	return &Report{Result: result, Narrative: s.summarizer.Summarize(ctx, result)}, nil
}

// ExportRequest selects one period to render into the workbook.
type ExportRequest struct {
	Mode     analysis.Mode `json:"mode" validate:"omitempty,oneof=month ytd rolling3 rolling6"`
	MonthKey string        `json:"monthKey" validate:"omitempty,datetime=2006-01"`
}

// tag keeps multi-period sheet names short and unambiguous.
func (r ExportRequest) tag(resolvedKey string) string {
	prefix := map[analysis.Mode]string{
		analysis.ModeMonth:    "M",
		analysis.ModeYTD:      "YTD",
		analysis.ModeRolling3: "R3",
		analysis.ModeRolling6: "R6",
	}[r.Mode]
	if prefix == "" {
		prefix = "M"
	}
	return prefix + "-" + resolvedKey
}

// BuildExcelReport analyzes the upload once per requested period and renders
// everything into a single workbook. A single-period report drops the sheet
// tag.
func (s *AnalysisService) BuildExcelReport(ctx context.Context, data []byte, filename string, opts analysis.Options, requests []ExportRequest) ([]byte, error) {
	table, err := s.cache.GetOrDecode(data, filename)
	if err != nil {
		return nil, err
	}

	if len(requests) == 0 {
		requests = []ExportRequest{{Mode: opts.Mode, MonthKey: opts.MonthKey}}
	}

	sections := make([]exporter.Section, 0, len(requests))
	for _, req := range requests {
		reqOpts := opts
		reqOpts.Mode = req.Mode
		reqOpts.MonthKey = req.MonthKey
		result, err := s.analyzer.Analyze(ctx, table, reqOpts)
		if err != nil {
			if len(requests) > 1 && (errors.Is(err, analysis.ErrNoPriorYear) || errors.Is(err, analysis.ErrInsufficientHistory)) {
				// Multi-period exports skip periods the data cannot
				// support instead of failing the whole report.
				s.logger.WarnContext(ctx, "skipping unexportable period",
					slog.String("mode", string(req.Mode)),
					slog.String("month_key", req.MonthKey))
				continue
			}
			return nil, err
		}
		section := exporter.Section{
			Result:    result,
			Narrative: s.summarizer.Summarize(ctx, result).Text,
		}
		if len(requests) > 1 {
			section.Tag = req.tag(result.Meta.MonthKey)
		}
		sections = append(sections, section)
	}
	if len(sections) == 0 {
		return nil, analysis.ErrNoPriorYear
	}
	return s.writer.BytesMulti(sections)
}

// CacheStats exposes the decoded-table cache counters for the health
// endpoint.
func (s *AnalysisService) CacheStats() decoder.CacheStats {
	return s.cache.Stats()
}
