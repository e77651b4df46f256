package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/exporter"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
)

func newService(erpClient ERPClient) *AnalysisService {
	return NewAnalysisService(
		decoder.NewTableCache(decoder.New(nil), 4, nil),
		analysis.NewAnalyzer(nil),
		exporter.NewReportWriter(nil),
		summary.NewService(nil, 0, nil),
		erpClient,
		nil,
	)
}

func sampleWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Cliente", "ene 2023", "feb 2023", "ene 2024", "feb 2024"},
		{"Acme", 100, 100, 180, 180},
		{"Crash", 1000, 1000, 100, 100},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestAnalyze(t *testing.T) {
	svc := newService(nil)
	data := sampleWorkbook(t)
	ctx := context.Background()

	report, err := svc.Analyze(ctx, data, "ventas.xlsx", analysis.Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "feb 2024 vs feb 2023", report.Meta.PairLabel)
	assert.Equal(t, "fallback", report.Narrative.Source)
	assert.NotEmpty(t, report.Narrative.Text)
	assert.Nil(t, report.Compare)
}

func TestAnalyzeWithCompare(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	compare := &analysis.Options{Mode: analysis.ModeYTD}
	report, err := svc.Analyze(ctx, sampleWorkbook(t), "ventas.xlsx", analysis.Options{}, compare)
	require.NoError(t, err)

	require.NotNil(t, report.Compare)
	assert.Equal(t, analysis.ModeYTD, report.Compare.Meta.Mode)
	assert.Nil(t, report.Compare.Compare, "comparison does not nest")
}

func TestAnalyzeDecodeFailure(t *testing.T) {
	svc := newService(nil)
	_, err := svc.Analyze(context.Background(), []byte("junk"), "ventas.xlsx", analysis.Options{}, nil)
	assert.ErrorIs(t, err, decoder.ErrUnsupportedFormat)
}

type fakeERP struct {
	table *analysis.Table
	err   error
}

func (f fakeERP) FetchSalesTable(context.Context) (*analysis.Table, error) { return f.table, f.err }
func (f fakeERP) TestConnection(context.Context) error                     { return f.err }

func TestAnalyzeFromERP(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := newService(nil)
		_, err := svc.AnalyzeFromERP(context.Background(), analysis.Options{}, nil)
		assert.ErrorIs(t, err, ErrERPNotConfigured)
		assert.ErrorIs(t, svc.TestERPConnection(context.Background()), ErrERPNotConfigured)
	})

	t.Run("fetch and analyze", func(t *testing.T) {
		table := &analysis.Table{
			Columns: []string{"Cliente", "ene 2023", "ene 2024"},
			Rows:    [][]string{{"Acme", "100", "150"}},
		}
		svc := newService(fakeERP{table: table})
		report, err := svc.AnalyzeFromERP(context.Background(), analysis.Options{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "ene 2024 vs ene 2023", report.Meta.PairLabel)
	})

	t.Run("fetch failure passes through", func(t *testing.T) {
		svc := newService(fakeERP{err: errors.New("upstream down")})
		_, err := svc.AnalyzeFromERP(context.Background(), analysis.Options{}, nil)
		assert.ErrorContains(t, err, "upstream down")
	})
}

func TestBuildExcelReport(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	data := sampleWorkbook(t)

	t.Run("single period untagged", func(t *testing.T) {
		out, err := svc.BuildExcelReport(ctx, data, "ventas.xlsx", analysis.Options{}, nil)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(out))
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Resumen Ejecutivo")
	})

	t.Run("multi period tagged", func(t *testing.T) {
		requests := []ExportRequest{
			{Mode: analysis.ModeMonth},
			{Mode: analysis.ModeYTD},
		}
		out, err := svc.BuildExcelReport(ctx, data, "ventas.xlsx", analysis.Options{}, requests)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(out))
		require.NoError(t, err)
		defer f.Close()
		names := f.GetSheetList()
		assert.Contains(t, names, "M-2024-02 Resumen Ejecutivo")
		assert.Contains(t, names, "YTD-2024-02 Resumen Ejecutivo")
	})

	t.Run("unsupportable period skipped in multi", func(t *testing.T) {
		requests := []ExportRequest{
			{Mode: analysis.ModeMonth},
			{Mode: analysis.ModeRolling6},
		}
		out, err := svc.BuildExcelReport(ctx, data, "ventas.xlsx", analysis.Options{}, requests)
		require.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(out))
		require.NoError(t, err)
		defer f.Close()
		for _, name := range f.GetSheetList() {
			assert.NotContains(t, name, "R6-")
		}
	})

	t.Run("single unsupportable period fails", func(t *testing.T) {
		_, err := svc.BuildExcelReport(ctx, data, "ventas.xlsx",
			analysis.Options{Mode: analysis.ModeRolling6}, nil)
		assert.Error(t, err)
	})
}

func TestCacheStats(t *testing.T) {
	svc := newService(nil)
	_, err := svc.Analyze(context.Background(), sampleWorkbook(t), "ventas.xlsx", analysis.Options{}, nil)
	require.NoError(t, err)
	stats := svc.CacheStats()
	assert.Equal(t, 1, stats.Size)
}
