package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/exporter"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/services"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
)

func newTestRouter(erpClient services.ERPClient) chi.Router {
	service := services.NewAnalysisService(
		decoder.NewTableCache(decoder.New(nil), 4, nil),
		analysis.NewAnalyzer(nil),
		exporter.NewReportWriter(nil),
		summary.NewService(nil, 0, nil),
		erpClient,
		nil,
	)
	r := chi.NewRouter()
	r.Mount("/api", NewAnalysisHandler(service, 1<<20, nil).Routes())
	return r
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

// multipartRequest builds a request with an optional workbook and the given
// form fields.
func multipartRequest(t *testing.T, target string, workbook []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if workbook != nil {
		part, err := mw.CreateFormFile("file", "ventas.xlsx")
		require.NoError(t, err)
		_, err = part.Write(workbook)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeEndpoint(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("happy path", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report struct {
			Meta      analysis.Meta     `json:"meta"`
			Summary   analysis.Summary  `json:"summary"`
			Narrative summary.Narrative `json:"narrative"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "feb 2024 vs feb 2023", report.Meta.PairLabel)
		assert.Equal(t, "fallback", report.Narrative.Source)
	})

	t.Run("mode and anchor respected", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), map[string]string{
			"mode":     "ytd",
			"monthKey": "2024-01",
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report struct {
			Meta analysis.Meta `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, analysis.ModeYTD, report.Meta.Mode)
		assert.Equal(t, "2024-01", report.Meta.MonthKey)
	})

	t.Run("compare mode attaches second result", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), map[string]string{
			"compareMode": "ytd",
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report struct {
			Compare *analysis.Result `json:"compare"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		require.NotNil(t, report.Compare)
		assert.Equal(t, analysis.ModeYTD, report.Compare.Meta.Mode)
	})

	t.Run("missing file", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", nil, map[string]string{"mode": "month"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "MISSING_FILE")
	})

	t.Run("invalid mode", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), map[string]string{"mode": "quarterly"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("invalid month key format", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), map[string]string{"monthKey": "enero"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown month key is invalid data", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", sampleWorkbook(t), map[string]string{"monthKey": "2030-01"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_DATA")
	})

	t.Run("undecodable upload", func(t *testing.T) {
		req := multipartRequest(t, "/api/analyze", []byte("not a workbook"), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_FILE")
	})
}

func TestExcelReportEndpoint(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("returns workbook attachment", func(t *testing.T) {
		req := multipartRequest(t, "/api/report/excel", sampleWorkbook(t), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), reportFilename)

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Resumen Ejecutivo")
	})

	t.Run("multi period export", func(t *testing.T) {
		req := multipartRequest(t, "/api/report/excel", sampleWorkbook(t), map[string]string{
			"exportModes": `[{"mode":"month"},{"mode":"ytd"}]`,
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "M-2024-02 Resumen Ejecutivo")
		assert.Contains(t, f.GetSheetList(), "YTD-2024-02 Resumen Ejecutivo")
	})

	t.Run("malformed export modes", func(t *testing.T) {
		req := multipartRequest(t, "/api/report/excel", sampleWorkbook(t), map[string]string{
			"exportModes": "not json",
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestERPEndpoints(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		router := newTestRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/api/erp/test", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERP_NOT_CONFIGURED")
	})

	t.Run("analyze from erp", func(t *testing.T) {
		table := &analysis.Table{
			Columns: []string{"Cliente", "ene 2023", "ene 2024"},
			Rows:    [][]string{{"Acme", "100", "150"}},
		}
		router := newTestRouter(stubERP{table: table})

		req := httptest.NewRequest(http.MethodPost, "/api/analyze/erp", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report struct {
			Meta analysis.Meta `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "ene 2024 vs ene 2023", report.Meta.PairLabel)
	})
}

type stubERP struct {
	table *analysis.Table
}

func (s stubERP) FetchSalesTable(ctx context.Context) (*analysis.Table, error) { return s.table, nil }
func (s stubERP) TestConnection(ctx context.Context) error                     { return nil }
