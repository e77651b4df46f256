package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/erp"
	apierrors "github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/errors"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/services"
)

// reportFilename is the attachment name of the Excel report.
const reportFilename = "Early_Warning_YoY.xlsx"

// AnalysisHandler exposes the analysis, report and ERP endpoints.
type AnalysisHandler struct {
	service   *services.AnalysisService
	validate  *validator.Validate
	maxUpload int64
	logger    *slog.Logger
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(service *services.AnalysisService, maxUpload int64, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:   service,
		validate:  validator.New(),
		maxUpload: maxUpload,
		logger:    logger.With(slog.String("component", "analysis_handler")),
	}
}

// Routes mounts the handler's endpoints.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyze", h.Analyze)
	r.Post("/analyze/erp", h.AnalyzeERP)
	r.Get("/erp/test", h.TestERP)
	r.Post("/report/excel", h.ExcelReport)
	return r
}

// analyzeForm carries every tunable the analysis accepts. All fields are
// optional; zero values fall back to engine defaults.
type analyzeForm struct {
	Mode     string `validate:"omitempty,oneof=month ytd rolling3 rolling6"`
	MonthKey string `validate:"omitempty,datetime=2006-01"`

	AlertThreshold    *float64 `validate:"omitempty,lt=0"`
	PersistThreshold  *float64
	RecoveryThreshold *float64
	ChurnMonths       int `validate:"omitempty,min=1,max=60"`

	Search    string
	Location  string
	ImpactMin *float64
	ImpactMax *float64
	VarMin    *float64
	VarMax    *float64

	CompareMode     string `validate:"omitempty,oneof=month ytd rolling3 rolling6"`
	CompareMonthKey string `validate:"omitempty,datetime=2006-01"`
}

func (f analyzeForm) options() analysis.Options {
	opts := analysis.Options{
		Mode:              analysis.Mode(f.Mode),
		MonthKey:          f.MonthKey,
		PersistThreshold:  f.PersistThreshold,
		RecoveryThreshold: f.RecoveryThreshold,
		ChurnMonths:       f.ChurnMonths,
		Filters: analysis.Filters{
			Search:    f.Search,
			Location:  f.Location,
			ImpactMin: f.ImpactMin,
			ImpactMax: f.ImpactMax,
			VarMin:    f.VarMin,
			VarMax:    f.VarMax,
		},
	}
	if f.AlertThreshold != nil {
		opts.AlertThreshold = *f.AlertThreshold
	}
	return opts
}

// compareOptions returns the second-period options, or nil when no
// comparison was requested. Filters and thresholds carry over.
func (f analyzeForm) compareOptions() *analysis.Options {
	if f.CompareMode == "" {
		return nil
	}
	opts := f.options()
	opts.Mode = analysis.Mode(f.CompareMode)
	opts.MonthKey = f.CompareMonthKey
	return &opts
}

func (h *AnalysisHandler) parseForm(r *http.Request) (analyzeForm, *apierrors.APIError) {
	var f analyzeForm
	f.Mode = strings.TrimSpace(r.FormValue("mode"))
	f.MonthKey = strings.TrimSpace(r.FormValue("monthKey"))
	f.Search = strings.TrimSpace(r.FormValue("search"))
	f.Location = strings.TrimSpace(r.FormValue("location"))
	f.CompareMode = strings.TrimSpace(r.FormValue("compareMode"))
	f.CompareMonthKey = strings.TrimSpace(r.FormValue("compareMonthKey"))

	var fieldErr *apierrors.APIError
	floatField := func(name string) *float64 {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil && fieldErr == nil {
			fieldErr = apierrors.ErrValidation(name, "must be a number")
		}
		return &v
	}
	f.AlertThreshold = floatField("alertThreshold")
	f.PersistThreshold = floatField("persistThreshold")
	f.RecoveryThreshold = floatField("recoveryThreshold")
	f.ImpactMin = floatField("impactMin")
	f.ImpactMax = floatField("impactMax")
	f.VarMin = floatField("varMin")
	f.VarMax = floatField("varMax")

	if raw := strings.TrimSpace(r.FormValue("churnMonths")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil && fieldErr == nil {
			fieldErr = apierrors.ErrValidation("churnMonths", "must be an integer")
		}
		f.ChurnMonths = v
	}
	if fieldErr != nil {
		return f, fieldErr
	}

	if err := h.validate.Struct(f); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]apierrors.ValidationError, len(invalid))
			for i, fe := range invalid {
				fields[i] = apierrors.ValidationError{
					Field:   fe.Field(),
					Message: fmt.Sprintf("failed %s validation", fe.Tag()),
				}
			}
			return f, apierrors.NewValidationErrors(fields)
		}
		return f, apierrors.InvalidRequestWithError(err)
	}
	return f, nil
}

// readUpload extracts the workbook from the multipart form.
func (h *AnalysisHandler) readUpload(r *http.Request) ([]byte, string, *apierrors.APIError) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, "", apierrors.ErrMissingFile
		}
		return nil, "", apierrors.ErrFileTooLarge
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", apierrors.ErrMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, "", apierrors.InvalidRequestWithError(err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, "", apierrors.ErrFileTooLarge
	}
	return data, header.Filename, nil
}

// Analyze handles POST /analyze: multipart upload plus analysis parameters.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	data, filename, apiErr := h.readUpload(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}
	form, apiErr := h.parseForm(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	report, err := h.service.Analyze(r.Context(), data, filename, form.options(), form.compareOptions())
	if err != nil {
		h.renderError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, report)
}

// AnalyzeERP handles POST /analyze/erp: same parameters, data pulled from
// the ERP instead of an upload.
func (h *AnalysisHandler) AnalyzeERP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	form, apiErr := h.parseForm(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	report, err := h.service.AnalyzeFromERP(r.Context(), form.options(), form.compareOptions())
	if err != nil {
		h.renderError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, report)
}

// TestERP handles GET /erp/test.
func (h *AnalysisHandler) TestERP(w http.ResponseWriter, r *http.Request) {
	if err := h.service.TestERPConnection(r.Context()); err != nil {
		h.renderError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, map[string]bool{"ok": true})
}

// ExcelReport handles POST /report/excel. The optional exportModes form
// field holds a JSON array of {mode, monthKey} pairs for multi-period
// workbooks.
func (h *AnalysisHandler) ExcelReport(w http.ResponseWriter, r *http.Request) {
	data, filename, apiErr := h.readUpload(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}
	form, apiErr := h.parseForm(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	var requests []services.ExportRequest
	if raw := strings.TrimSpace(r.FormValue("exportModes")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &requests); err != nil {
			h.renderError(w, r, apierrors.ErrValidation("exportModes", "must be a JSON array of {mode, monthKey}"))
			return
		}
		for _, req := range requests {
			if err := h.validate.Struct(req); err != nil {
				h.renderError(w, r, apierrors.ErrValidation("exportModes", err.Error()))
				return
			}
		}
	}

	workbook, err := h.service.BuildExcelReport(r.Context(), data, filename, form.options(), requests)
	if err != nil {
		h.renderError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook)))
	w.Write(workbook)
}

func (h *AnalysisHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("error_code", apiErr.ErrorCode),
			slog.String("message", apiErr.Message))
	}
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		apierrors.WriteError(w, apierrors.ErrInternalServer)
	}
}

// mapServiceError translates engine and integration failures to API errors:
// input-shape and period problems are the client's to fix, ERP failures are
// upstream, anything else is internal.
func mapServiceError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, decoder.ErrUnsupportedFormat),
		errors.Is(err, decoder.ErrNoSheets),
		errors.Is(err, decoder.ErrHeaderNotFound):
		return apierrors.InvalidFileError(err)
	case errors.Is(err, analysis.ErrEntityColumnMissing),
		errors.Is(err, analysis.ErrNoMonthColumns),
		errors.Is(err, analysis.ErrMonthKeyNotFound),
		errors.Is(err, analysis.ErrUnsupportedMode),
		errors.Is(err, analysis.ErrNoPriorYear),
		errors.Is(err, analysis.ErrInsufficientHistory):
		return apierrors.InvalidDataError(err)
	case errors.Is(err, erp.ErrNotConfigured):
		return apierrors.ErrERPNotConfigured
	case errors.Is(err, erp.ErrUpstream):
		return apierrors.ERPUpstreamError(err)
	default:
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return apierrors.NewWithDetails(http.StatusInternalServerError,
			"INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
	}
}
