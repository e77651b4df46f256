// Package exporter renders an analysis result as a styled Excel workbook,
// one sheet per section, mirroring the tables the API serves.
package exporter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// Section header fill colors, one per sheet family.
const (
	colorSummary     = "1F4E78"
	colorAlerts      = "C00000"
	colorGrowth      = "006100"
	colorNew         = "2F5496"
	colorLost        = "7F7F7F"
	colorIntelligent = "3F3D56"
	colorClusters    = "4A5568"
	colorCountries   = "4A5568"
	colorLocations   = "6B7280"
	colorChurn       = "9B2C2C"
	colorCohorts     = "2D3748"
)

const (
	currencyFormat = "#,##0.00€"
	percentFormat  = "0.0%"
)

// ReportWriter builds report workbooks. Stateless and safe for concurrent
// use; each build works on a fresh file.
type ReportWriter struct {
	logger *slog.Logger
}

// NewReportWriter creates a writer.
func NewReportWriter(logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{logger: logger.With(slog.String("component", "exporter"))}
}

// Section is one analysis result to render, tagged so multi-period workbooks
// keep their sheets apart.
type Section struct {
	// Tag prefixes every sheet title, empty for single-result workbooks.
	Tag       string
	Result    *analysis.Result
	Narrative string
}

// Bytes renders one result into a complete workbook.
func (w *ReportWriter) Bytes(result *analysis.Result, narrative string) ([]byte, error) {
	return w.BytesMulti([]Section{{Result: result, Narrative: narrative}})
}

// BytesMulti renders several tagged results into one workbook.
func (w *ReportWriter) BytesMulti(sections []Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	b := &builder{file: f}
	for _, section := range sections {
		if err := b.addSection(section); err != nil {
			return nil, err
		}
	}

	// Drop the default sheet last so the workbook is never empty.
	if err := f.DeleteSheet(f.GetSheetName(0)); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	w.logger.Debug("report built",
		slog.Int("sections", len(sections)),
		slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type builder struct {
	file *excelize.File

	currencyStyle int
	percentStyle  int
	headerStyles  map[string]int
	titleStyle    int
	stylesReady   bool
}

func (b *builder) addSection(s Section) error {
	if err := b.ensureStyles(); err != nil {
		return err
	}
	r := s.Result

	if err := b.addSummarySheet(s); err != nil {
		return err
	}

	sheets := []struct {
		title string
		write func(sheet string) error
	}{
		{"Alertas", func(sheet string) error { return b.writeEntityRows(sheet, colorAlerts, r, r.Tables.Alerts) }},
		{"Crecimientos", func(sheet string) error { return b.writeEntityRows(sheet, colorGrowth, r, r.Tables.Growth) }},
		{"Nuevos", func(sheet string) error { return b.writeEntityRows(sheet, colorNew, r, r.Tables.New) }},
		{"Perdidos", func(sheet string) error { return b.writeEntityRows(sheet, colorLost, r, r.Tables.Lost) }},
		{"Alertas Inteligentes", func(sheet string) error { return b.writeIntelligent(sheet, r) }},
		{"Clusters", func(sheet string) error { return b.writeClusters(sheet, r.Clusters.ByCluster) }},
		{"Paises", func(sheet string) error { return b.writeCountries(sheet, r.Clusters.ByCountry) }},
		{"Area Comercial", func(sheet string) error { return b.writeLocations(sheet, r.Clusters.ByArea) }},
		{"Churn", func(sheet string) error { return b.writeChurn(sheet, r.Churn) }},
		{"Cohortes Activos", func(sheet string) error { return b.writeCohorts(sheet, r.Cohorts, false) }},
		{"Cohortes Revenue", func(sheet string) error { return b.writeCohorts(sheet, r.Cohorts, true) }},
	}
	for _, spec := range sheets {
		sheet, err := b.newSheet(s.Tag, spec.title)
		if err != nil {
			return err
		}
		if err := spec.write(sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}
	return nil
}

func (b *builder) ensureStyles() error {
	if b.stylesReady {
		return nil
	}
	var err error
	currency := currencyFormat
	if b.currencyStyle, err = b.file.NewStyle(&excelize.Style{CustomNumFmt: &currency}); err != nil {
		return err
	}
	percent := percentFormat
	if b.percentStyle, err = b.file.NewStyle(&excelize.Style{CustomNumFmt: &percent}); err != nil {
		return err
	}
	if b.titleStyle, err = b.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return err
	}
	b.headerStyles = make(map[string]int)
	b.stylesReady = true
	return nil
}

func (b *builder) headerStyle(color string) (int, error) {
	if style, ok := b.headerStyles[color]; ok {
		return style, nil
	}
	style, err := b.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, err
	}
	b.headerStyles[color] = style
	return style, nil
}

func (b *builder) newSheet(tag, title string) (string, error) {
	name := safeSheetTitle(tag, title)
	if _, err := b.file.NewSheet(name); err != nil {
		return "", fmt.Errorf("creating sheet %q: %w", name, err)
	}
	return name, nil
}

// safeSheetTitle prefixes the tag and enforces the 31-character sheet name
// limit, stripping the characters the format forbids.
func safeSheetTitle(tag, title string) string {
	name := title
	if tag != "" {
		name = tag + " " + title
	}
	name = strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "").Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	return strings.TrimSpace(name)
}

func (b *builder) writeHeader(sheet, color string, row int, headers []string) error {
	style, err := b.headerStyle(color)
	if err != nil {
		return err
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := b.file.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := b.file.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) setCell(sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := b.file.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	if style != 0 {
		return b.file.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

// setPct writes a nullable percentage. The cell holds the fraction so the
// percent number format renders it; nil stays blank.
func (b *builder) setPct(sheet string, col, row int, pct *float64) error {
	if pct == nil {
		return nil
	}
	return b.setCell(sheet, col, row, *pct/100, b.percentStyle)
}
