package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// Decoding failures the transport layer maps to client errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected an .xlsx workbook")
	ErrNoSheets          = errors.New("workbook contains no sheets")
	ErrHeaderNotFound    = errors.New("header row not found, expected a row containing the client column")
)

const (
	// headerSniffRows bounds the search for the header row.
	headerSniffRows = 15
	// fallbackHeaderRow is where exports place the header when the sniff
	// finds nothing (zero-based).
	fallbackHeaderRow = 6
)

// oleMagic is the legacy binary workbook signature. Those files keep the
// .xls extension but cannot be read as OOXML.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Decoder turns uploaded workbook bytes into a raw table. It reads the first
// sheet only and preserves header labels verbatim, trailing spaces included,
// because downstream column matching depends on the exact strings.
type Decoder struct {
	logger *slog.Logger
}

// New creates a decoder.
func New(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger.With(slog.String("component", "decoder"))}
}

// Decode parses workbook bytes into a table. The filename is used only for
// extension checking and diagnostics.
func (d *Decoder) Decode(data []byte, filename string) (*analysis.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, fmt.Errorf("%w: legacy binary .xls, re-export as .xlsx", ErrUnsupportedFormat)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	headerIdx, err := findHeaderRow(rows)
	if err != nil {
		return nil, err
	}

	table := &analysis.Table{
		Columns: rows[headerIdx],
		Rows:    rows[headerIdx+1:],
	}
	d.logger.Debug("workbook decoded",
		slog.String("sheet", sheet),
		slog.Int("header_row", headerIdx),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))
	return table, nil
}

// findHeaderRow scans the leading rows for one containing the client column
// and falls back to the conventional export position.
func findHeaderRow(rows [][]string) (int, error) {
	limit := headerSniffRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			if strings.EqualFold(strings.TrimSpace(cell), analysis.EntityColumn) {
				return i, nil
			}
		}
	}
	if fallbackHeaderRow < len(rows) {
		return fallbackHeaderRow, nil
	}
	return 0, ErrHeaderNotFound
}
