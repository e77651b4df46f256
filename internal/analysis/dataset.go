package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed header names of the sales export. The entity column is mandatory;
// everything else is optional and detected once per request.
const (
	EntityColumn   = "Cliente"
	CodeColumn     = "Hotel - Code"
	LocationColumn = "Ubicación"
)

// CountryColumnAliases are the accepted country header spellings, checked in
// order. The trailing-space variant shows up in real exports.
var CountryColumnAliases = []string{"País", "Pais", "Country", "Hotel Country", "Hotel Country "}

// excludedEntityNames are subtotal rows dropped by the sanitizer.
var excludedEntityNames = map[string]struct{}{
	"Ventas": {},
	"Total":  {},
}

// ErrEntityColumnMissing is an input-shape error: the export has no entity
// name column at all.
var ErrEntityColumnMissing = fmt.Errorf("column %q not found in the table, check the file", EntityColumn)

// Dataset is the sanitized, column-major view the engine computes on. One
// numeric slice per recognized month keeps churn/cohort passes a single
// month-by-month sweep instead of row-at-a-time cell parsing.
type Dataset struct {
	Months []MonthColumn
	// Values[m][r] is the numeric cell of month m for row r. Non-numeric
	// and missing cells coerce to 0.
	Values [][]float64

	Names     []string
	Codes     []string
	Locations []string
	Countries []string
	Clusters  []string

	HasCode     bool
	HasLocation bool
	HasCountry  bool
	// CountryColumn is the alias that matched, when HasCountry.
	CountryColumn string
}

// RowCount returns the number of sanitized entity rows.
func (d *Dataset) RowCount() int { return len(d.Names) }

// monthIndex maps a resolved period column back to its value slice.
func (d *Dataset) monthIndex(mc MonthColumn) int {
	for i, m := range d.Months {
		if m.Position == mc.Position {
			return i
		}
	}
	return -1
}

// BuildDataset sanitizes the raw table and converts it to columnar form:
// rows with a blank entity name or a subtotal name are dropped, optional
// columns become capability flags, and every recognized month column is
// coerced to numbers in one pass.
func BuildDataset(t *Table) (*Dataset, error) {
	entityIdx := t.columnIndex(EntityColumn)
	if entityIdx < 0 {
		return nil, ErrEntityColumnMissing
	}

	ds := &Dataset{Months: FindMonthColumns(t.Columns)}

	codeIdx := t.columnIndex(CodeColumn)
	ds.HasCode = codeIdx >= 0
	locationIdx := t.columnIndex(LocationColumn)
	ds.HasLocation = locationIdx >= 0
	countryIdx := -1
	for _, alias := range CountryColumnAliases {
		if idx := t.columnIndex(alias); idx >= 0 {
			countryIdx = idx
			ds.HasCountry = true
			ds.CountryColumn = alias
			break
		}
	}

	keep := make([]int, 0, len(t.Rows))
	for i := range t.Rows {
		name := strings.TrimSpace(t.cell(i, entityIdx))
		if name == "" {
			continue
		}
		if _, excluded := excludedEntityNames[name]; excluded {
			continue
		}
		keep = append(keep, i)
		ds.Names = append(ds.Names, name)
		ds.Clusters = append(ds.Clusters, clusterOf(name))
		if ds.HasCode {
			ds.Codes = append(ds.Codes, strings.TrimSpace(t.cell(i, codeIdx)))
		}
		if ds.HasLocation {
			ds.Locations = append(ds.Locations, strings.TrimSpace(t.cell(i, locationIdx)))
		}
		if ds.HasCountry {
			ds.Countries = append(ds.Countries, strings.TrimSpace(t.cell(i, countryIdx)))
		}
	}

	ds.Values = make([][]float64, len(ds.Months))
	for m, mc := range ds.Months {
		values := make([]float64, len(keep))
		for r, rowIdx := range keep {
			values[r] = parseNumber(t.cell(rowIdx, mc.Position))
		}
		ds.Values[m] = values
	}

	return ds, nil
}

// clusterOf derives the coarse grouping from the leading name segment.
func clusterOf(name string) string {
	head, _, _ := strings.Cut(name, ":")
	return strings.TrimSpace(head)
}

// parseNumber coerces a cell to a number; non-numeric cells become 0.
// Thousands separators are tolerated, the way exported numbers often arrive.
func parseNumber(cell string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
