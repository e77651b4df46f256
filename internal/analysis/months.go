package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// monthNumbers is the recognized month vocabulary: Spanish three-letter
// abbreviations, the format the sales exports use.
var monthNumbers = map[string]int{
	"ene": 1,
	"feb": 2,
	"mar": 3,
	"abr": 4,
	"may": 5,
	"jun": 6,
	"jul": 7,
	"ago": 8,
	"sep": 9,
	"oct": 10,
	"nov": 11,
	"dic": 12,
}

var monthNames = map[int]string{
	1:  "ene",
	2:  "feb",
	3:  "mar",
	4:  "abr",
	5:  "may",
	6:  "jun",
	7:  "jul",
	8:  "ago",
	9:  "sep",
	10: "oct",
	11: "nov",
	12: "dic",
}

// MonthColumn identifies one spreadsheet column as a calendar month.
type MonthColumn struct {
	// Label is the original column header, kept verbatim so cell lookups
	// and user-facing labels match the source file.
	Label string
	Month int
	Year  int
	// Position is the column index in the source table. Duplicate month
	// labels stay distinct columns; sums over them double count, which is
	// an accepted input-quality risk.
	Position int
}

// SortKey orders months chronologically and supports adjacency tests.
func (m MonthColumn) SortKey() int { return m.Year*12 + m.Month }

// Key returns the canonical YYYY-MM identifier for the month.
func (m MonthColumn) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, m.Month) }

// DisplayLabel returns the human label, e.g. "ene 2024".
func (m MonthColumn) DisplayLabel() string {
	return fmt.Sprintf("%s %d", MonthName(m.Month), m.Year)
}

// MonthName returns the abbreviation for a month number, or the number
// itself when out of range.
func MonthName(month int) string {
	if name, ok := monthNames[month]; ok {
		return name
	}
	return strconv.Itoa(month)
}

const monthAlternatives = `(ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)`

var (
	// ene 2024, ene-2024, ene_2024, ene/2024
	reMonthYear4 = regexp.MustCompile(`^` + monthAlternatives + `\s*[-_/]?\s*(20\d{2})$`)
	// 2024 ene, 2024-ene
	reYear4Month = regexp.MustCompile(`^(20\d{2})\s*[-_/]?\s*` + monthAlternatives + `$`)
	// ene 24
	reMonthYear2 = regexp.MustCompile(`^` + monthAlternatives + `\s*[-_/]?\s*(\d{2})$`)

	reBareYear4 = regexp.MustCompile(`^20\d{2}$`)
)

// monthMatcher recognizes one label layout. Matchers are independent so new
// layouts can be added without destabilizing existing ones.
type monthMatcher func(normalized string) (month, year int, ok bool)

var monthMatchers = []monthMatcher{
	matchMonthThenYear4,
	matchYear4ThenMonth,
	matchMonthThenYear2,
	matchSplitTokens,
}

func matchMonthThenYear4(s string) (int, int, bool) {
	groups := reMonthYear4.FindStringSubmatch(s)
	if groups == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(groups[2])
	return monthNumbers[groups[1]], year, true
}

func matchYear4ThenMonth(s string) (int, int, bool) {
	groups := reYear4Month.FindStringSubmatch(s)
	if groups == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(groups[1])
	return monthNumbers[groups[2]], year, true
}

func matchMonthThenYear2(s string) (int, int, bool) {
	groups := reMonthYear2.FindStringSubmatch(s)
	if groups == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(groups[2])
	return monthNumbers[groups[1]], year + 2000, true
}

// matchSplitTokens is the fallback for labels with extra trailing tokens,
// e.g. "ene 2024 (real)": first token must be a month abbreviation, second a
// bare four-digit year.
func matchSplitTokens(s string) (int, int, bool) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return 0, 0, false
	}
	month, ok := monthNumbers[parts[0]]
	if !ok || !reBareYear4.MatchString(parts[1]) {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(parts[1])
	return month, year, true
}

// ParseMonthColumn converts a column label into a MonthColumn. Labels that
// match no layout are simply not month columns, never an error. Matchers are
// tried in order and the first match wins.
func ParseMonthColumn(label string) (MonthColumn, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return MonthColumn{}, false
	}
	for _, match := range monthMatchers {
		if month, year, ok := match(normalized); ok {
			return MonthColumn{Label: label, Month: month, Year: year}, true
		}
	}
	return MonthColumn{}, false
}

// FindMonthColumns scans every column label and returns the recognized
// months sorted chronologically. The sort is stable so duplicate labels keep
// their source order.
func FindMonthColumns(columns []string) []MonthColumn {
	months := make([]MonthColumn, 0, len(columns))
	for position, label := range columns {
		if mc, ok := ParseMonthColumn(label); ok {
			mc.Position = position
			months = append(months, mc)
		}
	}
	sort.SliceStable(months, func(i, j int) bool {
		return months[i].SortKey() < months[j].SortKey()
	})
	return months
}

// findMonthByKey returns the first month whose YYYY-MM key matches.
func findMonthByKey(months []MonthColumn, key string) (MonthColumn, bool) {
	for _, mc := range months {
		if mc.Key() == key {
			return mc, true
		}
	}
	return MonthColumn{}, false
}

// priorYearKey returns the YYYY-MM key of the same calendar month one year
// earlier.
func priorYearKey(mc MonthColumn) string {
	return fmt.Sprintf("%04d-%02d", mc.Year-1, mc.Month)
}

// AvailableMonth describes one recognized month to API consumers, with a
// flag telling whether a prior-year counterpart exists.
type AvailableMonth struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	HasPrev bool   `json:"hasPrev"`
}

// AvailableMonths builds the month picker list for the result meta block.
func AvailableMonths(months []MonthColumn) []AvailableMonth {
	keys := make(map[string]struct{}, len(months))
	for _, mc := range months {
		keys[mc.Key()] = struct{}{}
	}
	available := make([]AvailableMonth, 0, len(months))
	for _, mc := range months {
		_, hasPrev := keys[priorYearKey(mc)]
		available = append(available, AvailableMonth{
			Key:     mc.Key(),
			Label:   mc.DisplayLabel(),
			Year:    mc.Year,
			Month:   mc.Month,
			HasPrev: hasPrev,
		})
	}
	return available
}
