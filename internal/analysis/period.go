package analysis

import (
	"errors"
	"fmt"
)

// Mode selects how the analysis window is built around the anchor month.
type Mode string

const (
	ModeMonth    Mode = "month"
	ModeYTD      Mode = "ytd"
	ModeRolling3 Mode = "rolling3"
	ModeRolling6 Mode = "rolling6"
)

// Period-resolution errors. All of them are user-facing and surfaced before
// any metrics are computed.
var (
	ErrNoMonthColumns      = errors.New("no month columns were recognized in the table")
	ErrMonthKeyNotFound    = errors.New("selected month is not available")
	ErrUnsupportedMode     = errors.New("unsupported mode: use month, ytd, rolling3 or rolling6")
	ErrNoPriorYear         = errors.New("no matching prior-year month for the selected period")
	ErrInsufficientHistory = errors.New("not enough months for the selected rolling window")
)

// Period is a resolved current/previous column pair. Current and Previous
// always have the same length for ytd and rolling modes; a partial prior-year
// match is a hard failure, never a partial result.
type Period struct {
	Current  []MonthColumn
	Previous []MonthColumn

	// PairLabel names the raw column pair, PeriodLabel is the human
	// period description; Current/PreviousLabel label each window.
	PairLabel     string
	PeriodLabel   string
	CurrentLabel  string
	PreviousLabel string
}

// ResolvePeriod turns the sorted month set, a mode and an optional anchor
// key into concrete current/previous column lists. months must already be in
// chronological order (FindMonthColumns guarantees that).
func ResolvePeriod(months []MonthColumn, mode Mode, monthKey string) (*Period, error) {
	if len(months) == 0 {
		return nil, ErrNoMonthColumns
	}

	anchorIdx := len(months) - 1
	if monthKey != "" {
		anchorIdx = -1
		for i, mc := range months {
			if mc.Key() == monthKey {
				anchorIdx = i
				break
			}
		}
		if anchorIdx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMonthKeyNotFound, monthKey)
		}
	}
	anchor := months[anchorIdx]

	switch mode {
	case ModeMonth:
		prev, ok := findMonthByKey(months, priorYearKey(anchor))
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s column", ErrNoPriorYear, anchor.DisplayLabel(), priorYearKey(anchor))
		}
		pair := fmt.Sprintf("%s vs %s", anchor.Label, prev.Label)
		return &Period{
			Current:       []MonthColumn{anchor},
			Previous:      []MonthColumn{prev},
			PairLabel:     pair,
			PeriodLabel:   fmt.Sprintf("%s vs %s", anchor.DisplayLabel(), prev.DisplayLabel()),
			CurrentLabel:  anchor.Label,
			PreviousLabel: prev.Label,
		}, nil

	case ModeYTD:
		var current, previous []MonthColumn
		for _, mc := range months {
			if mc.Year == anchor.Year && mc.Month <= anchor.Month {
				current = append(current, mc)
			}
			if mc.Year == anchor.Year-1 && mc.Month <= anchor.Month {
				previous = append(previous, mc)
			}
		}
		if len(previous) == 0 || len(previous) != len(current) {
			return nil, fmt.Errorf("%w: ytd %d needs every month ene-%s of %d", ErrNoPriorYear, anchor.Year, MonthName(anchor.Month), anchor.Year-1)
		}
		currentLabel := fmt.Sprintf("YTD %d (ene-%s)", anchor.Year, MonthName(anchor.Month))
		previousLabel := fmt.Sprintf("YTD %d (ene-%s)", anchor.Year-1, MonthName(anchor.Month))
		pair := fmt.Sprintf("%s vs %s", currentLabel, previousLabel)
		return &Period{
			Current:       current,
			Previous:      previous,
			PairLabel:     pair,
			PeriodLabel:   pair,
			CurrentLabel:  currentLabel,
			PreviousLabel: previousLabel,
		}, nil

	case ModeRolling3, ModeRolling6:
		window := 3
		if mode == ModeRolling6 {
			window = 6
		}
		// Window by position in the sorted list, not by calendar
		// arithmetic: a gap in recognized months shifts the window.
		if anchorIdx+1 < window {
			return nil, fmt.Errorf("%w: need %d months, have %d up to %s", ErrInsufficientHistory, window, anchorIdx+1, anchor.DisplayLabel())
		}
		current := months[anchorIdx-window+1 : anchorIdx+1]
		previous := make([]MonthColumn, 0, window)
		for _, mc := range current {
			prev, ok := findMonthByKey(months, priorYearKey(mc))
			if !ok {
				return nil, fmt.Errorf("%w: %s has no %s column", ErrNoPriorYear, mc.DisplayLabel(), priorYearKey(mc))
			}
			previous = append(previous, prev)
		}
		currentLabel := fmt.Sprintf("Rolling %dM hasta %s", window, anchor.DisplayLabel())
		previousLabel := fmt.Sprintf("Rolling %dM hasta %s %d", window, MonthName(anchor.Month), anchor.Year-1)
		pair := fmt.Sprintf("%s vs %s", currentLabel, previousLabel)
		return &Period{
			Current:       current,
			Previous:      previous,
			PairLabel:     pair,
			PeriodLabel:   pair,
			CurrentLabel:  currentLabel,
			PreviousLabel: previousLabel,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
}
