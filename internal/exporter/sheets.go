package exporter

import (
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

func (b *builder) addSummarySheet(s Section) error {
	sheet, err := b.newSheet(s.Tag, "Resumen Ejecutivo")
	if err != nil {
		return err
	}
	r := s.Result

	if err := b.setCell(sheet, 1, 1, "Resumen Ejecutivo", b.titleStyle); err != nil {
		return err
	}
	if err := b.setCell(sheet, 1, 2, r.Meta.PairLabel, 0); err != nil {
		return err
	}
	if s.Narrative != "" {
		if err := b.setCell(sheet, 1, 3, s.Narrative, 0); err != nil {
			return err
		}
	}

	if err := b.writeHeader(sheet, colorSummary, 5, []string{"Indicador", "Valor"}); err != nil {
		return err
	}
	totalPct := r.Summary.TotalVarPct
	rows := []struct {
		label    string
		value    interface{}
		currency bool
		percent  bool
	}{
		{label: "Ventas periodo anterior", value: r.Summary.TotalPrev, currency: true},
		{label: "Ventas periodo actual", value: r.Summary.TotalCurr, currency: true},
		{label: "Variación", value: r.Summary.TotalVar, currency: true},
		{label: "Variación %", value: totalPct / 100, percent: true},
		{label: "Cuentas en alerta", value: r.Summary.AlertsCount},
		{label: "Impacto alertas", value: r.Summary.AlertsImpact, currency: true},
		{label: "Cuentas en crecimiento", value: r.Summary.GrowthCount},
		{label: "Impacto crecimientos", value: r.Summary.GrowthImpact, currency: true},
		{label: "Cuentas nuevas", value: r.Summary.NewCount},
		{label: "Facturación nuevas", value: r.Summary.NewRevenue, currency: true},
		{label: "Cuentas perdidas", value: r.Summary.LostCount},
		{label: "Facturación perdida", value: r.Summary.LostRevenue, currency: true},
	}
	for i, row := range rows {
		rowNum := 6 + i
		if err := b.setCell(sheet, 1, rowNum, row.label, 0); err != nil {
			return err
		}
		style := 0
		if row.currency {
			style = b.currencyStyle
		}
		if row.percent {
			style = b.percentStyle
		}
		if err := b.setCell(sheet, 2, rowNum, row.value, style); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) writeEntityRows(sheet, color string, r *analysis.Result, rows []analysis.TableRow) error {
	headers := []string{"Cliente"}
	hasCode := len(rows) > 0 && rows[0].Code != nil
	hasLocation := len(rows) > 0 && rows[0].Location != nil
	if hasCode {
		headers = append(headers, "Código")
	}
	if hasLocation {
		headers = append(headers, "Ubicación")
	}
	headers = append(headers, r.Meta.PreviousLabel, r.Meta.LatestLabel, "Variación", "Variación %")
	if err := b.writeHeader(sheet, color, 1, headers); err != nil {
		return err
	}

	for i, row := range rows {
		rowNum := i + 2
		col := 1
		if err := b.setCell(sheet, col, rowNum, row.Name, 0); err != nil {
			return err
		}
		col++
		if hasCode {
			if err := b.setCell(sheet, col, rowNum, *row.Code, 0); err != nil {
				return err
			}
			col++
		}
		if hasLocation {
			if err := b.setCell(sheet, col, rowNum, *row.Location, 0); err != nil {
				return err
			}
			col++
		}
		for _, v := range []float64{row.Prev, row.Curr, row.VarAbs} {
			if err := b.setCell(sheet, col, rowNum, v, b.currencyStyle); err != nil {
				return err
			}
			col++
		}
		if err := b.setPct(sheet, col, rowNum, row.VarPct); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) writeIntelligent(sheet string, r *analysis.Result) error {
	if err := b.writeHeader(sheet, colorIntelligent, 1,
		[]string{"Tipo", "Cliente", "Ubicación", "Var % último", "Var % anterior"}); err != nil {
		return err
	}
	rowNum := 2
	write := func(kind string, alerts []analysis.IntelligentAlert) error {
		for _, a := range alerts {
			if err := b.setCell(sheet, 1, rowNum, kind, 0); err != nil {
				return err
			}
			if err := b.setCell(sheet, 2, rowNum, a.Name, 0); err != nil {
				return err
			}
			if a.Location != nil {
				if err := b.setCell(sheet, 3, rowNum, *a.Location, 0); err != nil {
					return err
				}
			}
			if err := b.setCell(sheet, 4, rowNum, a.VarPctLast/100, b.percentStyle); err != nil {
				return err
			}
			if err := b.setCell(sheet, 5, rowNum, a.VarPctPrev/100, b.percentStyle); err != nil {
				return err
			}
			rowNum++
		}
		return nil
	}
	if err := write("Caída persistente", r.IntelligentAlerts.Persistent); err != nil {
		return err
	}
	return write("Recuperación", r.IntelligentAlerts.Recovery)
}

func (b *builder) writeSegmentRows(sheet, color, label string, rows []segmentCells) error {
	if err := b.writeHeader(sheet, color, 1,
		[]string{label, "Anterior", "Actual", "Variación", "Variación %"}); err != nil {
		return err
	}
	for i, row := range rows {
		rowNum := i + 2
		if err := b.setCell(sheet, 1, rowNum, row.label, 0); err != nil {
			return err
		}
		for j, v := range []float64{row.prev, row.curr, row.varAbs} {
			if err := b.setCell(sheet, 2+j, rowNum, v, b.currencyStyle); err != nil {
				return err
			}
		}
		if err := b.setPct(sheet, 5, rowNum, row.varPct); err != nil {
			return err
		}
	}
	return nil
}

type segmentCells struct {
	label  string
	prev   float64
	curr   float64
	varAbs float64
	varPct *float64
}

func (b *builder) writeClusters(sheet string, rows []analysis.ClusterRow) error {
	cells := make([]segmentCells, len(rows))
	for i, r := range rows {
		cells[i] = segmentCells{label: r.Cluster, prev: r.Prev, curr: r.Curr, varAbs: r.VarAbs, varPct: r.VarPct}
	}
	return b.writeSegmentRows(sheet, colorClusters, "Cluster", cells)
}

func (b *builder) writeCountries(sheet string, rows []analysis.CountryRow) error {
	cells := make([]segmentCells, len(rows))
	for i, r := range rows {
		cells[i] = segmentCells{label: r.Country, prev: r.Prev, curr: r.Curr, varAbs: r.VarAbs, varPct: r.VarPct}
	}
	return b.writeSegmentRows(sheet, colorCountries, "País", cells)
}

func (b *builder) writeLocations(sheet string, rows []analysis.LocationRow) error {
	cells := make([]segmentCells, len(rows))
	for i, r := range rows {
		cells[i] = segmentCells{label: r.Location, prev: r.Prev, curr: r.Curr, varAbs: r.VarAbs, varPct: r.VarPct}
	}
	return b.writeSegmentRows(sheet, colorLocations, "Área", cells)
}

func (b *builder) writeChurn(sheet string, rows []analysis.ChurnRow) error {
	if err := b.writeHeader(sheet, colorChurn, 1, []string{"Cliente", "Ubicación", "Meses sin actividad"}); err != nil {
		return err
	}
	for i, row := range rows {
		rowNum := i + 2
		if err := b.setCell(sheet, 1, rowNum, row.Name, 0); err != nil {
			return err
		}
		if row.Location != nil {
			if err := b.setCell(sheet, 2, rowNum, *row.Location, 0); err != nil {
				return err
			}
		}
		if err := b.setCell(sheet, 3, rowNum, row.MonthsInactive, 0); err != nil {
			return err
		}
	}
	return nil
}

// writeCohorts renders either the retained-count or retained-revenue matrix.
func (b *builder) writeCohorts(sheet string, cohorts analysis.CohortAnalysis, revenue bool) error {
	headers := append([]string{"Cohorte", "Tamaño"}, cohorts.Columns...)
	if err := b.writeHeader(sheet, colorCohorts, 1, headers); err != nil {
		return err
	}
	for i, row := range cohorts.Rows {
		rowNum := i + 2
		if err := b.setCell(sheet, 1, rowNum, row.Key, 0); err != nil {
			return err
		}
		if err := b.setCell(sheet, 2, rowNum, row.Size, 0); err != nil {
			return err
		}
		values := row.Active
		if revenue {
			values = row.Revenue
		}
		for j, v := range values {
			if err := b.setPct(sheet, 3+j, rowNum, v); err != nil {
				return err
			}
		}
	}
	return nil
}
