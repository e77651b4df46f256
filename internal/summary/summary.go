// Package summary produces the executive narrative that accompanies an
// analysis result. A configured generator (typically an LLM completion
// endpoint) writes the prose; when it is absent, slow or failing, a
// deterministic template takes over so the report never ships without text.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// Narrative is the generated text plus its provenance.
type Narrative struct {
	Text string `json:"text"`
	// Source is "generator" or "fallback".
	Source string `json:"source"`
	// FallbackReason explains why the generator was bypassed, empty when it
	// was used.
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// Generator writes free-form prose for a result.
type Generator interface {
	Generate(ctx context.Context, result *analysis.Result) (string, error)
}

// DefaultTimeout caps how long a generator may take before the fallback
// kicks in.
const DefaultTimeout = 20 * time.Second

// Service orchestrates generation with the fallback guarantee.
type Service struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates a service. A nil generator is valid and means
// fallback-only operation.
func NewService(generator Generator, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "summary")),
	}
}

// Summarize never fails: generator errors degrade to the template.
func (s *Service) Summarize(ctx context.Context, result *analysis.Result) Narrative {
	if s.generator == nil {
		return Narrative{Text: Fallback(result), Source: "fallback", FallbackReason: "no generator configured"}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.Generate(genCtx, result)
	if err != nil {
		s.logger.WarnContext(ctx, "narrative generator failed, using fallback", slog.String("error", err.Error()))
		return Narrative{Text: Fallback(result), Source: "fallback", FallbackReason: err.Error()}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Narrative{Text: Fallback(result), Source: "fallback", FallbackReason: "generator returned empty text"}
	}
	return Narrative{Text: text, Source: "generator"}
}

// Fallback renders the deterministic narrative straight from the summary
// numbers.
func Fallback(result *analysis.Result) string {
	s := result.Summary
	var b strings.Builder

	direction := "crecieron"
	if s.TotalVar < 0 {
		direction = "cayeron"
	}
	fmt.Fprintf(&b, "Las ventas del periodo %s %s un %.1f%% (%s frente a %s).",
		result.Meta.PairLabel, direction, absFloat(s.TotalVarPct),
		formatAmount(s.TotalCurr), formatAmount(s.TotalPrev))

	if s.AlertsCount > 0 {
		fmt.Fprintf(&b, " Hay %d cuentas en alerta con un impacto conjunto de %s.",
			s.AlertsCount, formatAmount(s.AlertsImpact))
	}
	if s.GrowthCount > 0 {
		fmt.Fprintf(&b, " %d cuentas destacan en crecimiento aportando %s.",
			s.GrowthCount, formatAmount(s.GrowthImpact))
	}
	if s.NewCount > 0 {
		fmt.Fprintf(&b, " Se incorporan %d cuentas nuevas con %s de facturación.",
			s.NewCount, formatAmount(s.NewRevenue))
	}
	if s.LostCount > 0 {
		fmt.Fprintf(&b, " Se pierden %d cuentas que facturaban %s.",
			s.LostCount, formatAmount(s.LostRevenue))
	}
	if n := len(result.IntelligentAlerts.Persistent); n > 0 {
		fmt.Fprintf(&b, " %d cuentas encadenan dos periodos de caída y requieren seguimiento.", n)
	}
	if n := len(result.Churn); n > 0 {
		fmt.Fprintf(&b, " %d cuentas llevan %d meses o más sin actividad.", n, result.Meta.ChurnMonths)
	}
	return b.String()
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.0f€", v)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
