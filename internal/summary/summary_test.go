package summary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Generate(ctx context.Context, _ *analysis.Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.text, s.err
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ *analysis.Result) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Meta: analysis.Meta{PairLabel: "jun 2024 vs jun 2023", ChurnMonths: 9},
		Summary: analysis.Summary{
			TotalPrev:    100000,
			TotalCurr:    88000,
			TotalVar:     -12000,
			TotalVarPct:  -12,
			AlertsCount:  3,
			AlertsImpact: -9000,
			GrowthCount:  2,
			GrowthImpact: 4000,
			NewCount:     1,
			NewRevenue:   1500,
			LostCount:    2,
			LostRevenue:  2500,
		},
		Churn: []analysis.ChurnRow{{Name: "a"}, {Name: "b"}},
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("generator text wins", func(t *testing.T) {
		svc := NewService(stubGenerator{text: "  resumen generado  "}, 0, nil)
		n := svc.Summarize(ctx, sampleResult())
		assert.Equal(t, "resumen generado", n.Text)
		assert.Equal(t, "generator", n.Source)
		assert.Empty(t, n.FallbackReason)
	})

	t.Run("nil generator falls back", func(t *testing.T) {
		svc := NewService(nil, 0, nil)
		n := svc.Summarize(ctx, sampleResult())
		assert.Equal(t, "fallback", n.Source)
		assert.Equal(t, "no generator configured", n.FallbackReason)
		assert.NotEmpty(t, n.Text)
	})

	t.Run("generator error falls back with reason", func(t *testing.T) {
		svc := NewService(stubGenerator{err: errors.New("boom")}, 0, nil)
		n := svc.Summarize(ctx, sampleResult())
		assert.Equal(t, "fallback", n.Source)
		assert.Equal(t, "boom", n.FallbackReason)
	})

	t.Run("empty generator text falls back", func(t *testing.T) {
		svc := NewService(stubGenerator{text: "   "}, 0, nil)
		n := svc.Summarize(ctx, sampleResult())
		assert.Equal(t, "fallback", n.Source)
	})

	t.Run("timeout falls back", func(t *testing.T) {
		svc := NewService(blockingGenerator{}, 10*time.Millisecond, nil)
		n := svc.Summarize(ctx, sampleResult())
		assert.Equal(t, "fallback", n.Source)
		assert.Contains(t, n.FallbackReason, "deadline")
	})
}

func TestFallbackNarrative(t *testing.T) {
	text := Fallback(sampleResult())

	assert.Contains(t, text, "jun 2024 vs jun 2023")
	assert.Contains(t, text, "cayeron")
	assert.Contains(t, text, "12.0%")
	assert.Contains(t, text, "3 cuentas en alerta")
	assert.Contains(t, text, "2 cuentas destacan en crecimiento")
	assert.Contains(t, text, "1 cuentas nuevas")
	assert.Contains(t, text, "2 cuentas que facturaban")
	assert.Contains(t, text, "9 meses o más sin actividad")
}

func TestFallbackNarrativeGrowth(t *testing.T) {
	result := &analysis.Result{
		Meta:    analysis.Meta{PairLabel: "jun 2024 vs jun 2023"},
		Summary: analysis.Summary{TotalPrev: 100, TotalCurr: 150, TotalVar: 50, TotalVarPct: 50},
	}
	text := Fallback(result)
	assert.Contains(t, text, "crecieron")
	assert.NotContains(t, text, "alerta")
}

func TestChatGenerator(t *testing.T) {
	t.Run("not configured returns nil", func(t *testing.T) {
		assert.Nil(t, NewChatGenerator(ChatConfig{}))
	})

	t.Run("round trip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"un párrafo"}}]}`))
		}))
		defer srv.Close()

		gen := NewChatGenerator(ChatConfig{Endpoint: srv.URL, APIKey: "sk-test", Model: "m"})
		require.NotNil(t, gen)
		text, err := gen.Generate(context.Background(), sampleResult())
		require.NoError(t, err)
		assert.Equal(t, "un párrafo", text)
	})

	t.Run("api error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		}))
		defer srv.Close()

		gen := NewChatGenerator(ChatConfig{Endpoint: srv.URL, APIKey: "k"})
		_, err := gen.Generate(context.Background(), sampleResult())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}
