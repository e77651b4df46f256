package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// ChatConfig points at an OpenAI-compatible chat completion endpoint.
type ChatConfig struct {
	Endpoint string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	APIKey   string        `yaml:"api_key" envconfig:"API_KEY"`
	Model    string        `yaml:"model" envconfig:"MODEL" default:"gpt-4o-mini"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"20s"`
}

// Enabled reports whether the generator can be constructed at all.
func (c ChatConfig) Enabled() bool { return c.Endpoint != "" && c.APIKey != "" }

// ChatGenerator asks a chat completion endpoint for the narrative. It sends
// only the aggregate summary numbers, never row-level account data.
type ChatGenerator struct {
	cfg  ChatConfig
	http *http.Client
}

// NewChatGenerator creates a generator; returns nil when not configured so
// the service falls back cleanly.
func NewChatGenerator(cfg ChatConfig) *ChatGenerator {
	if !cfg.Enabled() {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChatGenerator{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

const systemPrompt = "Eres un analista comercial. Redacta un resumen ejecutivo " +
	"breve, en español, de la evolución interanual de ventas a partir de las " +
	"cifras agregadas. Sin listas, un solo párrafo."

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements Generator.
func (g *ChatGenerator) Generate(ctx context.Context, result *analysis.Result) (string, error) {
	facts, err := json.Marshal(struct {
		Period  string           `json:"periodo"`
		Summary analysis.Summary `json:"cifras"`
	}{Period: result.Meta.PairLabel, Summary: result.Summary})
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(facts)},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling summary endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding summary response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("summary endpoint: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary endpoint responded %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("summary endpoint returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
