package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	apphttp "dubforge/http"
)

const defaultFalEndpoint = "https://fal.run/fal-ai/tts"

// FalConfig holds fal.ai provider settings.
type FalConfig struct {
	// Endpoint is the synthesis endpoint URL.
	Endpoint string `json:"endpoint"`
	// APIKey authorizes requests.
	APIKey string `json:"api_key"`
	// CostPer1kChars is the price per 1000 characters.
	CostPer1kChars float64 `json:"cost_per_1k_chars"`
	// Currency is the ISO 4217 code for CostPer1kChars.
	Currency string `json:"currency"`
}

// FalProvider synthesizes speech through the fal.ai HTTP API.
type FalProvider struct {
	cfg    FalConfig
	client *apphttp.Client
}

// NewFalProvider creates a fal.ai provider on the given HTTP client.
func NewFalProvider(cfg FalConfig, client *apphttp.Client) *FalProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultFalEndpoint
	}
	if cfg.CostPer1kChars <= 0 {
		cfg.CostPer1kChars = 0.06
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &FalProvider{cfg: cfg, client: client}
}

// Name returns "fal".
func (p *FalProvider) Name() string { return "fal" }

// Estimate projects duration from word count and cost from the
// per-1k-character rate.
func (p *FalProvider) Estimate(text string) Estimate {
	chars, words := countText(text)
	return Estimate{
		Provider:          p.Name(),
		Characters:        chars,
		Words:             words,
		EstimatedDuration: estimateDuration(words),
		EstimatedCost:     float64(chars) / 1000.0 * p.cfg.CostPer1kChars,
		Currency:          p.cfg.Currency,
	}
}

// falRequest is the synthesis request payload.
type falRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

// falResponse is the synthesis response payload.
type falResponse struct {
	Audio struct {
		Data        string  `json:"data"` // base64
		ContentType string  `json:"content_type"`
		DurationSec float64 `json:"duration"`
	} `json:"audio"`
}

// Synthesize posts the request to the fal endpoint and decodes the audio.
func (p *FalProvider) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	payload, err := json.Marshal(falRequest{
		Text:     req.Text,
		Voice:    req.Voice,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Key " + p.cfg.APIKey,
	}

	resp, err := p.client.Post(ctx, p.cfg.Endpoint, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("tts: fal request: %w", err)
	}

	var out falResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(out.Audio.Data)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}

	mimeType := out.Audio.ContentType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	return &Audio{
		Data:     data,
		MimeType: mimeType,
		Duration: time.Duration(out.Audio.DurationSec * float64(time.Second)),
	}, nil
}
