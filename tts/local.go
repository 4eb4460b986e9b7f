package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrEngineNotInstalled indicates the local synthesis binary was not found.
var ErrEngineNotInstalled = errors.New("tts: local engine not installed")

// LocalConfig holds on-box synthesis settings.
type LocalConfig struct {
	// Path is the synthesis executable (default "espeak-ng").
	Path string `json:"path"`
	// FlatRate is the fixed cost reported per synthesis, usually 0.
	FlatRate float64 `json:"flat_rate"`
	// Timeout bounds one synthesis run.
	Timeout time.Duration `json:"timeout"`
}

// LocalProvider shells out to an on-box speech engine. Output quality is
// below the remote providers but it works offline and costs nothing.
type LocalProvider struct {
	cfg LocalConfig
}

// NewLocalProvider creates a local exec-based provider.
func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	if cfg.Path == "" {
		cfg.Path = "espeak-ng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &LocalProvider{cfg: cfg}
}

// Name returns "local".
func (p *LocalProvider) Name() string { return "local" }

// Estimate projects duration from word count; cost is the flat rate.
func (p *LocalProvider) Estimate(text string) Estimate {
	chars, words := countText(text)
	return Estimate{
		Provider:          p.Name(),
		Characters:        chars,
		Words:             words,
		EstimatedDuration: estimateDuration(words),
		EstimatedCost:     p.cfg.FlatRate,
		Currency:          "USD",
	}
}

// Synthesize runs the engine and captures WAV output on stdout.
func (p *LocalProvider) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	args := []string{"--stdout"}
	if req.Voice != "" {
		args = append(args, "-v", req.Voice)
	} else if req.Language != "" {
		args = append(args, "-v", req.Language)
	}
	args = append(args, req.Text)

	cmd := exec.CommandContext(ctx, p.cfg.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrEngineNotInstalled
		}
		return nil, fmt.Errorf("tts: %s: %w: %s", p.cfg.Path, err, stderr.String())
	}

	words := len(bytes.Fields([]byte(req.Text)))
	return &Audio{
		Data:     stdout.Bytes(),
		MimeType: "audio/wav",
		Duration: time.Duration(estimateDuration(words) * float64(time.Second)),
	}, nil
}
