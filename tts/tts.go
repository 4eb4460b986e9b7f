// Package tts provides text-to-speech cost estimation and synthesis
// through pluggable providers.
package tts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Audio is the result of a synthesis call.
type Audio struct {
	// Data is the encoded audio payload.
	Data []byte
	// MimeType is the audio encoding (e.g. "audio/mpeg").
	MimeType string
	// Duration is the audio length.
	Duration time.Duration
}

// Request describes one synthesis call.
type Request struct {
	// Text is the text to speak.
	Text string
	// Voice is the provider-specific voice identifier.
	Voice string
	// Language is the ISO 639-1 language code.
	Language string
}

// Estimate is a pre-synthesis cost and duration projection.
type Estimate struct {
	// Provider is the provider that produced the estimate.
	Provider string `json:"provider"`
	// Characters is the text length in runes.
	Characters int `json:"characters"`
	// Words is the whitespace-delimited word count.
	Words int `json:"words"`
	// EstimatedDuration is the projected audio length in seconds.
	EstimatedDuration float64 `json:"estimatedDuration"`
	// EstimatedCost is the projected cost in Currency units.
	EstimatedCost float64 `json:"estimatedCost"`
	// Currency is the ISO 4217 currency code.
	Currency string `json:"currency"`
}

// Provider is one TTS backend.
type Provider interface {
	// Name identifies the provider ("fal", "local").
	Name() string
	// Estimate projects cost and duration for the given text.
	Estimate(text string) Estimate
	// Synthesize renders the request to audio.
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Provider)
)

// Register makes a provider available by name. Registering a nil
// provider or the same name twice panics.
func Register(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p == nil {
		panic("tts: Register provider is nil")
	}
	name := p.Name()
	if _, dup := registry[name]; dup {
		panic("tts: Register called twice for provider " + name)
	}
	registry[name] = p
}

// Get returns the named provider, or an error if none is registered.
func Get(name string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("tts: unknown provider %q (registered: %s)",
			name, strings.Join(providerNames(), ", "))
	}
	return p, nil
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return providerNames()
}

func providerNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// speakingRateWPM is the assumed narration speed for duration estimates.
const speakingRateWPM = 150.0

// countText returns the rune and word counts used by estimates.
func countText(text string) (chars, words int) {
	return utf8.RuneCountInString(text), len(strings.Fields(text))
}

// estimateDuration projects speech length from word count.
func estimateDuration(words int) float64 {
	return float64(words) / speakingRateWPM * 60.0
}
