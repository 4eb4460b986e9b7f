package http

import (
	"sync"
)

// SessionManager manages the header set applied to outbound requests.
// Player endpoints behave better with a consistent browser-like identity,
// so the session pins user agent and referer across requests.
type SessionManager struct {
	mu     sync.RWMutex
	config SessionConfig
}

// SessionConfig configures session behavior.
type SessionConfig struct {
	// UserAgent for HTTP requests
	UserAgent string

	// RefererURL to use in requests (helps with player endpoints)
	RefererURL string

	// HeadersToAdd are custom headers to include in all requests
	HeadersToAdd map[string]string
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		RefererURL:   "https://www.youtube.com",
		HeadersToAdd: make(map[string]string),
	}
}

// NewSessionManager creates a new session manager.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultSessionConfig().UserAgent
	}
	if cfg.HeadersToAdd == nil {
		cfg.HeadersToAdd = make(map[string]string)
	}

	return &SessionManager{config: cfg}
}

// GetHeaders returns the headers to apply to every request.
func (sm *SessionManager) GetHeaders() map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	headers := make(map[string]string, len(sm.config.HeadersToAdd)+2)
	headers["User-Agent"] = sm.config.UserAgent
	if sm.config.RefererURL != "" {
		headers["Referer"] = sm.config.RefererURL
	}
	for k, v := range sm.config.HeadersToAdd {
		headers[k] = v
	}
	return headers
}

// SetHeader sets a custom header applied to all subsequent requests.
func (sm *SessionManager) SetHeader(key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.config.HeadersToAdd[key] = value
}
