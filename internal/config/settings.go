package config

import "sync"

// Settings is the live runtime view handed to the engine. The engine
// re-reads the model id and context window on every request send, so
// changes here take effect immediately rather than being cached per
// session.
type Settings struct {
	mu            sync.RWMutex
	model         string
	contextWindow int
}

// NewSettings seeds a Settings from a loaded Config.
func NewSettings(cfg *Config) *Settings {
	return &Settings{
		model:         cfg.Model,
		contextWindow: cfg.ContextWindow,
	}
}

// ModelID returns the currently selected model identifier.
func (s *Settings) ModelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModelID switches the selected model. Sessions already bound to the
// previous model will refuse further requests until they are cleared.
func (s *Settings) SetModelID(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// ContextWindow returns the history window size in request/response
// pairs.
func (s *Settings) ContextWindow() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextWindow
}

// SetContextWindow updates the history window size.
func (s *Settings) SetContextWindow(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextWindow = n
}
