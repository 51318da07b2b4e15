// Package flags implements ports.FeatureFlags on top of koanf.
package flags

import (
	"context"
	"fmt"
	"sync"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Static serves flags from configuration. Values can be replaced at runtime with Set.
type Static struct {
	mu sync.RWMutex
	k  *koanf.Koanf
}

// NewStatic creates flags from the features section of the config.
func NewStatic(features map[string]bool) (*Static, error) {
	k := koanf.New(".")

	values := make(map[string]any, len(features))
	for name, enabled := range features {
		values[name] = enabled
	}

	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return nil, fmt.Errorf("loading feature flags: %w", err)
	}

	return &Static{k: k}, nil
}

// IsEnabled implements ports.FeatureFlags.
func (s *Static) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(flag) {
		return defaultValue
	}

	return s.k.Bool(flag)
}

// Set overrides a single flag.
func (s *Static) Set(flag string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.k.Load(confmap.Provider(map[string]any{flag: enabled}, "."), nil)
}
