package manager

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mlxd/internal/runtime"
	"mlxd/pkg/types"
)

// Manager owns the bounded LRU cache of loaded model handles and builds
// generation sessions against it. All cache-mutating operations are
// serialized under mu; inference against resident handles runs outside the
// lock because handles are read-only during generation.
type Manager struct {
	mu     sync.Mutex
	loadMu sync.Mutex // serializes loader/unloader calls

	entries  map[string]*entry
	seq      uint64 // strictly increasing recency counter
	capacity int
	closed   bool

	loader runtime.Loader
	gen    runtime.Generator

	registry     []types.Model
	defaultModel string

	temperature float64
	topP        float64
	maxTokens   int

	publisher EventPublisher
	startTime time.Time

	loadsTotal     uint64
	evictionsTotal uint64
	hitsTotal      uint64
}

// New constructs a Manager with package defaults.
func New(loader runtime.Loader, gen runtime.Generator, reg []types.Model) *Manager {
	return NewWithConfig(Config{Loader: loader, Generator: gen, Registry: reg})
}

// Ready reports whether the manager accepts requests. Models load lazily,
// so the manager is ready as soon as it is constructed and not yet closed.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Capacity returns the configured maximum number of resident models.
func (m *Manager) Capacity() int { return m.capacity }

// canonicalize maps a requested identifier to its stable cache key: the
// registry path when the id is registered, otherwise the cleaned absolute
// path of the identifier itself.
func (m *Manager) canonicalize(id string) string {
	id = strings.TrimSpace(id)
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl.Path
		}
	}
	if abs, err := filepath.Abs(id); err == nil {
		return abs
	}
	return filepath.Clean(id)
}

// resolveModel applies the default-model fallback and validates the result.
func (m *Manager) resolveModel(requested string) (string, error) {
	id := strings.TrimSpace(requested)
	if id == "" {
		id = m.defaultModel
	}
	if id == "" {
		return "", errValidation("model is required")
	}
	return id, nil
}

// params merges request sampling fields with the configured defaults.
func (m *Manager) params(req types.ChatCompletionRequest) runtime.Params {
	p := runtime.Params{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	if p.Temperature == 0 {
		p.Temperature = m.temperature
	}
	if p.TopP == 0 {
		p.TopP = m.topP
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = m.maxTokens
	}
	return p
}

// validate checks request shape before any cache interaction.
func (m *Manager) validate(req types.ChatCompletionRequest) (string, error) {
	modelID, err := m.resolveModel(req.Model)
	if err != nil {
		return "", err
	}
	if len(req.Messages) == 0 {
		return "", errValidation("messages must not be empty")
	}
	return modelID, nil
}
