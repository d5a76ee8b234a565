package manager

import (
	"time"

	"mlxd/internal/runtime"
	"mlxd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset. The sampling
// defaults match the upstream MLX serving conventions.
const (
	defaultMaxModels   = 3
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
	defaultTopP        = 1.0
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Loader loads and releases model handles. Required.
	Loader runtime.Loader
	// Generator drives inference against loaded handles. Required.
	Generator runtime.Generator
	// Registry maps short model ids to on-disk paths. Identifiers not in
	// the registry are treated as paths.
	Registry []types.Model
	// MaxModels caps the number of resident models (min 1, default 3).
	// Fixed for the lifetime of the Manager.
	MaxModels int
	// DefaultModel is used when a request omits the model field.
	DefaultModel string
	// Events receives cache lifecycle events. Defaults to a no-op.
	Events EventPublisher

	// Sampling defaults used when a request leaves the field zero.
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// NewWithConfig constructs a Manager from Config, applying defaults.
func NewWithConfig(cfg Config) *Manager {
	m := &Manager{
		loader:       cfg.Loader,
		gen:          cfg.Generator,
		registry:     cfg.Registry,
		capacity:     cfg.MaxModels,
		defaultModel: cfg.DefaultModel,
		publisher:    cfg.Events,
		temperature:  cfg.Temperature,
		topP:         cfg.TopP,
		maxTokens:    cfg.MaxTokens,
		entries:      make(map[string]*entry),
	}
	if m.capacity < 1 {
		m.capacity = defaultMaxModels
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.temperature == 0 {
		m.temperature = defaultTemperature
	}
	if m.topP == 0 {
		m.topP = defaultTopP
	}
	if m.maxTokens <= 0 {
		m.maxTokens = defaultMaxTokens
	}
	m.startTime = time.Now()
	return m
}
