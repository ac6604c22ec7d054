package plugin

import (
	"sync"

	"github.com/clusterhub/clustercore/internal/logger"
)

// Factory constructs a fresh Handler instance. Plugins register a
// factory, not a shared instance, so the registry never leaks mutable
// state between unrelated requests for the same handler name — the
// same discipline the teacher's plugin registry enforces.
type Factory func() Handler

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register adds a plugin factory under name, typically called from a
// plugin package's init(). Re-registering an existing name overwrites
// it and logs a warning, matching the teacher's hot-reload-friendly
// registration semantics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		logger.Plugin().Warn().Str("handler", name).Msg("plugin already registered, overwriting")
	}
	registry[name] = factory
	logger.Plugin().Info().Str("handler", name).Msg("registered plugin")
}

// Get constructs a new Handler for name, or reports it isn't
// registered.
func Get(name string) (Handler, bool) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// List returns every registered handler name.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
