package browser

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arnavsurve/pagerun/pkg/log"
)

type EngineFactory func(cfg EngineConfig) (Engine, error)

// registry stores each engine's factory function, keyed by the name used in
// configuration and on the command line.
var (
	registryMu sync.RWMutex
	registry   = map[string]EngineFactory{}
)

// RegisterEngineFactory is called from each engine's init function.
func RegisterEngineFactory(name string, factory EngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewEngine returns a new Engine using the factory registered for cfg.Name.
func NewEngine(cfg EngineConfig) (Engine, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownEngine, cfg.Name, EngineNames())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return factory(cfg)
}

// IsRegistered reports whether an engine factory exists for name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// EngineNames lists registered engines in sorted order.
func EngineNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
