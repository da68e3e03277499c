package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kestrelbio/forager/pkg/models"
)

// Registry is the capability-keyed lookup table of worker agents.
// Agents are registered before a round begins; an optional manifest
// file enables or disables capabilities without a rebuild.
type Registry struct {
	agents   map[models.Capability]Agent
	disabled map[models.Capability]bool
	log      zerolog.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		agents:   make(map[models.Capability]Agent),
		disabled: make(map[models.Capability]bool),
		log:      log,
	}
}

// Register adds an agent under its capability tag.
// Registering a second agent for the same capability replaces the first.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Capability()] = a
}

// Lookup returns the enabled agent for a capability, or false if none.
func (r *Registry) Lookup(c models.Capability) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.disabled[c] {
		return nil, false
	}
	a, ok := r.agents[c]
	return a, ok
}

// Capabilities returns the capabilities with an enabled agent.
func (r *Registry) Capabilities() []models.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := make([]models.Capability, 0, len(r.agents))
	for c := range r.agents {
		if !r.disabled[c] {
			caps = append(caps, c)
		}
	}
	return caps
}

// Count returns the number of registered agents, enabled or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// manifest is the on-disk capability toggle file.
type manifest struct {
	Capabilities map[string]manifestEntry `yaml:"capabilities"`
}

type manifestEntry struct {
	Enabled bool `yaml:"enabled"`
}

// LoadManifest applies the capability toggles in the YAML file at path.
// Capabilities absent from the manifest stay enabled.
func (r *Registry) LoadManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = make(map[models.Capability]bool)
	for name, entry := range m.Capabilities {
		if !entry.Enabled {
			r.disabled[models.Capability(name)] = true
		}
	}
	return nil
}

// Watch reloads the manifest whenever it changes on disk, until ctx is
// cancelled. Reload failures are logged and the previous toggles kept.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch manifest dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := r.LoadManifest(path); err != nil {
					r.log.Warn().Err(err).Msg("manifest reload failed, keeping previous toggles")
					continue
				}
				r.log.Info().Str("path", path).Msg("agent manifest reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn().Err(err).Msg("manifest watcher error")
			}
		}
	}()

	return nil
}
