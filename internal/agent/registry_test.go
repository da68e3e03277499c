package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kestrelbio/forager/pkg/models"
)

// stubAgent is a minimal Agent for registry tests.
type stubAgent struct {
	capability models.Capability
}

func (s *stubAgent) Name() string                   { return string(s.capability) }
func (s *stubAgent) Capability() models.Capability  { return s.capability }
func (s *stubAgent) Execute(ctx context.Context, q models.Query) ([]models.Evidence, error) {
	return []models.Evidence{}, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&stubAgent{capability: models.CapabilityPatents})

	a, ok := r.Lookup(models.CapabilityPatents)
	if !ok || a == nil {
		t.Fatal("registered agent should be found")
	}
	if _, ok := r.Lookup(models.CapabilityLiterature); ok {
		t.Error("unregistered capability should not be found")
	}
}

func TestRegistry_ReplaceOnDuplicateRegister(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	first := &stubAgent{capability: models.CapabilityPatents}
	second := &stubAgent{capability: models.CapabilityPatents}
	r.Register(first)
	r.Register(second)

	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	a, _ := r.Lookup(models.CapabilityPatents)
	if a != Agent(second) {
		t.Error("second registration should replace the first")
	}
}

func TestRegistry_ManifestDisablesCapability(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&stubAgent{capability: models.CapabilityPatents})
	r.Register(&stubAgent{capability: models.CapabilityLiterature})

	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	manifest := "capabilities:\n  patents:\n    enabled: false\n  literature:\n    enabled: true\n"
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	if err := r.LoadManifest(path); err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	if _, ok := r.Lookup(models.CapabilityPatents); ok {
		t.Error("disabled capability should not be served")
	}
	if _, ok := r.Lookup(models.CapabilityLiterature); !ok {
		t.Error("enabled capability should be served")
	}

	caps := r.Capabilities()
	if len(caps) != 1 || caps[0] != models.CapabilityLiterature {
		t.Errorf("Capabilities = %v, want [literature]", caps)
	}
}

func TestRegistry_LoadManifest_MissingFile(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	if err := r.LoadManifest(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing manifest should return an error")
	}
}
