package config

import (
	"path/filepath"
	"testing"
)

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	doc := Document{
		ProtocolVersion: ProtocolVersion,
		ProjectID:       "demo",
		ProjectName:     "Demo Project",
		RootCycle:       "1-cycle-root",
		State: State{
			Branch:   "main",
			Defaults: Defaults{TaskPriority: "medium", ActorRole: "owner"},
		},
	}

	if err := Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != doc {
		t.Errorf("expected round-tripped document to equal the original, got %+v want %+v", got, doc)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error loading a nonexistent config file")
	}
}
