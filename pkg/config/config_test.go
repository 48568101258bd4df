package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if time.Duration(cfg.Store.SyncDebounce) != 500*time.Millisecond {
		t.Errorf("Expected 500ms sync debounce, got %v", cfg.Store.SyncDebounce)
	}
	if cfg.Tracker.MaxWorkingSet != 16 {
		t.Errorf("Expected working set 16, got %d", cfg.Tracker.MaxWorkingSet)
	}
	if time.Duration(cfg.Tracker.AccessMaxAge) != time.Hour {
		t.Errorf("Expected 1h access max age, got %v", cfg.Tracker.AccessMaxAge)
	}
	if len(cfg.Tracker.AlwaysHot) != 3 {
		t.Errorf("Expected 3 default always-hot entries, got %d", len(cfg.Tracker.AlwaysHot))
	}
	if cfg.Assembler.PerFileTokens != 10000 {
		t.Errorf("Expected per-file budget 10000, got %d", cfg.Assembler.PerFileTokens)
	}
	if cfg.Assembler.ContextCeiling != 100000 {
		t.Errorf("Expected context ceiling 100000, got %d", cfg.Assembler.ContextCeiling)
	}
	if cfg.History.RecentCount != 10 {
		t.Errorf("Expected recent count 10, got %d", cfg.History.RecentCount)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads partial config over defaults", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "appstruct.yaml")

		content := `store:
  sync_debounce: 250ms
tracker:
  max_working_set: 8
  always_hot:
    - package.json
    - "app/layout.*"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if time.Duration(cfg.Store.SyncDebounce) != 250*time.Millisecond {
			t.Errorf("Expected 250ms sync debounce, got %v", cfg.Store.SyncDebounce)
		}
		if cfg.Tracker.MaxWorkingSet != 8 {
			t.Errorf("Expected working set 8, got %d", cfg.Tracker.MaxWorkingSet)
		}
		if len(cfg.Tracker.AlwaysHot) != 2 {
			t.Errorf("Expected 2 always-hot entries, got %d", len(cfg.Tracker.AlwaysHot))
		}
		// Untouched sections keep their defaults
		if cfg.Assembler.ContextCeiling != 100000 {
			t.Errorf("Expected default ceiling, got %d", cfg.Assembler.ContextCeiling)
		}
	})

	t.Run("rejects missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "bad.yaml")
		if err := os.WriteFile(configPath, []byte("store: [not a map"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		if _, err := Load(configPath); err == nil {
			t.Error("Expected error for malformed yaml")
		}
	})

	t.Run("rejects invalid duration", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "bad.yaml")
		if err := os.WriteFile(configPath, []byte("store:\n  sync_debounce: fast\n"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		if _, err := Load(configPath); err == nil {
			t.Error("Expected error for invalid duration")
		}
	})
}

func TestNormalize(t *testing.T) {
	cfg := &Config{}
	cfg.Tracker.MaxWorkingSet = -3
	cfg.Normalize()

	if time.Duration(cfg.Store.SyncDebounce) != 500*time.Millisecond {
		t.Errorf("Expected debounce normalized to default, got %v", cfg.Store.SyncDebounce)
	}
	if cfg.Tracker.MaxWorkingSet != 16 {
		t.Errorf("Expected working set normalized to 16, got %d", cfg.Tracker.MaxWorkingSet)
	}
	if cfg.Assembler.PerFileTokens != 10000 {
		t.Errorf("Expected per-file budget normalized, got %d", cfg.Assembler.PerFileTokens)
	}

	cfg.History.RecentCount = 0
	cfg.Normalize()
	if cfg.History.RecentCount != 10 {
		t.Errorf("Expected recent count normalized to 10, got %d", cfg.History.RecentCount)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Assembler.PerFileTokens = cfg.Assembler.ContextCeiling + 1

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when per-file budget exceeds ceiling")
	}
}

func TestDurationMarshal(t *testing.T) {
	out, err := Duration(90 * time.Second).MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	if out != "1m30s" {
		t.Errorf("Expected '1m30s', got %v", out)
	}
}
