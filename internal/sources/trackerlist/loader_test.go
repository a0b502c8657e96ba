package trackerlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "trackers.yaml")

	yamlContent := `---
params:
  - name: mc_eid
    vendor: mailchimp
  - name: igshid
    vendor: instagram
    notes: story share id
`

	err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	loader := NewLoader(yamlPath)
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config.Params) != 2 {
		t.Fatalf("Load() returned %d params, want 2", len(config.Params))
	}
	if config.Params[0].Name != "mc_eid" || config.Params[0].Vendor != "mailchimp" {
		t.Errorf("first param = %+v", config.Params[0])
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/trackers.yaml")
	config, err := loader.Load()
	if err != nil {
		t.Errorf("Load() with missing file should not error, got %v", err)
	}
	if len(config.Params) != 0 {
		t.Errorf("missing file produced %d params", len(config.Params))
	}
}

func TestLoaderLoadMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "trackers.yaml")

	err := os.WriteFile(yamlPath, []byte("params: [not: closed"), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	loader := NewLoader(yamlPath)
	if _, err := loader.Load(); err == nil {
		t.Error("Load() with malformed YAML should return error")
	}
}
