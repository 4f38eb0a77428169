package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func testFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("input", "", "")
	f.Bool("web", false, "")
	f.Int("port", 8080, "")
	f.String("validation", "normal", "")
	f.Int("smart-collapse", 0, "")
	return f
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.WebMode {
		t.Error("Expected web mode off by default")
	}
	if !cfg.OpenBrowser {
		t.Error("Expected open browser on by default")
	}
	if cfg.Validation != "normal" {
		t.Errorf("Expected default validation normal, got %q", cfg.Validation)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("HYDROSCOPE_PORT", "9999")
	t.Setenv("HYDROSCOPE_WEB", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected env port 9999, got %d", cfg.Port)
	}
	if !cfg.WebMode {
		t.Error("Expected env to enable web mode")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("HYDROSCOPE_PORT", "9999")

	f := testFlagSet()
	if err := f.Parse([]string{"--port", "7070", "--input", "graph.json"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected flag port 7070 to win over env, got %d", cfg.Port)
	}
	if cfg.Input != "graph.json" {
		t.Errorf("Expected input graph.json, got %q", cfg.Input)
	}
}
