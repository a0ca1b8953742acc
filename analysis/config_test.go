package analysis

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {

	cfg := DefaultConfig()

	if cfg.ChangeInEstimatePct != 20 {
		t.Fail()
	}
	if cfg.PHTestAlpha != 0.05 {
		t.Fail()
	}
	if cfg.DFBetaThreshold != 0.0005 {
		t.Fail()
	}
	if cfg.SurvGridStep != 10 {
		t.Fail()
	}
	if cfg.validate() != nil {
		t.Fail()
	}
}

func TestLoadConfig(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "gbcs.yaml")

	body := "ph_test_alpha: 0.01\nsurv_grid_step: 25\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		panic(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}

	if cfg.PHTestAlpha != 0.01 {
		t.Fail()
	}
	if cfg.SurvGridStep != 25 {
		t.Fail()
	}

	// Omitted fields keep their defaults.
	if cfg.ChangeInEstimatePct != 20 {
		t.Fail()
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fail()
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("ph_test_alpha: 2\n"), 0o644); err != nil {
		panic(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fail()
	}
}
