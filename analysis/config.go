package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable thresholds of the analysis pipeline.
type Config struct {

	// ChangeInEstimatePct is the relative coefficient change, in
	// percent, above which a removed covariate is flagged as a
	// confounder.
	ChangeInEstimatePct float64 `yaml:"change_in_estimate_pct"`

	// PHTestAlpha is the significance level for the proportional
	// hazards tests.
	PHTestAlpha float64 `yaml:"ph_test_alpha"`

	// DFBetaThreshold is the absolute dfbeta value above which an
	// observation is flagged as influential.
	DFBetaThreshold float64 `yaml:"dfbeta_threshold"`

	// SurvGridStep is the time step, in days, of the survival curve
	// evaluation grid.
	SurvGridStep float64 `yaml:"surv_grid_step"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		ChangeInEstimatePct: 20,
		PHTestAlpha:         0.05,
		DFBetaThreshold:     0.0005,
		SurvGridStep:        10,
	}
}

// LoadConfig reads a YAML configuration file.  Fields absent from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("analysis: reading config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("analysis: parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.ChangeInEstimatePct <= 0 {
		return fmt.Errorf("analysis: change_in_estimate_pct must be positive, have %v", cfg.ChangeInEstimatePct)
	}
	if cfg.PHTestAlpha <= 0 || cfg.PHTestAlpha >= 1 {
		return fmt.Errorf("analysis: ph_test_alpha must be in (0, 1), have %v", cfg.PHTestAlpha)
	}
	if cfg.DFBetaThreshold <= 0 {
		return fmt.Errorf("analysis: dfbeta_threshold must be positive, have %v", cfg.DFBetaThreshold)
	}
	if cfg.SurvGridStep <= 0 {
		return fmt.Errorf("analysis: surv_grid_step must be positive, have %v", cfg.SurvGridStep)
	}
	return nil
}
