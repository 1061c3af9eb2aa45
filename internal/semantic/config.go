package semantic

import "errors"

// Config holds the extraction thresholds. Distances are multiples of the
// mean box height or width of the layout.
type Config struct {
	LabelThreshold        float64 `mapstructure:"label_threshold" yaml:"label_threshold" json:"label_threshold"`
	NoiseMinConfidence    float64 `mapstructure:"noise_min_confidence" yaml:"noise_min_confidence" json:"noise_min_confidence"`
	NoiseMaxChars         int     `mapstructure:"noise_max_chars" yaml:"noise_max_chars" json:"noise_max_chars"`
	BandTolerance         float64 `mapstructure:"band_tolerance" yaml:"band_tolerance" json:"band_tolerance"`
	RowTolerance          float64 `mapstructure:"row_tolerance" yaml:"row_tolerance" json:"row_tolerance"`
	RightMaxWidths        float64 `mapstructure:"right_max_widths" yaml:"right_max_widths" json:"right_max_widths"`
	BelowMaxGap           float64 `mapstructure:"below_max_gap" yaml:"below_max_gap" json:"below_max_gap"`
	BelowMinOverlap       float64 `mapstructure:"below_min_overlap" yaml:"below_min_overlap" json:"below_min_overlap"`
	DistrictThreshold     float64 `mapstructure:"district_threshold" yaml:"district_threshold" json:"district_threshold"`
	MunicipalityThreshold float64 `mapstructure:"municipality_threshold" yaml:"municipality_threshold" json:"municipality_threshold"`
}

// DefaultConfig returns the thresholds tuned on scanned cards.
func DefaultConfig() Config {
	return Config{
		LabelThreshold:        70,
		NoiseMinConfidence:    0.30,
		NoiseMaxChars:         2,
		BandTolerance:         0.15,
		RowTolerance:          0.6,
		RightMaxWidths:        6,
		BelowMaxGap:           2.5,
		BelowMinOverlap:       0.15,
		DistrictThreshold:     70,
		MunicipalityThreshold: 65,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LabelThreshold <= 0 || c.LabelThreshold > 100 {
		return errors.New("label threshold must be in (0, 100]")
	}
	if c.NoiseMinConfidence < 0 || c.NoiseMinConfidence > 1 {
		return errors.New("noise confidence floor must be in [0, 1]")
	}
	if c.NoiseMaxChars < 0 {
		return errors.New("noise character limit cannot be negative")
	}
	if c.RowTolerance <= 0 || c.RightMaxWidths <= 0 || c.BelowMaxGap <= 0 {
		return errors.New("spatial tolerances must be positive")
	}
	if c.DistrictThreshold < 0 || c.DistrictThreshold > 100 ||
		c.MunicipalityThreshold < 0 || c.MunicipalityThreshold > 100 {
		return errors.New("geography thresholds must be in [0, 100]")
	}
	return nil
}
