package similarity

import "fmt"

// Config holds the thresholds used by the Scorer and the candidate indexer.
type Config struct {
	// TokenThreshold is the minimum Jaccard similarity of word tokens for a token match.
	TokenThreshold float64 `mapstructure:"token_threshold"`

	// FuzzyThreshold is the minimum character sequence ratio for a fuzzy match.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`

	// MinLengthForFuzzy is the minimum length, in characters, of the shorter
	// text before fuzzy matching is attempted.
	MinLengthForFuzzy int `mapstructure:"min_length_for_fuzzy"`

	// FuzzyPrefilter is the minimum token similarity a pair needs before the
	// fuzzy ratio is computed.
	FuzzyPrefilter float64 `mapstructure:"fuzzy_prefilter"`
}

// DefaultConfig returns the default similarity configuration.
func DefaultConfig() Config {
	return Config{
		TokenThreshold:    0.80,
		FuzzyThreshold:    0.90,
		MinLengthForFuzzy: 20,
		FuzzyPrefilter:    0.50,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.TokenThreshold <= 0.0 || c.TokenThreshold > 1.0 {
		return fmt.Errorf("token_threshold must be in (0.0, 1.0] (got %.2f)", c.TokenThreshold)
	}
	if c.FuzzyThreshold <= 0.0 || c.FuzzyThreshold > 1.0 {
		return fmt.Errorf("fuzzy_threshold must be in (0.0, 1.0] (got %.2f)", c.FuzzyThreshold)
	}
	if c.FuzzyPrefilter < 0.0 || c.FuzzyPrefilter > 1.0 {
		return fmt.Errorf("fuzzy_prefilter must be between 0.0 and 1.0 (got %.2f)", c.FuzzyPrefilter)
	}
	if c.MinLengthForFuzzy < 0 {
		return fmt.Errorf("min_length_for_fuzzy cannot be negative (got %d)", c.MinLengthForFuzzy)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Token: %.2f, Fuzzy: %.2f, MinFuzzyLen: %d, Prefilter: %.2f}",
		c.TokenThreshold, c.FuzzyThreshold, c.MinLengthForFuzzy, c.FuzzyPrefilter)
}
