package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all dublette configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Database path (sqlite)
	DatabasePath string `yaml:"database_path"`

	// Scoring signal weights and thresholds
	Scoring    ScoringConfig    `yaml:"scoring"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Per-signal tuning
	Geo   GeoConfig   `yaml:"geo"`
	Date  DateConfig  `yaml:"date"`
	Title TitleConfig `yaml:"title"`

	// Clustering coherence limits
	Cluster ClusterConfig `yaml:"cluster"`

	// Category-aware weight overrides
	CategoryWeights CategoryWeightsConfig `yaml:"category_weights"`

	// Text normalization tables
	Text TextConfig `yaml:"text"`

	// LLM resolution of the ambiguous band
	AI AIConfig `yaml:"ai"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// Weights is one weight vector over the four signals.
type Weights struct {
	Date        float64 `yaml:"date"`
	Geo         float64 `yaml:"geo"`
	Title       float64 `yaml:"title"`
	Description float64 `yaml:"description"`
}

// Sum returns the unnormalized weight mass.
func (w Weights) Sum() float64 {
	return w.Date + w.Geo + w.Title + w.Description
}

// ScoringConfig configures the combiner.
type ScoringConfig struct {
	Weights Weights `yaml:"weights"`
}

// ThresholdsConfig classifies combined scores.
type ThresholdsConfig struct {
	High      float64 `yaml:"high"`
	Low       float64 `yaml:"low"`
	TitleVeto float64 `yaml:"title_veto"`
}

// GeoConfig configures the geographic scorer.
type GeoConfig struct {
	MaxDistanceKM        float64 `yaml:"max_distance_km"`
	MinConfidence        float64 `yaml:"min_confidence"`
	NeutralScore         float64 `yaml:"neutral_score"`
	VenueMatchDistanceKM float64 `yaml:"venue_match_distance_km"`
	VenueMismatchFactor  float64 `yaml:"venue_mismatch_factor"`
}

// DateConfig configures the date scorer's time-proximity factor.
type DateConfig struct {
	TimeToleranceMinutes int     `yaml:"time_tolerance_minutes"`
	TimeCloseMinutes     int     `yaml:"time_close_minutes"`
	CloseFactor          float64 `yaml:"close_factor"`
	FarFactor            float64 `yaml:"far_factor"`
	TimeGapPenaltyHours  float64 `yaml:"time_gap_penalty_hours"`
	TimeGapPenaltyFactor float64 `yaml:"time_gap_penalty_factor"`
}

// TitleBlend is a primary/secondary ratio blend window.
type TitleBlend struct {
	PrimaryWeight   float64 `yaml:"primary_weight"`
	SecondaryWeight float64 `yaml:"secondary_weight"`
	BlendLower      float64 `yaml:"blend_lower"`
	BlendUpper      float64 `yaml:"blend_upper"`
}

// TitleConfig configures the title scorer, including the cross-source-type
// override used when listings carry short titles.
type TitleConfig struct {
	TitleBlend       `yaml:",inline"`
	CrossSourceType  TitleBlend `yaml:"cross_source_type"`
	CrossSourceTypes []string   `yaml:"cross_source_types"`
}

// ClusterConfig configures coherence validation.
type ClusterConfig struct {
	MaxClusterSize        int     `yaml:"max_cluster_size"`
	MinInternalSimilarity float64 `yaml:"min_internal_similarity"`
}

// CategoryWeightsConfig selects override weights by shared category.
// Priority order decides which override wins when a pair shares several
// categories.
type CategoryWeightsConfig struct {
	Priority  []string           `yaml:"priority"`
	Overrides map[string]Weights `yaml:"overrides"`
}

// TextConfig carries the normalization tables.
type TextConfig struct {
	Synonyms      map[string]string `yaml:"synonyms"`
	CityAliases   map[string]string `yaml:"city_aliases"`
	DashPrefixes  []string          `yaml:"dash_prefixes"`
	ColonPrefixes []string          `yaml:"colon_prefixes"`
}

// AIConfig configures the LLM resolver.
type AIConfig struct {
	Enabled               bool    `yaml:"enabled"`
	APIKey                string  `yaml:"api_key"`
	Model                 string  `yaml:"model"`
	Temperature           float64 `yaml:"temperature"`
	MaxOutputTokens       int     `yaml:"max_output_tokens"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
	RequestTimeout        string  `yaml:"request_timeout"`
	ConfidenceThreshold   float64 `yaml:"confidence_threshold"`
	CacheEnabled          bool    `yaml:"cache_enabled"`
	CostPer1MInputTokens  float64 `yaml:"cost_per_1m_input_tokens"`
	CostPer1MOutputTokens float64 `yaml:"cost_per_1m_output_tokens"`
}

// LoggingConfig configures the category logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:         "dublette",
		Version:      "1.0.0",
		DatabasePath: "data/dublette.db",

		Scoring: ScoringConfig{
			Weights: Weights{Date: 0.30, Geo: 0.25, Title: 0.30, Description: 0.15},
		},
		Thresholds: ThresholdsConfig{High: 0.75, Low: 0.35, TitleVeto: 0.30},
		Geo: GeoConfig{
			MaxDistanceKM:        10,
			MinConfidence:        0.85,
			NeutralScore:         0.5,
			VenueMatchDistanceKM: 1.0,
			VenueMismatchFactor:  0.5,
		},
		Date: DateConfig{
			TimeToleranceMinutes: 30,
			TimeCloseMinutes:     90,
			CloseFactor:          0.7,
			FarFactor:            0.3,
			TimeGapPenaltyHours:  2.0,
			TimeGapPenaltyFactor: 0.15,
		},
		Title: TitleConfig{
			TitleBlend: TitleBlend{
				PrimaryWeight:   0.7,
				SecondaryWeight: 0.3,
				BlendLower:      0.40,
				BlendUpper:      0.80,
			},
			CrossSourceType: TitleBlend{
				PrimaryWeight:   0.4,
				SecondaryWeight: 0.6,
				BlendLower:      0.25,
				BlendUpper:      0.95,
			},
			CrossSourceTypes: []string{"article", "listing"},
		},
		Cluster: ClusterConfig{
			MaxClusterSize:        15,
			MinInternalSimilarity: 0.40,
		},
		CategoryWeights: CategoryWeightsConfig{},
		Text: TextConfig{
			Synonyms:      DefaultSynonyms(),
			CityAliases:   DefaultCityAliases(),
			DashPrefixes:  DefaultDashPrefixes(),
			ColonPrefixes: DefaultColonPrefixes(),
		},
		AI: AIConfig{
			Enabled:               false,
			Model:                 "gemini-2.0-flash",
			Temperature:           0.1,
			MaxOutputTokens:       512,
			MaxConcurrentRequests: 4,
			RequestTimeout:        "30s",
			ConfidenceThreshold:   0.6,
			CacheEnabled:          true,
			CostPer1MInputTokens:  0.10,
			CostPer1MOutputTokens: 0.40,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "data/logs",
		},
	}
}

// Load reads a yaml config file, merging it over defaults and applying
// environment overrides last. An empty path yields defaults plus env.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("DUBLETTE_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("DUBLETTE_AI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AI.Enabled = b
		}
	}
	if v := os.Getenv("DUBLETTE_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("DUBLETTE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Scoring.Weights.Date < 0 || c.Scoring.Weights.Geo < 0 ||
		c.Scoring.Weights.Title < 0 || c.Scoring.Weights.Description < 0 {
		return fmt.Errorf("scoring.weights must be non-negative")
	}
	if c.Scoring.Weights.Sum() <= 0 {
		return fmt.Errorf("scoring.weights must not sum to zero")
	}
	if c.Thresholds.Low > c.Thresholds.High {
		return fmt.Errorf("thresholds.low %.2f exceeds thresholds.high %.2f", c.Thresholds.Low, c.Thresholds.High)
	}
	if c.Geo.MaxDistanceKM <= 0 {
		return fmt.Errorf("geo.max_distance_km must be positive")
	}
	if c.Cluster.MaxClusterSize < 1 {
		return fmt.Errorf("cluster.max_cluster_size must be at least 1")
	}
	for cat, ov := range c.CategoryWeights.Overrides {
		if ov.Sum() <= 0 {
			return fmt.Errorf("category_weights.overrides[%s] must not sum to zero", cat)
		}
	}
	if c.AI.Enabled {
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
		if c.AI.MaxConcurrentRequests < 1 {
			return fmt.Errorf("ai.max_concurrent_requests must be at least 1")
		}
	}
	return nil
}
