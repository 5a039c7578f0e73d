package deepsort

import (
	"fmt"
	"os"

	"github.com/swdee/go-deepsort/reid"
	"github.com/swdee/go-deepsort/tracker"
	"gopkg.in/yaml.v3"
)

// Config holds the tracking parameters of a Pipeline
type Config struct {
	// MaxCostDistance is the appearance cascade matching threshold
	MaxCostDistance float64 `json:"max_cost_distance" yaml:"max_cost_distance"`
	// MaxIoUDistance is the 1 - IoU matching threshold
	MaxIoUDistance float64 `json:"max_iou_distance" yaml:"max_iou_distance"`
	// GraceWindow is the number of consecutive missed frames at which a track
	// is deleted, and the gap at which an annotation object is split
	GraceWindow int `json:"grace_window" yaml:"grace_window"`
	// MinHits is the number of consecutive matches to confirm a track
	MinHits int `json:"min_hits" yaml:"min_hits"`
	// GalleryBudget is the number of appearance descriptors kept per track
	GalleryBudget int `json:"gallery_budget" yaml:"gallery_budget"`
	// Lambda weights motion against appearance in the cascade cost
	Lambda float64 `json:"lambda" yaml:"lambda"`
	// GateProbability is the chi-square probability of the motion gate
	GateProbability float64 `json:"gate_probability" yaml:"gate_probability"`
	// SpatialGateScale limits association candidates spatially, 0 disables
	SpatialGateScale float64 `json:"spatial_gate_scale" yaml:"spatial_gate_scale"`
	// Metric is the appearance distance, "cosine" or "euclidean"
	Metric string `json:"metric" yaml:"metric"`
	// Solver is the assignment solver, "lapjv" or "greedy"
	Solver string `json:"solver" yaml:"solver"`
	// MinConfidence drops detections scoring below it
	MinConfidence float32 `json:"min_confidence" yaml:"min_confidence"`
	// Classes restricts tracking to the listed classes, empty tracks all
	Classes []string `json:"classes" yaml:"classes"`
	// PrefetchDepth is the number of frames fetched ahead of the tracker
	PrefetchDepth int `json:"prefetch_depth" yaml:"prefetch_depth"`
}

// DefaultConfig returns the reference DeepSORT parameters
func DefaultConfig() Config {

	tc := tracker.DefaultConfig()

	return Config{
		MaxCostDistance:  tc.MaxCostDistance,
		MaxIoUDistance:   tc.MaxIoUDistance,
		GraceWindow:      tc.GraceWindow,
		MinHits:          tc.MinHits,
		GalleryBudget:    tc.GalleryBudget,
		Lambda:           tc.Lambda,
		GateProbability:  tc.GateProbability,
		SpatialGateScale: tc.SpatialGateScale,
		Metric:           tc.Metric.String(),
		Solver:           "lapjv",
		MinConfidence:    0,
		PrefetchDepth:    4,
	}
}

// ParseConfig decodes a YAML document over the defaults, fields missing from
// the document keep their default value
func ParseConfig(data []byte) (Config, error) {

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}

	if _, err := cfg.TrackerConfig(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadConfig reads a YAML config file, see ParseConfig
func LoadConfig(path string) (Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return Config{}, fmt.Errorf("error reading config: %w", err)
	}

	return ParseConfig(data)
}

// Marshal encodes the config as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// TrackerConfig converts the config into validated tracker parameters
func (c Config) TrackerConfig() (tracker.Config, error) {

	solver, err := tracker.ParseSolver(c.Solver)

	if err != nil {
		return tracker.Config{}, err
	}

	if c.Metric != "" && c.Metric != "cosine" && c.Metric != "euclidean" {
		return tracker.Config{}, fmt.Errorf("unknown metric %q", c.Metric)
	}

	tc := tracker.DefaultConfig()
	tc.MaxCostDistance = c.MaxCostDistance
	tc.MaxIoUDistance = c.MaxIoUDistance
	tc.GraceWindow = c.GraceWindow
	tc.MinHits = c.MinHits
	tc.GalleryBudget = c.GalleryBudget
	tc.Lambda = c.Lambda
	tc.GateProbability = c.GateProbability
	tc.SpatialGateScale = c.SpatialGateScale
	tc.Metric = reid.ParseMetric(c.Metric)
	tc.Solver = solver

	if err := tc.Validate(); err != nil {
		return tracker.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return tc, nil
}

// classFilter returns the set of selected classes, nil selects all
func (c Config) classFilter() map[string]bool {

	if len(c.Classes) == 0 {
		return nil
	}

	out := make(map[string]bool, len(c.Classes))

	for _, name := range c.Classes {
		out[name] = true
	}

	return out
}
