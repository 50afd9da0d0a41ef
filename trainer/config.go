// Package trainer runs complete training sessions: it prepares the rows,
// fits every requested model kind, evaluates, explains and cross-validates
// it, and returns serializable TrainedModel artifacts that can be turned
// back into live predictors without retraining.
package trainer

import (
	"strings"

	"github.com/plantops/forgeml/core/random"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/sklearn/ensemble"
)

// ModelKind names a model family.
type ModelKind string

const (
	KindLinear           ModelKind = "linear"
	KindRandomForest     ModelKind = "random_forest"
	KindGradientBoosting ModelKind = "gradient_boosting"
)

// canonicalKinds is the order in which kinds are trained.
var canonicalKinds = []ModelKind{KindLinear, KindRandomForest, KindGradientBoosting}

// ParseModelKind accepts the canonical names and common aliases.
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "linear_regression", "lr":
		return KindLinear, nil
	case "random_forest", "randomized-forest", "randomized_forest", "random-forest", "extra_trees", "rf":
		return KindRandomForest, nil
	case "gradient_boosting", "gradient-boosting", "gbm", "gb":
		return KindGradientBoosting, nil
	default:
		return "", errors.NewValidationError("models", "unknown model kind", s)
	}
}

// Config describes one training run.
type Config struct {
	// Target is the column to predict.
	Target string `json:"target" yaml:"target"`

	// Features are the input columns. Their order is the order of every
	// vector the trained models accept.
	Features []string `json:"features" yaml:"features"`

	// TestSplit is the held-out fraction in (0, 1).
	TestSplit float64 `json:"test_split" yaml:"test_split"`

	// Models lists the kinds to train. Aliases are accepted.
	Models []string `json:"models" yaml:"models"`
}

// Validate checks the configuration before any row is touched.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return errors.NewValidationError("target", "must not be empty", c.Target)
	}
	if len(c.Features) == 0 {
		return errors.NewValidationError("features", "at least one feature is required", c.Features)
	}
	seen := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		if strings.TrimSpace(f) == "" {
			return errors.NewValidationError("features", "feature names must not be empty", c.Features)
		}
		if f == c.Target {
			return errors.NewValidationError("features", "target must not be a feature", f)
		}
		if seen[f] {
			return errors.NewValidationError("features", "duplicate feature", f)
		}
		seen[f] = true
	}
	if !(c.TestSplit > 0 && c.TestSplit < 1) {
		return errors.NewValidationError("test_split", "must be in (0, 1)", c.TestSplit)
	}
	_, err := c.Kinds()
	return err
}

// Kinds returns the requested kinds in canonical order with duplicates removed.
func (c Config) Kinds() ([]ModelKind, error) {
	if len(c.Models) == 0 {
		return nil, errors.NewValidationError("models", "at least one model kind is required", c.Models)
	}
	want := make(map[ModelKind]bool, len(c.Models))
	for _, m := range c.Models {
		k, err := ParseModelKind(m)
		if err != nil {
			return nil, err
		}
		want[k] = true
	}
	kinds := make([]ModelKind, 0, len(want))
	for _, k := range canonicalKinds {
		if want[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

func (c Config) columns() preprocessing.Columns {
	return preprocessing.Columns{Target: c.Target, Features: c.Features}
}

// Params are the model hyper-parameters. Production models and the lighter
// models refit inside cross-validation have separate settings.
type Params struct {
	BoostingRounds   int     `json:"boosting_rounds" yaml:"boosting_rounds"`
	CVBoostingRounds int     `json:"cv_boosting_rounds" yaml:"cv_boosting_rounds"`
	LearningRate     float64 `json:"learning_rate" yaml:"learning_rate"`

	ForestTrees      int `json:"forest_trees" yaml:"forest_trees"`
	ForestMaxDepth   int `json:"forest_max_depth" yaml:"forest_max_depth"`
	CVForestTrees    int `json:"cv_forest_trees" yaml:"cv_forest_trees"`
	CVForestMaxDepth int `json:"cv_forest_max_depth" yaml:"cv_forest_max_depth"`
	ForestMinLeaf    int `json:"forest_min_leaf" yaml:"forest_min_leaf"`

	Seed uint32 `json:"seed" yaml:"seed"`
}

// DefaultParams returns the standard production and cross-validation settings.
func DefaultParams() Params {
	return Params{
		BoostingRounds:   100,
		CVBoostingRounds: 30,
		LearningRate:     0.1,
		ForestTrees:      50,
		ForestMaxDepth:   8,
		CVForestTrees:    20,
		CVForestMaxDepth: 6,
		ForestMinLeaf:    2,
		Seed:             random.DefaultSeed,
	}
}

// Validate rejects hyper-parameters no model can be built with.
func (p Params) Validate() error {
	checks := []struct {
		name string
		v    int
	}{
		{"boosting_rounds", p.BoostingRounds},
		{"cv_boosting_rounds", p.CVBoostingRounds},
		{"forest_trees", p.ForestTrees},
		{"forest_max_depth", p.ForestMaxDepth},
		{"cv_forest_trees", p.CVForestTrees},
		{"cv_forest_max_depth", p.CVForestMaxDepth},
		{"forest_min_leaf", p.ForestMinLeaf},
	}
	for _, c := range checks {
		if c.v < 1 {
			return errors.NewValidationError(c.name, "must be positive", c.v)
		}
	}
	if !(p.LearningRate > 0) || !errors.IsFinite(p.LearningRate) {
		return errors.NewValidationError("learning_rate", "must be a positive finite number", p.LearningRate)
	}
	return nil
}

func (p Params) gradientBoosting(cv bool) ensemble.GradientBoostingConfig {
	cfg := ensemble.GradientBoostingConfig{NRounds: p.BoostingRounds, LearningRate: p.LearningRate, YieldEvery: 10}
	if cv {
		cfg.NRounds = p.CVBoostingRounds
	}
	return cfg
}

func (p Params) extraTrees(cv bool) ensemble.ExtraTreesConfig {
	cfg := ensemble.ExtraTreesConfig{
		NEstimators:    p.ForestTrees,
		MaxDepth:       p.ForestMaxDepth,
		MinSamplesLeaf: p.ForestMinLeaf,
		Seed:           p.Seed,
		YieldEvery:     5,
	}
	if cv {
		cfg.NEstimators = p.CVForestTrees
		cfg.MaxDepth = p.CVForestMaxDepth
	}
	return cfg
}

// DisplayName is the human-readable name used in progress labels and reports.
func (k ModelKind) DisplayName() string {
	switch k {
	case KindLinear:
		return "Linear Regression"
	case KindRandomForest:
		return "Randomized Forest"
	case KindGradientBoosting:
		return "Gradient Boosting"
	default:
		return string(k)
	}
}

func (c Config) clone() Config {
	c.Features = append([]string(nil), c.Features...)
	c.Models = append([]string(nil), c.Models...)
	return c
}
