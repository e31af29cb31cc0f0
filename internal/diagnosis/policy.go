package diagnosis

import (
	"fmt"
	"math"
)

const (
	DefaultHighConfidence = 0.60
	DefaultMinConfidence  = 0.30
	DefaultMargin         = 0.15
)

// Thresholds tunes the acceptance policy. All comparisons are strict.
type Thresholds struct {
	HighConfidence float64 `json:"high_confidence" mapstructure:"high_confidence"`
	MinConfidence  float64 `json:"min_confidence" mapstructure:"min_confidence"`
	Margin         float64 `json:"margin" mapstructure:"margin"`
}

// DefaultThresholds returns the tuned production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighConfidence: DefaultHighConfidence,
		MinConfidence:  DefaultMinConfidence,
		Margin:         DefaultMargin,
	}
}

// Validate checks that the thresholds describe a usable policy.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.HighConfidence) || math.IsNaN(t.MinConfidence) || math.IsNaN(t.Margin) {
		return fmt.Errorf("diagnosis: thresholds must be numbers, got %+v", t)
	}
	if t.MinConfidence < 0 || t.HighConfidence > 1 || t.MinConfidence > t.HighConfidence {
		return fmt.Errorf("diagnosis: invalid confidence thresholds min=%v high=%v", t.MinConfidence, t.HighConfidence)
	}
	if t.Margin < 0 || t.Margin > 1 {
		return fmt.Errorf("diagnosis: invalid margin threshold %v", t.Margin)
	}
	return nil
}

// Decide applies the acceptance rules to the two best predictions. The first matching rule wins.
func (t Thresholds) Decide(top, second Prediction) Rule {
	if top.Score > t.HighConfidence {
		return RuleHighConfidence
	}
	if top.Score <= t.MinConfidence {
		return RuleNone
	}
	if ExtractCrop(top.Label) == ExtractCrop(second.Label) {
		return RuleConsistentCrop
	}
	if top.Score-second.Score > t.Margin {
		return RuleClearMargin
	}
	return RuleNone
}
