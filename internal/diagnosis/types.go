package diagnosis

import (
	"errors"
	"strings"
)

var (
	// ErrInsufficientClasses is returned when fewer than two scored labels are supplied.
	ErrInsufficientClasses = errors.New("diagnosis: at least two scored labels are required")
	// ErrLengthMismatch is returned when the score vector and label list are not index aligned.
	ErrLengthMismatch = errors.New("diagnosis: score vector and label list differ in length")
)

// LabelList is the ordered label dictionary, index aligned with the classifier output.
type LabelList []string

// Prediction pairs a label with its score and its position in the classifier output.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// Remedy is the treatment record for a diagnosed label.
type Remedy struct {
	Status     string `json:"status" yaml:"status"`
	Cure       string `json:"cure" yaml:"cure"`
	Precaution string `json:"precaution" yaml:"precaution"`
}

// RemedySource resolves remedy records by exact label. A miss is a normal outcome.
type RemedySource interface {
	Lookup(label string) (Remedy, bool)
}

// Rule identifies which acceptance rule decided a classification.
type Rule string

const (
	RuleHighConfidence Rule = "high_confidence"
	RuleConsistentCrop Rule = "consistent_crop"
	RuleClearMargin    Rule = "clear_margin"
	RuleNone           Rule = "none"
)

// Verdict is the outcome kind of a classification.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Accepted describes a leaf the engine recognised.
type Accepted struct {
	CropLabel  string
	CropName   string
	Crop       string
	Status     string
	Cure       string
	Precaution string
}

// IsHealthy reports whether the remedy status marks the plant as healthy.
func (a Accepted) IsHealthy() bool {
	return strings.Contains(a.Status, "Healthy")
}

// Rejected describes an image the engine refused to diagnose.
type Rejected struct {
	Title   string
	Message string
}

// Result is the tagged union returned by Classify: exactly one of Accepted or Rejected is set.
type Result struct {
	Verdict  Verdict
	Rule     Rule
	Top      Prediction
	Second   Prediction
	Accepted *Accepted
	Rejected *Rejected
}

// IsAccepted reports whether the result carries a diagnosis.
func (r Result) IsAccepted() bool {
	return r.Verdict == VerdictAccepted && r.Accepted != nil
}
