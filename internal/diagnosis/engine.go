// Package diagnosis turns classifier scores into a leaf diagnosis or a rejection.
//
// The engine is pure: it holds only immutable thresholds and a remedy source and never
// touches the classifier, the network or the request state.
package diagnosis

const (
	RejectedTitle   = "Not a Leaf / Unclear"
	RejectedMessage = "I cannot identify this image. Please upload a clear photo of a crop leaf."
)

// FallbackRemedy is used for accepted labels that have no catalog entry.
var FallbackRemedy = Remedy{
	Status:     "Unknown Status",
	Cure:       "Consult a local agri-expert.",
	Precaution: "Isolate this plant.",
}

// Engine ranks scores, applies the acceptance policy and builds the result.
type Engine struct {
	thresholds Thresholds
	remedies   RemedySource
}

// NewEngine builds an engine. A nil remedy source makes every accepted label a catalog miss.
func NewEngine(thresholds Thresholds, remedies RemedySource) *Engine {
	return &Engine{thresholds: thresholds, remedies: remedies}
}

// Thresholds returns the policy the engine was built with.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Classify decides whether the scores describe a crop leaf and, if so, which condition.
func (e *Engine) Classify(scores []float64, labels LabelList) (Result, error) {
	ranked, err := Rank(scores, labels)
	if err != nil {
		return Result{}, err
	}
	top, second := ranked[0], ranked[1]

	rule := e.thresholds.Decide(top, second)
	if rule == RuleNone {
		return Result{
			Verdict:  VerdictRejected,
			Rule:     rule,
			Top:      top,
			Second:   second,
			Rejected: &Rejected{Title: RejectedTitle, Message: RejectedMessage},
		}, nil
	}

	remedy := e.lookup(top.Label)
	return Result{
		Verdict: VerdictAccepted,
		Rule:    rule,
		Top:     top,
		Second:  second,
		Accepted: &Accepted{
			CropLabel:  top.Label,
			CropName:   DisplayName(top.Label),
			Crop:       ExtractCrop(top.Label),
			Status:     remedy.Status,
			Cure:       remedy.Cure,
			Precaution: remedy.Precaution,
		},
	}, nil
}

func (e *Engine) lookup(label string) Remedy {
	if e.remedies == nil {
		return FallbackRemedy
	}
	remedy, ok := e.remedies.Lookup(label)
	if !ok {
		return FallbackRemedy
	}
	if remedy.Status == "" {
		remedy.Status = "Unknown"
	}
	return remedy
}

// Classify runs the default-threshold engine against the given catalog.
func Classify(scores []float64, labels LabelList, remedies RemedySource) (Result, error) {
	return NewEngine(DefaultThresholds(), remedies).Classify(scores, labels)
}
