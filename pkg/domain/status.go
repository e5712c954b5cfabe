package domain

// Status is the QC lifecycle state of a Variant.
type Status string

const (
	StatusDraft Status = "draft" // Not graded yet
	StatusPass  Status = "pass"  // Score at or above the run threshold
	StatusFail  Status = "fail"  // Score below the run threshold
	StatusBest  Status = "best"  // Curated pick for the run, regardless of score
)

// Statuses lists every valid Status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPass, StatusFail, StatusBest}
}

// TextPolicy controls whether rendered images may contain lettering.
type TextPolicy string

const (
	TextPolicyNone    TextPolicy = "no_text"
	TextPolicyMinimal TextPolicy = "minimal_text"
	TextPolicyAllow   TextPolicy = "allow_text"
)

// TextPolicies lists every valid TextPolicy.
func TextPolicies() []TextPolicy {
	return []TextPolicy{TextPolicyNone, TextPolicyMinimal, TextPolicyAllow}
}

// Directive returns the sentence rendered into prompts for this policy.
func (p TextPolicy) Directive() string {
	switch p {
	case TextPolicyMinimal:
		return "minimal text only, short labels allowed when the scene requires them"
	case TextPolicyAllow:
		return "text allowed where it serves the scene"
	default:
		return "no visible text, letters, captions, logos or watermarks"
	}
}
