package workflow

const (
	// StrongMatchThreshold is the lowest total treated as a strong match.
	StrongMatchThreshold = 70

	highBandThreshold   = 80
	mediumBandThreshold = 50
)

type Verdict string

const (
	VerdictStrong           Verdict = "strong"
	VerdictNeedsImprovement Verdict = "needs_improvement"
)

func VerdictFor(score int) Verdict {
	if score >= StrongMatchThreshold {
		return VerdictStrong
	}
	return VerdictNeedsImprovement
}

func (v Verdict) Message() string {
	if v == VerdictStrong {
		return "Great news! Your CV is a strong match for this job because:"
	}
	return "Your CV needs improvement to better match the job description:"
}

// Glyph is the marker printed in front of every reason line.
func (v Verdict) Glyph() string {
	if v == VerdictStrong {
		return "✔"
	}
	return "❌"
}

// Band classifies a breakdown value for coloring.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

func BandFor(value int) Band {
	switch {
	case value >= highBandThreshold:
		return BandHigh
	case value >= mediumBandThreshold:
		return BandMedium
	default:
		return BandLow
	}
}
