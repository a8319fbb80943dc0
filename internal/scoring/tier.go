package scoring

import "math"

// TierForScore maps a score to exactly one tier.
func TierForScore(score float64) RiskTier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	case score >= LowThreshold:
		return TierLow
	default:
		return TierMinimal
	}
}

// clamp bounds v to [0, 1] and rounds to four decimals so equal inputs compare equal
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	return math.Round(v*10000) / 10000
}
