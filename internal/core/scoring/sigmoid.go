package scoring

import "math"

// ScaledSigmoid maps a non-negative raw score into [0, 1). Negative inputs
// are treated as 0.
func ScaledSigmoid(x, tuning float64) float64 {
	x = math.Max(x, 0)
	return 1/(1+math.Exp(-x/tuning))*2 - 1
}

// InverseScaledSigmoid recovers the raw score for y in [0, 1). Values at or
// below 0 return 0; values at or above 1 return +Inf.
func InverseScaledSigmoid(y, tuning float64) float64 {
	if y <= 0 {
		return 0
	}
	if y >= 1 {
		return math.Inf(1)
	}
	return -tuning * math.Log(2/(y+1)-1)
}

// CombineScores sums two normalized scores in raw space and renormalizes.
func CombineScores(a, b, tuning float64) float64 {
	return ScaledSigmoid(InverseScaledSigmoid(a, tuning)+InverseScaledSigmoid(b, tuning), tuning)
}
