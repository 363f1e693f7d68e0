package ops

import "math"

func nan() float64 { return math.NaN() }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
