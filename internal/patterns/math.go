package patterns

import "math"

func logBase(v float64) float64 {
	return math.Log(v)
}
