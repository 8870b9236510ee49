package analysis

import "math"

// Describe returns the mean and population standard deviation of data.
func Describe(data []float64) (mean, spread float64) {
	if len(data) == 0 {
		return 0, 0
	}
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for _, v := range data {
		d := v - mean
		spread += d * d
	}
	return mean, math.Sqrt(spread / float64(len(data)))
}
