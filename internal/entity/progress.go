package entity

import "math"

// Percent computes round(completed/total*100) as an integer percentage.
// Returns 0 when total is 0. Ties at exactly .5 round away from zero
// (math.Round); callers should not depend on the tie-break direction.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
