// Package analytics computes the dashboard views from a snapshot of records.
// Every function here is pure: it reads the records and allocates its result.
package analytics

import "math"

// Round rounds half-up toward +Inf, the way the dashboard always has.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Round1 rounds half-up to one decimal place.
func Round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// Percent returns round(n / max(total, 1) * 100) clamped to [0, 100].
func Percent(n, total int) int {
	if total < 1 {
		total = 1
	}
	p := Round(float64(n) / float64(total) * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Mean1 returns the mean of values rounded to one decimal, or 0 when empty.
func Mean1(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return Round1(float64(sum) / float64(len(values)))
}
