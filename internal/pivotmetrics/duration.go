package pivotmetrics

import (
	"fmt"
	"math"
)

// roundHalfUp rounds .5 toward +Inf, the convention every minute and
// second figure on the order screens uses.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// FormatDuration renders a (possibly fractional) minute count as
// "{h}h {m}min {s}s", "{m}min {s}s" or "{s}s". Negative inputs keep a
// leading minus sign on the absolute value.
func FormatDuration(minutes float64) string {
	total := int64(roundHalfUp(minutes * 60))
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%s%dh %dmin %ds", sign, h, m, s)
	case m > 0:
		return fmt.Sprintf("%s%dmin %ds", sign, m, s)
	default:
		return fmt.Sprintf("%s%ds", sign, s)
	}
}

// FormatHoursMinutes is the coarser label of the monitoring table.
func FormatHoursMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}
