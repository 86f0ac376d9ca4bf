package bucket

import "math"

// UsedMegabytes converts an exact byte total to megabytes rounded to two
// decimal places. Rounding happens only here, never during aggregation.
func UsedMegabytes(totalBytes int64) float64 {
	return math.Round(float64(totalBytes)/(1024*1024)*100) / 100
}

// UsagePercent reports quota usage clamped to [0, 100]. The quota is not
// enforced anywhere; usage beyond it is capped for display. A non-positive
// quota reports 100 whenever anything is stored.
func UsagePercent(usedMB, quotaMB float64) float64 {
	if quotaMB <= 0 {
		if usedMB > 0 {
			return 100
		}
		return 0
	}

	pct := usedMB / quotaMB * 100
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	default:
		return pct
	}
}
