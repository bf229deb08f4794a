package transform

import "fmt"

// MaxUnitsPercentText implements spec §4.6.7: a decimal max-units value
// (0..∞, where 1.0 == 100%) maps to a rounded percentage text cell.
func MaxUnitsPercentText(maxUnits *float64) string {
	if maxUnits == nil {
		return ""
	}
	return fmt.Sprintf("%d%%", roundToInt(*maxUnits*100))
}

func roundToInt(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}
