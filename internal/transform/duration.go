package transform

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
)

// isoDurationPattern matches the ISO-8601 duration subset this engine
// supports: optional day component before "T", optional hour/minute
// components after. Year, month, and week designators are rejected per the
// Open Question decision recorded in DESIGN.md.
var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?)?$`)

var isoRejectedDesignator = regexp.MustCompile(`\d+(?:\.\d+)?[YW]|^P\d+(?:\.\d+)?M`)

// ParseISODurationHours parses an ISO-8601 duration string (e.g. "PT40H",
// "P1D", "PT90M", "P1DT4H") into total hours. Empty input yields 0 hours.
func ParseISODurationHours(iso string) (float64, error) {
	if iso == "" {
		return 0, nil
	}
	if isoRejectedDesignator.MatchString(iso) {
		return 0, migerr.Data(fmt.Sprintf("unsupported ISO-8601 duration designator in %q (only D/H/M are supported)", iso), nil)
	}

	m := isoDurationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0, migerr.Data(fmt.Sprintf("unrecognized ISO-8601 duration %q", iso), nil)
	}

	var hours float64
	if m[1] != "" {
		days, _ := strconv.ParseFloat(m[1], 64)
		hours += days * 24
	}
	if m[2] != "" {
		h, _ := strconv.ParseFloat(m[2], 64)
		hours += h
	}
	if m[3] != "" {
		min, _ := strconv.ParseFloat(m[3], 64)
		hours += min / 60
	}
	return hours, nil
}

// DurationToDecimalDays implements spec §4.6.4's project-sheet Duration
// system column mapping: hours/8, rounded to 2 decimals.
func DurationToDecimalDays(iso string) (float64, error) {
	hours, err := ParseISODurationHours(iso)
	if err != nil {
		return 0, err
	}
	return roundTo(hours/8, 2), nil
}

// DurationToHoursText implements spec §4.6.4's non-system Work/ActualWork
// mapping: a text string "<hours>h".
func DurationToHoursText(iso string) (string, error) {
	hours, err := ParseISODurationHours(iso)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sh", formatTrimmed(hours)), nil
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+sign(v)*0.5)) / mult
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// formatTrimmed renders a float without trailing zeros, e.g. 40 -> "40",
// 2.5 -> "2.5".
func formatTrimmed(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
