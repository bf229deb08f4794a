package transform

import "time"

// DateOnlyUTC implements spec §4.6.5: parse a source timestamp as UTC and
// format as "YYYY-MM-DD" UTC. A nil input yields an empty string.
func DateOnlyUTC(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// TaskStatus implements spec §4.6.6: derive a task's status label from its
// percent-complete value. A nil percentComplete is treated as 0 (Not
// Started).
func TaskStatus(percentComplete *float64) string {
	v := 0.0
	if percentComplete != nil {
		v = *percentComplete
	}
	switch {
	case v <= 0:
		return "Not Started"
	case v >= 100:
		return "Complete"
	default:
		return "In Progress"
	}
}
