package transform

// DefaultPriority is used when a source priority is absent, per spec §4.6.3.
const DefaultPriority = 500

// PriorityLabel implements spec §4.6.3's piecewise integer-to-label
// mapping, shared by Task and Project priority fields. Values outside the
// documented 0-1000 range are handled permissively by falling through to
// the adjacent bound (see DESIGN.md's Open Question decision).
func PriorityLabel(priority *int) string {
	v := DefaultPriority
	if priority != nil {
		v = *priority
	}
	switch {
	case v >= 1000:
		return "Highest"
	case v >= 800:
		return "Very High"
	case v >= 600:
		return "Higher"
	case v >= 500:
		return "Medium"
	case v >= 400:
		return "Lower"
	case v >= 200:
		return "Very Low"
	default:
		return "Lowest"
	}
}

// PriorityLabels is the fixed ordered set of the seven priority labels,
// used to seed the PMO Standards Project/Task Priority reference sheets.
var PriorityLabels = []string{
	"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest",
}
