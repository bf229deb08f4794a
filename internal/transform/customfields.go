package transform

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

const customFieldPrefix = "Custom - "
const maxCustomFieldTitle = 50

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
var digitBoundary = regexp.MustCompile(`([A-Za-z])(\d)`)

// DiscoverCustomFields implements spec §4.6.12 step 1: deduplicate custom
// field definitions across all loaded entities by FieldID.
func DiscoverCustomFields(all ...[]model.CustomField) []model.CustomField {
	seen := map[string]model.CustomField{}
	var order []string
	for _, batch := range all {
		for _, f := range batch {
			if _, ok := seen[f.ID]; !ok {
				order = append(order, f.ID)
			}
			seen[f.ID] = f
		}
	}
	out := make([]model.CustomField, len(order))
	for i, id := range order {
		out[i] = seen[id]
	}
	return out
}

// CustomFieldColumnType implements spec §4.6.12 step 2.
func CustomFieldColumnType(f model.CustomField) (model.ColumnType, model.ColumnFormat) {
	switch f.FieldType {
	case model.FieldTypeStartDate, model.FieldTypeFinishDate:
		return model.ColumnDate, model.FormatNone
	case model.FieldTypeCost:
		return model.ColumnTextNumber, model.FormatCurrency
	case model.FieldTypeNumber, model.FieldTypeDuration:
		return model.ColumnTextNumber, model.FormatNone
	case model.FieldTypeFlag:
		return model.ColumnCheckbox, model.FormatNone
	case model.FieldTypeTextLookup:
		if f.IsMultiSelect {
			return model.ColumnMultiPicklist, model.FormatNone
		}
		return model.ColumnPicklist, model.FormatNone
	case model.FieldTypeFormula:
		return model.ColumnTextNumber, model.FormatNone
	default:
		return model.ColumnTextNumber, model.FormatNone
	}
}

// ResolveLookupValue implements spec §4.6.12 step 3: replace an entry-id
// with its display value from the field's lookup table. Unresolved IDs
// pass through unchanged and are logged.
func ResolveLookupValue(f model.CustomField, entryID string, log *logging.Logger) string {
	if display, ok := f.LookupEntries[entryID]; ok {
		return display
	}
	if log != nil {
		log.Warnf("custom field %s: unresolved lookup entry id %q, passing through unchanged", f.DisplayName, entryID)
	}
	return entryID
}

// ResolveLookupValues resolves every entry in a multi-select value.
func ResolveLookupValues(f model.CustomField, entryIDs []string, log *logging.Logger) []string {
	out := make([]string, len(entryIDs))
	for i, id := range entryIDs {
		out[i] = ResolveLookupValue(f, id, log)
	}
	return out
}

// CustomFieldColumnTitle implements spec §4.6.12 step 4: display name if
// present, else camel/digit-split internal name; "Custom - " prefix;
// sanitize; truncate to 50 chars total.
func CustomFieldColumnTitle(f model.CustomField) string {
	base := f.DisplayName
	if base == "" {
		base = expandInternalName(f.InternalName)
	}
	title := customFieldPrefix + SanitizeName(base)
	if len(title) > maxCustomFieldTitle {
		title = title[:maxCustomFieldTitle]
	}
	return title
}

func expandInternalName(internal string) string {
	s := camelBoundary.ReplaceAllString(internal, "$1 $2")
	s = digitBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

// EntityCustomFieldOmission implements spec §4.6.12 step 5: a field's
// column is omitted when every loaded entity's value for it is empty.
func EntityCustomFieldOmission(fieldID string, values [][]model.CustomFieldValue) bool {
	for _, entityValues := range values {
		for _, v := range entityValues {
			if v.FieldID != fieldID {
				continue
			}
			if v.Value != "" || len(v.MultiValues) > 0 {
				return false
			}
		}
	}
	return true
}

// NonEmptyCustomFields filters fields to those with at least one non-empty
// value across the given entities' custom field value sets.
func NonEmptyCustomFields(fields []model.CustomField, entityValues [][]model.CustomFieldValue) []model.CustomField {
	var out []model.CustomField
	for _, f := range fields {
		if !EntityCustomFieldOmission(f.ID, entityValues) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
