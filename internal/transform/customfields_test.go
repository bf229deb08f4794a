package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

func TestDiscoverCustomFieldsDedupesByID(t *testing.T) {
	a := []model.CustomField{{ID: "f1", DisplayName: "Region"}}
	b := []model.CustomField{{ID: "f1", DisplayName: "Region"}, {ID: "f2", DisplayName: "Cost Code"}}

	fields := DiscoverCustomFields(a, b)
	assert.Len(t, fields, 2)
}

func TestCustomFieldColumnTypeMapping(t *testing.T) {
	colType, format := CustomFieldColumnType(model.CustomField{FieldType: model.FieldTypeCost})
	assert.Equal(t, model.ColumnTextNumber, colType)
	assert.Equal(t, model.FormatCurrency, format)

	colType, _ = CustomFieldColumnType(model.CustomField{FieldType: model.FieldTypeFlag})
	assert.Equal(t, model.ColumnCheckbox, colType)

	colType, _ = CustomFieldColumnType(model.CustomField{FieldType: model.FieldTypeTextLookup, IsMultiSelect: true})
	assert.Equal(t, model.ColumnMultiPicklist, colType)

	colType, _ = CustomFieldColumnType(model.CustomField{FieldType: model.FieldTypeTextLookup, IsMultiSelect: false})
	assert.Equal(t, model.ColumnPicklist, colType)

	colType, _ = CustomFieldColumnType(model.CustomField{FieldType: model.FieldTypeStartDate})
	assert.Equal(t, model.ColumnDate, colType)
}

func TestResolveLookupValueFallsThroughWhenUnresolved(t *testing.T) {
	f := model.CustomField{DisplayName: "Region", LookupEntries: map[string]string{"1": "West"}}
	assert.Equal(t, "West", ResolveLookupValue(f, "1", nil))
	assert.Equal(t, "999", ResolveLookupValue(f, "999", nil))
}

func TestCustomFieldColumnTitlePrefersDisplayName(t *testing.T) {
	f := model.CustomField{DisplayName: "Region Code"}
	assert.Equal(t, "Custom - Region Code", CustomFieldColumnTitle(f))
}

func TestCustomFieldColumnTitleExpandsInternalName(t *testing.T) {
	f := model.CustomField{InternalName: "Custom_Field5Name"}
	title := CustomFieldColumnTitle(f)
	assert.Contains(t, title, "Custom - ")
	assert.Contains(t, title, "5")
}

func TestCustomFieldColumnTitleTruncatesTo50Chars(t *testing.T) {
	f := model.CustomField{DisplayName: "This Is A Very Long Custom Field Display Name That Exceeds The Limit"}
	title := CustomFieldColumnTitle(f)
	assert.LessOrEqual(t, len(title), 50)
}

func TestEntityCustomFieldOmissionWhenAllEmpty(t *testing.T) {
	values := [][]model.CustomFieldValue{
		{{FieldID: "f1", Value: ""}},
		{{FieldID: "f1", Value: ""}},
	}
	assert.True(t, EntityCustomFieldOmission("f1", values))
}

func TestEntityCustomFieldOmissionWhenAnyNonEmpty(t *testing.T) {
	values := [][]model.CustomFieldValue{
		{{FieldID: "f1", Value: ""}},
		{{FieldID: "f1", Value: "West"}},
	}
	assert.False(t, EntityCustomFieldOmission("f1", values))
}
