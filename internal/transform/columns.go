package transform

import "github.com/pinggolf/pmo-smartsheet-migrator/internal/model"

// SystemColumns implements spec §4.6.13's dual-date pattern: every sheet
// representing source entities carries both the plain-DATE source
// timestamps and the target's native system columns.
func SystemColumns() []model.ColumnSpec {
	return []model.ColumnSpec{
		{Title: "Project Online Created Date", Type: model.ColumnDate, Index: -1},
		{Title: "Project Online Modified Date", Type: model.ColumnDate, Index: -1},
		{Title: "Created Date", Type: model.ColumnCreatedDate, Index: -1},
		{Title: "Modified Date", Type: model.ColumnModifiedDate, Index: -1},
		{Title: "Created By", Type: model.ColumnCreatedBy, Index: -1},
		{Title: "Modified By", Type: model.ColumnModifiedBy, Index: -1},
	}
}

// TaskBaseColumns is the static column skeleton for a project's Tasks
// sheet, before assignment/custom-field columns are appended.
func TaskBaseColumns(prefix string) []model.ColumnSpec {
	cols := []model.ColumnSpec{
		{Title: prefix + " ID", Type: model.ColumnAutoNumber, Primary: false, Index: 0},
		{Title: "Task Name", Type: model.ColumnTextNumber, Primary: true, Index: -1},
		{Title: "Source GUID", Type: model.ColumnTextNumber, Hidden: true, Index: -1},
		{Title: "Start Date", Type: model.ColumnDate, Index: -1},
		{Title: "Finish Date", Type: model.ColumnDate, Index: -1},
		{Title: "Duration", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Work", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Actual Work", Type: model.ColumnTextNumber, Index: -1},
		{Title: "% Complete", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Status", Type: model.ColumnPicklist, Index: -1, ValidationLenient: true},
		{Title: "Priority", Type: model.ColumnPicklist, Index: -1, ValidationLenient: true},
		{Title: "Milestone", Type: model.ColumnCheckbox, Index: -1},
		{Title: "Notes", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Constraint Type", Type: model.ColumnPicklist, Index: -1, ValidationLenient: true},
		{Title: "Constraint Date", Type: model.ColumnDate, Index: -1},
		{Title: "Deadline", Type: model.ColumnDate, Index: -1},
		{Title: "Predecessors", Type: model.ColumnPredecessor, Index: -1},
	}
	return append(cols, SystemColumns()...)
}

// ResourceBaseColumns is the static column skeleton for a project's
// Resources sheet.
func ResourceBaseColumns(prefix string) []model.ColumnSpec {
	cols := []model.ColumnSpec{
		{Title: prefix + " ID", Type: model.ColumnAutoNumber, Index: 0},
		{Title: "Resource Name", Type: model.ColumnTextNumber, Primary: true, Index: -1},
		{Title: "Source GUID", Type: model.ColumnTextNumber, Hidden: true, Index: -1},
		{Title: "Email", Type: model.ColumnContactList, Index: -1},
		{Title: "Type", Type: model.ColumnPicklist, Index: -1, ValidationLenient: true},
		{Title: "Max Units", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Standard Rate", Type: model.ColumnTextNumber, Format: model.FormatCurrency, Index: -1},
		{Title: "Overtime Rate", Type: model.ColumnTextNumber, Format: model.FormatCurrency, Index: -1},
		{Title: "Cost Per Use", Type: model.ColumnTextNumber, Format: model.FormatCurrency, Index: -1},
		{Title: "Department", Type: model.ColumnPicklist, Index: -1, ValidationLenient: true},
		{Title: "Code", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Active", Type: model.ColumnCheckbox, Index: -1},
		{Title: "Generic", Type: model.ColumnCheckbox, Index: -1},
	}
	return append(cols, SystemColumns()...)
}

// SummaryColumns is the static column skeleton for a project's key-value
// Summary sheet.
func SummaryColumns() []model.ColumnSpec {
	return []model.ColumnSpec{
		{Title: "Field", Type: model.ColumnTextNumber, Primary: true, Index: -1},
		{Title: "Value", Type: model.ColumnTextNumber, Index: -1},
	}
}

// AssignmentColumnFor returns the column spec for the given resource type's
// assignment column, per spec §4.6.11, with options sourced from the
// matching Resources sheet column when available.
func AssignmentColumnFor(kind model.ResourceType, source *model.SourceSheetRef) model.ColumnSpec {
	switch kind {
	case model.ResourceWork:
		return model.ColumnSpec{Title: TeamMembersColumn, Type: model.ColumnMultiContact, Index: -1, SourceSheet: source}
	case model.ResourceMaterial:
		return model.ColumnSpec{Title: EquipmentColumn, Type: model.ColumnMultiPicklist, Index: -1, SourceSheet: source}
	default:
		return model.ColumnSpec{Title: CostCentersColumn, Type: model.ColumnMultiPicklist, Index: -1, SourceSheet: source}
	}
}

// CustomFieldColumnSpec builds the column spec for a discovered custom
// field, per spec §4.6.12.
func CustomFieldColumnSpec(f model.CustomField) model.ColumnSpec {
	colType, format := CustomFieldColumnType(f)
	return model.ColumnSpec{
		Title:  CustomFieldColumnTitle(f),
		Type:   colType,
		Format: format,
		Index:  -1,
	}
}
