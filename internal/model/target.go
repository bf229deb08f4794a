package model

// ColumnType enumerates the Smartsheet column types the migration engine
// produces, per spec §3.
type ColumnType string

const (
	ColumnTextNumber    ColumnType = "TEXT_NUMBER"
	ColumnDate          ColumnType = "DATE"
	ColumnDateTime      ColumnType = "DATETIME"
	ColumnCheckbox      ColumnType = "CHECKBOX"
	ColumnContactList   ColumnType = "CONTACT_LIST"
	ColumnMultiContact  ColumnType = "MULTI_CONTACT_LIST"
	ColumnPicklist      ColumnType = "PICKLIST"
	ColumnMultiPicklist ColumnType = "MULTI_PICKLIST"
	ColumnPredecessor   ColumnType = "PREDECESSOR"
	ColumnDuration      ColumnType = "DURATION"
	ColumnAutoNumber    ColumnType = "AUTO_NUMBER"
	ColumnCreatedDate   ColumnType = "CREATED_DATE"
	ColumnModifiedDate  ColumnType = "MODIFIED_DATE"
	ColumnCreatedBy     ColumnType = "CREATED_BY"
	ColumnModifiedBy    ColumnType = "MODIFIED_BY"
)

// ColumnFormat is an optional display format hint (e.g. currency).
type ColumnFormat string

const (
	FormatNone     ColumnFormat = ""
	FormatCurrency ColumnFormat = "CURRENCY"
)

// SourceSheetRef anchors a PICKLIST/MULTI_PICKLIST column's option list at
// a PMO Standards reference sheet+column, per spec §4.5/§9.
type SourceSheetRef struct {
	SheetID  int64
	ColumnID int64
}

// ColumnSpec describes a column to create or reconcile via ResiliencyOps.
type ColumnSpec struct {
	Title         string
	Type          ColumnType
	Format        ColumnFormat
	Primary       bool
	Index         int // -1 means "let the target decide / append"
	Options       []string
	SourceSheet   *SourceSheetRef
	Hidden        bool
	ValidationLenient bool
}

// Column is a materialized Smartsheet column.
type Column struct {
	ID      int64
	Title   string
	Type    ColumnType
	Primary bool
	Index   int
	Options []string
	Source  *SourceSheetRef
	Hidden  bool
}

// Workspace is a materialized Smartsheet workspace.
type Workspace struct {
	ID        int64
	Name      string
	Permalink string
}

// ResourceKind distinguishes workspace children returned by list/get_children.
type ResourceKind string

const (
	KindSheet ResourceKind = "sheet"
	KindOther ResourceKind = "other"
)

// WorkspaceChild is one entry returned by Workspaces.get_children.
type WorkspaceChild struct {
	ID   int64
	Name string
	Kind ResourceKind
}

// Sheet is a materialized Smartsheet sheet with its columns and rows.
type Sheet struct {
	ID          int64
	Name        string
	WorkspaceID int64
	Columns     []Column
	Rows        []Row
}

// ColumnByTitle returns the column with the given title, or nil.
func (s *Sheet) ColumnByTitle(title string) *Column {
	for i := range s.Columns {
		if s.Columns[i].Title == title {
			return &s.Columns[i]
		}
	}
	return nil
}

// Contact is a Smartsheet contact object (spec §4.6.8).
type Contact struct {
	Name  string
	Email string
}

// Empty reports whether the contact carries neither name nor email, the
// drop condition from spec §4.6.8.
func (c Contact) Empty() bool {
	return c.Name == "" && c.Email == ""
}

// CellObjectType tags the shape carried by Cell.ObjectValue.
type CellObjectType string

const (
	ObjectTypeMultiContact  CellObjectType = "MULTI_CONTACT"
	ObjectTypeMultiPicklist CellObjectType = "MULTI_PICKLIST"
)

// ObjectValue is the structured payload for contact/multi-value cells.
type ObjectValue struct {
	ObjectType CellObjectType
	Contacts   []Contact // populated when ObjectType == MULTI_CONTACT
	Values     []string  // populated when ObjectType == MULTI_PICKLIST
}

// Cell is one row/column intersection. Exactly one of Value/Object is set;
// a cell with neither is considered empty and omitted from writes.
type Cell struct {
	ColumnID string // column title at spec time, resolved to ID at write time
	Value    interface{}
	Object   *ObjectValue
}

// Row is a row to create or a materialized row returned by the target.
type Row struct {
	ID       int64
	ParentID int64 // 0 when root
	Index    int
	Cells    []Cell

	// SourceGUID is the canonical source key carried in the row's hidden
	// dual-ID cell (spec §3 Dual-ID invariant); used to build the
	// source-GUID -> target-row-ID map for hierarchy/predecessor resolution.
	SourceGUID string
}
