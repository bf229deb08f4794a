// Package model defines the source and target entity shapes shared across
// the extraction, transformation, and loading stages of the migration
// engine.
package model

import "time"

// Project is a Project Online project, read via SourceClient.list_projects.
type Project struct {
	ID              string
	Name            string
	Description     string
	Owner           string
	OwnerEmail      string
	Start           *time.Time
	Finish          *time.Time
	Status          string
	Type            string
	Priority        *int
	PercentComplete *float64
	CreatedAt       time.Time
	ModifiedAt      time.Time
	CustomFields    []CustomFieldValue
}

// ConstraintType enumerates the eight Project Online task constraint codes.
type ConstraintType string

const (
	ConstraintASAP ConstraintType = "ASAP"
	ConstraintALAP ConstraintType = "ALAP"
	ConstraintSNET ConstraintType = "SNET"
	ConstraintSNLT ConstraintType = "SNLT"
	ConstraintFNET ConstraintType = "FNET"
	ConstraintFNLT ConstraintType = "FNLT"
	ConstraintMSO  ConstraintType = "MSO"
	ConstraintMFO  ConstraintType = "MFO"
)

// PredecessorType enumerates finish-to-start style relation kinds.
type PredecessorType string

const (
	PredecessorFS PredecessorType = "FS"
	PredecessorSS PredecessorType = "SS"
	PredecessorFF PredecessorType = "FF"
	PredecessorSF PredecessorType = "SF"
)

// Predecessor is one parsed predecessor relation on a Task.
type Predecessor struct {
	PredecessorID string
	Type          PredecessorType
	LagDays       int // 0 when absent
}

// Task is a Project Online task, read via SourceClient.list_tasks.
type Task struct {
	ID                string
	ProjectID         string
	ParentID          string // empty when root
	Name              string
	OutlineLevel      int
	TaskIndex         int
	Start             *time.Time
	Finish            *time.Time
	Duration          string // ISO-8601 duration, e.g. "PT40H"
	Work              string // ISO-8601 duration
	ActualWork        string // ISO-8601 duration
	PercentComplete   *float64
	Priority          *int
	IsMilestone       bool
	Notes             string
	ConstraintType    ConstraintType
	ConstraintDate    *time.Time
	Deadline          *time.Time
	Predecessors      []Predecessor
	CreatedAt         time.Time
	ModifiedAt        time.Time
	CustomFields      []CustomFieldValue
}

// ResourceType enumerates the three Project Online resource kinds. The
// distinction between Work and {Material, Cost} drives the assignment
// column polymorphism rule (spec §4.6.11).
type ResourceType string

const (
	ResourceWork     ResourceType = "Work"
	ResourceMaterial ResourceType = "Material"
	ResourceCost     ResourceType = "Cost"
)

// Resource is a Project Online resource, read via SourceClient.list_resources.
type Resource struct {
	ID            string
	Name          string
	Email         string
	Type          ResourceType
	MaxUnits      *float64
	StandardRate  *float64
	OvertimeRate  *float64
	CostPerUse    *float64
	Department    string
	Code          string
	IsActive      bool
	IsGeneric     bool
	CreatedAt     time.Time
	ModifiedAt    time.Time
	CustomFields  []CustomFieldValue
}

// Assignment links a Task to a Resource within a Project.
type Assignment struct {
	ID                  string
	TaskID              string
	ResourceID          string
	ProjectID           string
	Work                string
	ActualWork          string
	Units               *float64
	Cost                *float64
	Start               *time.Time
	Finish              *time.Time
	PercentWorkComplete *float64
	Notes               string
}

// FieldType enumerates the Project Online custom-field type codes relevant
// to column-type mapping (spec §4.6.12).
type FieldType int

const (
	FieldTypeText FieldType = iota
	FieldTypeStartDate
	FieldTypeFinishDate
	FieldTypeNumber
	FieldTypeCost
	FieldTypeDuration
	FieldTypeFlag
	FieldTypeTextLookup
	FieldTypeFormula
)

// CustomField describes a discovered custom-field definition.
type CustomField struct {
	ID            string // internal name, e.g. "Custom_<guid>"
	InternalName  string
	DisplayName   string
	FieldType     FieldType
	IsMultiSelect bool
	IsMultiline   bool
	Formula       string
	LookupEntries map[string]string // entryId -> display value
}

// CustomFieldValue is one entity's value for a given custom field. Value
// holds a scalar; MultiValues holds the {results:[entryId,...]} shape for
// multi-select lookups. Exactly one of the two is populated.
type CustomFieldValue struct {
	FieldID     string
	Value       string
	MultiValues []string
}

// EntityKind names the three source entity kinds custom fields attach to.
type EntityKind string

const (
	EntityProject  EntityKind = "Project"
	EntityTask     EntityKind = "Task"
	EntityResource EntityKind = "Resource"
)
