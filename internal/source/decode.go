package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

// odataTime parses the `/Date(ms)/` or RFC3339 shapes Project Online's
// OData endpoint emits depending on verbose/minimal metadata mode.
func odataTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "/Date(") && strings.HasSuffix(s, ")/") {
		ms, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(s, "/Date("), ")/"), 10, 64)
		if err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("unrecognized OData timestamp %q", s)
}

type rawProject struct {
	ID              string  `json:"ProjectId"`
	Name            string  `json:"ProjectName"`
	Description     string  `json:"ProjectDescription"`
	Owner           string  `json:"ProjectOwner"`
	OwnerEmail      string  `json:"ProjectOwnerEmailAddress"`
	Start           string  `json:"ProjectStartDate"`
	Finish          string  `json:"ProjectFinishDate"`
	Status          string  `json:"ProjectStatusName"`
	Type            string  `json:"ProjectType"`
	Priority        *int    `json:"ProjectPriority"`
	PercentComplete *float64 `json:"ProjectPercentCompleted"`
	CreatedDate     string  `json:"ProjectCreatedDate"`
	ModifiedDate    string  `json:"ProjectLastPublishedDate"`
}

func decodeProject(raw json.RawMessage) (*model.Project, error) {
	var rp rawProject
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, migerr.Data("failed to decode project record", err)
	}
	start, err := odataTime(rp.Start)
	if err != nil {
		return nil, migerr.Data(fmt.Sprintf("project %s: %v", rp.ID, err), err)
	}
	finish, err := odataTime(rp.Finish)
	if err != nil {
		return nil, migerr.Data(fmt.Sprintf("project %s: %v", rp.ID, err), err)
	}
	created, _ := odataTime(rp.CreatedDate)
	modified, _ := odataTime(rp.ModifiedDate)

	p := &model.Project{
		ID:              rp.ID,
		Name:            rp.Name,
		Description:     rp.Description,
		Owner:           rp.Owner,
		OwnerEmail:      rp.OwnerEmail,
		Start:           start,
		Finish:          finish,
		Status:          rp.Status,
		Type:            rp.Type,
		Priority:        rp.Priority,
		PercentComplete: rp.PercentComplete,
	}
	if created != nil {
		p.CreatedAt = *created
	}
	if modified != nil {
		p.ModifiedAt = *modified
	}
	return p, nil
}

type rawTask struct {
	ID              string  `json:"TaskId"`
	ParentID        string  `json:"ParentTaskId"`
	Name            string  `json:"TaskName"`
	OutlineLevel    int     `json:"TaskOutlineLevel"`
	TaskIndex       int     `json:"TaskOutlineNumber"`
	Start           string  `json:"TaskStartDate"`
	Finish          string  `json:"TaskFinishDate"`
	Duration        string  `json:"TaskDurationText"`
	Work            string  `json:"TaskWork"`
	ActualWork      string  `json:"TaskActualWork"`
	PercentComplete *float64 `json:"TaskPercentCompleted"`
	Priority        *int    `json:"TaskPriority"`
	IsMilestone     bool    `json:"TaskIsMilestone"`
	Notes           string  `json:"TaskNotes"`
	ConstraintType  string  `json:"TaskConstraintType"`
	ConstraintDate  string  `json:"TaskConstraintDate"`
	Deadline        string  `json:"TaskDeadline"`
	Predecessors    string  `json:"TaskPredecessors"`
	CreatedDate     string  `json:"TaskCreatedDate"`
	ModifiedDate    string  `json:"TaskModifiedDate"`
}

func decodeTask(raw json.RawMessage, projectID string) (*model.Task, error) {
	var rt rawTask
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, migerr.Data("failed to decode task record", err)
	}
	start, err := odataTime(rt.Start)
	if err != nil {
		return nil, migerr.Data(fmt.Sprintf("task %s: %v", rt.ID, err), err)
	}
	finish, err := odataTime(rt.Finish)
	if err != nil {
		return nil, migerr.Data(fmt.Sprintf("task %s: %v", rt.ID, err), err)
	}
	constraintDate, _ := odataTime(rt.ConstraintDate)
	deadline, _ := odataTime(rt.Deadline)
	created, _ := odataTime(rt.CreatedDate)
	modified, _ := odataTime(rt.ModifiedDate)

	preds, err := parsePredecessors(rt.Predecessors)
	if err != nil {
		return nil, migerr.Data(fmt.Sprintf("task %s: %v", rt.ID, err), err)
	}

	t := &model.Task{
		ID:              rt.ID,
		ProjectID:       projectID,
		ParentID:        rt.ParentID,
		Name:            rt.Name,
		OutlineLevel:    rt.OutlineLevel,
		TaskIndex:       rt.TaskIndex,
		Start:           start,
		Finish:          finish,
		Duration:        rt.Duration,
		Work:            rt.Work,
		ActualWork:      rt.ActualWork,
		PercentComplete: rt.PercentComplete,
		Priority:        rt.Priority,
		IsMilestone:     rt.IsMilestone,
		Notes:           rt.Notes,
		ConstraintType:  model.ConstraintType(rt.ConstraintType),
		ConstraintDate:  constraintDate,
		Deadline:        deadline,
		Predecessors:    preds,
	}
	if created != nil {
		t.CreatedAt = *created
	}
	if modified != nil {
		t.ModifiedAt = *modified
	}
	return t, nil
}

type rawResource struct {
	ID           string  `json:"ResourceId"`
	Name         string  `json:"ResourceName"`
	Email        string  `json:"ResourceEmailAddress"`
	Type         string  `json:"ResourceType"`
	MaxUnits     *float64 `json:"ResourceMaxUnits"`
	StandardRate *float64 `json:"ResourceStandardRate"`
	OvertimeRate *float64 `json:"ResourceOvertimeRate"`
	CostPerUse   *float64 `json:"ResourceCostPerUse"`
	Department   string  `json:"ResourceDepartment"`
	Code         string  `json:"ResourceCode"`
	IsActive     bool    `json:"ResourceIsActive"`
	IsGeneric    bool    `json:"ResourceIsGeneric"`
	CreatedDate  string  `json:"ResourceCreatedDate"`
	ModifiedDate string  `json:"ResourceModifiedDate"`
}

func decodeResource(raw json.RawMessage) (*model.Resource, error) {
	var rr rawResource
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, migerr.Data("failed to decode resource record", err)
	}
	created, _ := odataTime(rr.CreatedDate)
	modified, _ := odataTime(rr.ModifiedDate)

	r := &model.Resource{
		ID:           rr.ID,
		Name:         rr.Name,
		Email:        rr.Email,
		Type:         model.ResourceType(rr.Type),
		MaxUnits:     rr.MaxUnits,
		StandardRate: rr.StandardRate,
		OvertimeRate: rr.OvertimeRate,
		CostPerUse:   rr.CostPerUse,
		Department:   rr.Department,
		Code:         rr.Code,
		IsActive:     rr.IsActive,
		IsGeneric:    rr.IsGeneric,
	}
	if created != nil {
		r.CreatedAt = *created
	}
	if modified != nil {
		r.ModifiedAt = *modified
	}
	return r, nil
}

type rawAssignment struct {
	ID                  string  `json:"AssignmentId"`
	TaskID              string  `json:"TaskId"`
	ResourceID          string  `json:"ResourceId"`
	Work                string  `json:"AssignmentWork"`
	ActualWork          string  `json:"AssignmentActualWork"`
	Units               *float64 `json:"AssignmentUnits"`
	Cost                *float64 `json:"AssignmentCost"`
	Start               string  `json:"AssignmentStartDate"`
	Finish              string  `json:"AssignmentFinishDate"`
	PercentWorkComplete *float64 `json:"AssignmentPercentWorkCompleted"`
	Notes               string  `json:"AssignmentNotes"`
}

func decodeAssignment(raw json.RawMessage, projectID string) (*model.Assignment, error) {
	var ra rawAssignment
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, migerr.Data("failed to decode assignment record", err)
	}
	start, _ := odataTime(ra.Start)
	finish, _ := odataTime(ra.Finish)

	return &model.Assignment{
		ID:                  ra.ID,
		TaskID:              ra.TaskID,
		ResourceID:          ra.ResourceID,
		ProjectID:           projectID,
		Work:                ra.Work,
		ActualWork:          ra.ActualWork,
		Units:               ra.Units,
		Cost:                ra.Cost,
		Start:               start,
		Finish:              finish,
		PercentWorkComplete: ra.PercentWorkComplete,
		Notes:               ra.Notes,
	}, nil
}

type rawCustomField struct {
	InternalName  string            `json:"InternalName"`
	DisplayName   string            `json:"FieldName"`
	FieldType     int               `json:"FieldType"`
	IsMultiSelect bool              `json:"IsMultiValue"`
	IsMultiline   bool              `json:"IsMultiline"`
	Formula       string            `json:"Formula"`
	LookupEntries map[string]string `json:"LookupEntries"`
}

func decodeCustomField(raw json.RawMessage) (*model.CustomField, error) {
	var rc rawCustomField
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, migerr.Data("failed to decode custom field record", err)
	}
	return &model.CustomField{
		ID:            rc.InternalName,
		InternalName:  rc.InternalName,
		DisplayName:   rc.DisplayName,
		FieldType:     model.FieldType(rc.FieldType),
		IsMultiSelect: rc.IsMultiSelect,
		IsMultiline:   rc.IsMultiline,
		Formula:       rc.Formula,
		LookupEntries: rc.LookupEntries,
	}, nil
}
