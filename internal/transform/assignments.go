// Package-level assignment column polymorphism, spec §4.6.11. The three
// resource kinds produce three distinct column/cell shapes; dispatch is an
// explicit switch over model.ResourceType rather than a shared interface,
// since Work's contact shape and Material/Cost's picklist shape share no
// common cell representation worth abstracting.
package transform

import (
	"sort"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

const (
	TeamMembersColumn = "Team Members"
	EquipmentColumn   = "Equipment"
	CostCentersColumn = "Cost Centers"
)

// AssignmentCells is the per-task set of assignment-derived cells, one per
// resource-type column that this task has assignments for.
type AssignmentCells struct {
	TeamMembers *model.ObjectValue // nil when the task has no Work assignments
	Equipment   *model.ObjectValue
	CostCenters *model.ObjectValue
}

// BuildAssignmentCells groups a task's assignments by assigned resource
// type and builds the corresponding cell objects, per the table in spec
// §4.6.11. resourceByID resolves an assignment's ResourceID to its
// Resource record.
func BuildAssignmentCells(assignments []model.Assignment, resourceByID map[string]model.Resource) AssignmentCells {
	var contacts []model.Contact
	materialNames := map[string]struct{}{}
	costNames := map[string]struct{}{}

	for _, a := range assignments {
		res, ok := resourceByID[a.ResourceID]
		if !ok {
			continue
		}
		switch res.Type {
		case model.ResourceWork:
			if c, ok := ContactFrom(res.Name, res.Email); ok {
				contacts = append(contacts, c)
			}
		case model.ResourceMaterial:
			materialNames[res.Name] = struct{}{}
		case model.ResourceCost:
			costNames[res.Name] = struct{}{}
		}
	}

	return AssignmentCells{
		TeamMembers: MultiContactObject(contacts),
		Equipment:   MultiPicklistObject(sortedKeys(materialNames)),
		CostCenters: MultiPicklistObject(sortedKeys(costNames)),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DiscoverResourceOptions returns the sorted, de-duplicated set of resource
// names for a given type.
func DiscoverResourceOptions(resources []model.Resource, kind model.ResourceType) []string {
	set := map[string]struct{}{}
	for _, r := range resources {
		if r.Type == kind {
			set[r.Name] = struct{}{}
		}
	}
	return sortedKeys(set)
}
