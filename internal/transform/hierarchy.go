package transform

import (
	"sort"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

// HierarchyNode is one task positioned in load order with its resolved
// parent, per spec §4.6.9.
type HierarchyNode struct {
	Task     model.Task
	ParentID string // source task ID of the parent, empty when root
}

// ReconstructHierarchy implements spec §4.6.9: sort tasks by TaskIndex
// ascending, then walk a stack keyed by OutlineLevel, popping ancestors
// whose level is >= the current task's level. The returned slice is in
// parent-before-child load order.
func ReconstructHierarchy(tasks []model.Task) []HierarchyNode {
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TaskIndex < sorted[j].TaskIndex })

	type frame struct {
		id    string
		level int
	}
	var stack []frame
	nodes := make([]HierarchyNode, 0, len(sorted))

	for _, t := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].level >= t.OutlineLevel {
			stack = stack[:len(stack)-1]
		}
		parentID := ""
		if len(stack) > 0 {
			parentID = stack[len(stack)-1].id
		}
		nodes = append(nodes, HierarchyNode{Task: t, ParentID: parentID})
		stack = append(stack, frame{id: t.ID, level: t.OutlineLevel})
	}
	return nodes
}
