package transform

import (
	"fmt"
	"strings"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

// FormatPredecessors implements spec §4.6.10: given a task's predecessor
// relations and the source-task-ID -> target-row-index map built during
// load, emit a comma-separated "<row>{type}{lag?}" string. An unknown
// predecessor ID is dropped from the output and reported as a warning
// rather than failing the task (per the Open Question decision in
// DESIGN.md).
func FormatPredecessors(preds []model.Predecessor, rowIndexByTaskID map[string]int) (string, []error) {
	if len(preds) == 0 {
		return "", nil
	}

	var parts []string
	var warnings []error
	for _, p := range preds {
		row, ok := rowIndexByTaskID[p.PredecessorID]
		if !ok {
			warnings = append(warnings, migerr.Data(
				fmt.Sprintf("predecessor %s is unresolved (dangling reference); omitting from predecessor list", p.PredecessorID), nil))
			continue
		}

		entry := fmt.Sprintf("%d%s", row, p.Type)
		if p.LagDays > 0 {
			entry += fmt.Sprintf("+%dd", p.LagDays)
		} else if p.LagDays < 0 {
			entry += fmt.Sprintf("%dd", p.LagDays)
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ","), warnings
}
