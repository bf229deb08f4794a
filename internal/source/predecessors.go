package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

// predecessorPattern matches one comma-separated predecessor entry as
// Project Online's TaskPredecessors field renders them, e.g. "12FS+3",
// "7SS", "4FF-2".
var predecessorPattern = regexp.MustCompile(`^(\d+)(FS|SS|FF|SF)?([+-]\d+)?$`)

// parsePredecessors splits and parses the raw TaskPredecessors string into
// structured Predecessor values. An empty string yields a nil slice.
func parsePredecessors(raw string) ([]model.Predecessor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	preds := make([]model.Predecessor, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := predecessorPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("unrecognized predecessor entry %q", part)
		}

		predType := model.PredecessorFS
		if m[2] != "" {
			predType = model.PredecessorType(m[2])
		}

		lag := 0
		if m[3] != "" {
			l, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, fmt.Errorf("unrecognized lag in predecessor entry %q", part)
			}
			lag = l
		}

		preds = append(preds, model.Predecessor{
			PredecessorID: m[1],
			Type:          predType,
			LagDays:       lag,
		})
	}
	return preds, nil
}
