package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestPriorityLabelBoundaries(t *testing.T) {
	cases := []struct {
		priority int
		want     string
	}{
		{1000, "Highest"},
		{1500, "Highest"},
		{999, "Very High"},
		{800, "Very High"},
		{799, "Higher"},
		{600, "Higher"},
		{599, "Medium"},
		{500, "Medium"},
		{499, "Lower"},
		{400, "Lower"},
		{399, "Very Low"},
		{200, "Very Low"},
		{199, "Lowest"},
		{0, "Lowest"},
		{-50, "Lowest"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PriorityLabel(intp(tc.priority)), "priority %d", tc.priority)
	}
}

func TestPriorityLabelDefaultsWhenAbsent(t *testing.T) {
	assert.Equal(t, "Medium", PriorityLabel(nil))
}
