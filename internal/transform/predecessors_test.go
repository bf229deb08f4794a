package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

func TestFormatPredecessorsBasic(t *testing.T) {
	preds := []model.Predecessor{
		{PredecessorID: "t5", Type: model.PredecessorFS},
	}
	rowIndex := map[string]int{"t5": 5}

	s, warnings := FormatPredecessors(preds, rowIndex)
	assert.Equal(t, "5FS", s)
	assert.Empty(t, warnings)
}

func TestFormatPredecessorsWithLag(t *testing.T) {
	preds := []model.Predecessor{
		{PredecessorID: "t3", Type: model.PredecessorSS, LagDays: 2},
	}
	rowIndex := map[string]int{"t3": 3}

	s, warnings := FormatPredecessors(preds, rowIndex)
	assert.Equal(t, "3SS+2d", s)
	assert.Empty(t, warnings)
}

func TestFormatPredecessorsNegativeLag(t *testing.T) {
	preds := []model.Predecessor{
		{PredecessorID: "t4", Type: model.PredecessorFF, LagDays: -1},
	}
	rowIndex := map[string]int{"t4": 4}

	s, _ := FormatPredecessors(preds, rowIndex)
	assert.Equal(t, "4FF-1d", s)
}

func TestFormatPredecessorsDanglingReferenceDegradesToWarning(t *testing.T) {
	preds := []model.Predecessor{
		{PredecessorID: "missing", Type: model.PredecessorFS},
	}
	s, warnings := FormatPredecessors(preds, map[string]int{})
	assert.Equal(t, "", s)
	require.Len(t, warnings, 1)
}

func TestFormatPredecessorsMultiple(t *testing.T) {
	preds := []model.Predecessor{
		{PredecessorID: "t1", Type: model.PredecessorFS},
		{PredecessorID: "t2", Type: model.PredecessorSS, LagDays: 1},
	}
	rowIndex := map[string]int{"t1": 1, "t2": 2}
	s, warnings := FormatPredecessors(preds, rowIndex)
	assert.Equal(t, "1FS,2SS+1d", s)
	assert.Empty(t, warnings)
}
