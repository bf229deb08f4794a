package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

func TestParsePredecessorsEmpty(t *testing.T) {
	preds, err := parsePredecessors("")
	require.NoError(t, err)
	assert.Nil(t, preds)
}

func TestParsePredecessorsSingleDefaultType(t *testing.T) {
	preds, err := parsePredecessors("12")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "12", preds[0].PredecessorID)
	assert.Equal(t, model.PredecessorFS, preds[0].Type)
	assert.Equal(t, 0, preds[0].LagDays)
}

func TestParsePredecessorsWithTypeAndLag(t *testing.T) {
	preds, err := parsePredecessors("7SS+3,4FF-2")
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, "7", preds[0].PredecessorID)
	assert.Equal(t, model.PredecessorSS, preds[0].Type)
	assert.Equal(t, 3, preds[0].LagDays)

	assert.Equal(t, "4", preds[1].PredecessorID)
	assert.Equal(t, model.PredecessorFF, preds[1].Type)
	assert.Equal(t, -2, preds[1].LagDays)
}

func TestParsePredecessorsMalformedEntryErrors(t *testing.T) {
	_, err := parsePredecessors("abc")
	assert.Error(t, err)
}
