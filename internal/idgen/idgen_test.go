package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunIDReturnsDistinctValuesEachCall(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNewProjectIDReturnsDistinctValuesEachCall(t *testing.T) {
	a := NewProjectID()
	b := NewProjectID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
