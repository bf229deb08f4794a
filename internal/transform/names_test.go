package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNameReplacesIllegalChars(t *testing.T) {
	assert.Equal(t, "A-B-C", SanitizeName("A/B:C"))
}

func TestSanitizeNameCollapsesRuns(t *testing.T) {
	assert.Equal(t, "A-B", SanitizeName("A///B"))
}

func TestSanitizeNameTrimsLeadingTrailing(t *testing.T) {
	assert.Equal(t, "Project", SanitizeName("  -Project- "))
}

func TestSanitizeNameTruncatesWithEllipsis(t *testing.T) {
	long := strings.Repeat("x", 150)
	result := SanitizeName(long)
	assert.True(t, strings.HasSuffix(result, "..."))
	assert.LessOrEqual(t, len(result), maxNameLength+3)
}

func TestProjectPrefixFallbackOnEmpty(t *testing.T) {
	assert.Equal(t, "PRJ", ProjectPrefix(""))
	assert.Equal(t, "PRJ", ProjectPrefix("   "))
}

func TestProjectPrefixUsesInitialsWhenEnough(t *testing.T) {
	assert.Equal(t, "ABC", ProjectPrefix("Alpha Bravo Charlie"))
}

func TestProjectPrefixCapsAtFourInitials(t *testing.T) {
	assert.Equal(t, "ABCD", ProjectPrefix("Alpha Bravo Charlie Delta Echo"))
}

func TestProjectPrefixPadsWhenFewInitials(t *testing.T) {
	prefix := ProjectPrefix("Widget")
	assert.True(t, len(prefix) >= 3 && len(prefix) <= 4)
	assert.Equal(t, strings.ToUpper(prefix), prefix)
}
