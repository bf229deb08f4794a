package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODurationHours(t *testing.T) {
	cases := []struct {
		iso  string
		want float64
	}{
		{"", 0},
		{"PT40H", 40},
		{"P1D", 24},
		{"PT90M", 1.5},
		{"P1DT4H", 28},
	}
	for _, tc := range cases {
		got, err := ParseISODurationHours(tc.iso)
		require.NoError(t, err, tc.iso)
		assert.InDelta(t, tc.want, got, 0.001, tc.iso)
	}
}

func TestParseISODurationHoursRejectsMonthAndWeek(t *testing.T) {
	_, err := ParseISODurationHours("P1M")
	assert.Error(t, err)

	_, err = ParseISODurationHours("P1W")
	assert.Error(t, err)

	_, err = ParseISODurationHours("P1Y")
	assert.Error(t, err)
}

func TestDurationToDecimalDays(t *testing.T) {
	days, err := DurationToDecimalDays("PT40H")
	require.NoError(t, err)
	assert.Equal(t, 5.0, days)

	days, err = DurationToDecimalDays("PT20H")
	require.NoError(t, err)
	assert.Equal(t, 2.5, days)
}

func TestDurationToHoursText(t *testing.T) {
	text, err := DurationToHoursText("PT40H")
	require.NoError(t, err)
	assert.Equal(t, "40h", text)

	text, err = DurationToHoursText("PT90M")
	require.NoError(t, err)
	assert.Equal(t, "1.5h", text)
}
