package pivotmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	cases := map[float64]string{
		90.5:    "1h 30min 30s",
		60:      "1h 0min 0s",
		1.5:     "1min 30s",
		0.5:     "30s",
		0:       "0s",
		0.0001:  "0s",
		125.25:  "2h 5min 15s",
		-1.5:    "-1min 30s",
		59.9999: "1h 0min 0s",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), "%v", in)
	}
}

func TestFormatHoursMinutes(t *testing.T) {
	assert.Equal(t, "0min", FormatHoursMinutes(0))
	assert.Equal(t, "59min", FormatHoursMinutes(59))
	assert.Equal(t, "1h 0min", FormatHoursMinutes(60))
	assert.Equal(t, "2h 5min", FormatHoursMinutes(125))
}
