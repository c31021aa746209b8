package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent_ZeroTotal(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 0, Percent(1, -1))
}

func TestPercent_ExactRatios(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 4))
	assert.Equal(t, 25, Percent(1, 4))
	assert.Equal(t, 50, Percent(2, 4))
	assert.Equal(t, 100, Percent(4, 4))
}

func TestPercent_Rounding(t *testing.T) {
	// 1/3 = 33.33... rounds down, 2/3 = 66.66... rounds up.
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	// 1/7 = 14.28... -> 14
	assert.Equal(t, 14, Percent(1, 7))
}

func TestPercent_HalfBoundary(t *testing.T) {
	// 1/8 = 12.5. math.Round rounds half away from zero, so 13.
	// The tie-break direction is documented here, not guaranteed.
	assert.Equal(t, 13, Percent(1, 8))
}
