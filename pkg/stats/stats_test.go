package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, float64(1), Percentile(sorted, 0))
	assert.Equal(t, float64(6), Percentile(sorted, 50))
	assert.Equal(t, float64(0), Percentile(nil, 50))
}

func TestMeanRoundedTo(t *testing.T) {
	assert.Equal(t, 3.3, MeanRoundedTo([]float64{3, 3, 4}, 1))
	assert.Equal(t, float64(0), MeanRoundedTo(nil, 1))
}
