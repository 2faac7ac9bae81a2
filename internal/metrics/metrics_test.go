package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistry_CountersStartAtZero(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, float64(0), readCounter(r.VectorSearches))
	assert.Equal(t, float64(0), r.SubMsRate())
}

func TestSubMsRate(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 10; i++ {
		r.VectorSearches.Inc()
	}
	for i := 0; i < 9; i++ {
		r.SubMsSearches.Inc()
	}
	assert.InDelta(t, 0.9, r.SubMsRate(), 1e-9)
}

func TestGatherer_ReturnsRegisteredMetrics(t *testing.T) {
	r := NewRegistry()
	r.NodesCount.Set(42)

	families, err := r.Gatherer().Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
