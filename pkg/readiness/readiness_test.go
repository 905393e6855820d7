package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarrierNotReadyUntilAllReport(t *testing.T) {
	b := New(3)
	assert.False(t, b.Ready())

	b.SetReady(0)
	b.SetReady(1)
	assert.False(t, b.Ready())
	assert.Equal(t, 2, b.Count())

	b.SetReady(2)
	assert.True(t, b.Ready())
}

func TestSetReadyIsIdempotent(t *testing.T) {
	b := New(2)
	b.SetReady(0)
	b.SetReady(0)
	assert.Equal(t, 1, b.Count())
}
