package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkit/benor-node/pkg/value"
)

func TestDeliverAndSnapshot(t *testing.T) {
	ib := New()
	ib.Deliver(Phase1, 0, value.Zero, 1)
	ib.Deliver(Phase1, 0, value.One, 2)

	entries := ib.Snapshot(Phase1, 0)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, ib.Count(Phase1, 0))
}

func TestSnapshotIsolatesBuckets(t *testing.T) {
	ib := New()
	ib.Deliver(Phase1, 0, value.Zero, 1)
	ib.Deliver(Phase2, 0, value.One, 1)
	ib.Deliver(Phase1, 1, value.One, 1)

	assert.Equal(t, 1, ib.Count(Phase1, 0))
	assert.Equal(t, 1, ib.Count(Phase2, 0))
	assert.Equal(t, 1, ib.Count(Phase1, 1))
}

func TestWaitUnblocksAtThreshold(t *testing.T) {
	ib := New()
	ch := ib.Wait(Phase1, 0, 2)

	select {
	case <-ch:
		t.Fatal("wait closed before threshold reached")
	case <-time.After(20 * time.Millisecond):
	}

	ib.Deliver(Phase1, 0, value.Zero, 1)
	select {
	case <-ch:
		t.Fatal("wait closed before threshold reached")
	case <-time.After(20 * time.Millisecond):
	}

	ib.Deliver(Phase1, 0, value.One, 2)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("wait never closed after threshold reached")
	}
}

func TestWaitReturnsClosedChannelWhenAlreadyAtThreshold(t *testing.T) {
	ib := New()
	ib.Deliver(Phase1, 0, value.Zero, 1)
	ib.Deliver(Phase1, 0, value.One, 2)

	ch := ib.Wait(Phase1, 0, 2)
	select {
	case <-ch:
	default:
		t.Fatal("expected an already-closed channel")
	}
}

func TestPruneDropsOldRoundsOnly(t *testing.T) {
	ib := New()
	ib.Deliver(Phase1, 0, value.Zero, 1)
	ib.Deliver(Phase1, 1, value.Zero, 1)
	ib.Deliver(Phase1, 2, value.Zero, 1)

	ib.Prune(2)

	assert.Equal(t, 0, ib.Count(Phase1, 0))
	assert.Equal(t, 0, ib.Count(Phase1, 1))
	assert.Equal(t, 1, ib.Count(Phase1, 2))
}
