package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

func TestDecodeSnapshot(t *testing.T) {
	payload := []byte(`{
		"order": {"id": "o1", "pivot_id": "p1", "status": "IN_PROGRESS", "zone": "", "current_angle": -30,
		          "actual_start_time": "2025-03-10T10:00:00Z"},
		"changed_by": "console",
		"timestamp": "2025-03-10T10:05:00Z"
	}`)
	ev, err := DecodeSnapshot("order/snapshot/p1/o1", payload)
	require.NoError(t, err)
	assert.Equal(t, "o1", ev.Order.ID)
	assert.Equal(t, entities.ZoneUpperHalf, ev.Order.Zone, "empty zone defaults to the upper half")
	assert.Equal(t, 330, ev.Order.CurrentAngle)
	assert.Equal(t, "console", ev.ChangedBy)
	require.NotNil(t, ev.Order.ActualStartTime)
	assert.Equal(t, t0, ev.Order.ActualStartTime.UTC())
}

func TestDecodeSnapshotIDsFromTopic(t *testing.T) {
	ev, err := DecodeSnapshot("order/snapshot/p9/o9", []byte(`{"order":{"status":"PENDING","zone":"FULL"}}`))
	require.NoError(t, err)
	assert.Equal(t, "p9", ev.Order.PivotID)
	assert.Equal(t, "o9", ev.Order.ID)
}

func TestDecodeSnapshotRejects(t *testing.T) {
	cases := map[string]string{
		"not json":   `{`,
		"no id":      `{"order":{"status":"PENDING"}}`,
		"bad status": `{"order":{"id":"o1","status":"Em Andamento"}}`,
		"bad zone":   `{"order":{"id":"o1","status":"PENDING","zone":"NORTH"}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot("order/snapshot/x", []byte(payload))
			assert.ErrorIs(t, err, ErrBadSnapshot)
		})
	}
}
