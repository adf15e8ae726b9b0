package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

const snapshotPrefix = "order/snapshot/"

var ErrBadSnapshot = errors.New("bad order snapshot")

// DecodeSnapshot parses an order snapshot. Pivot and order IDs missing from
// the payload are taken from the topic "order/snapshot/{pivot}/{order}".
func DecodeSnapshot(topic string, payload []byte) (msg.OrderSnapshotEvent, error) {
	var ev msg.OrderSnapshotEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return msg.OrderSnapshotEvent{}, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	o := &ev.Order
	o.PivotID, o.ID = pickIDs(topic, o.PivotID, o.ID)
	if o.ID == "" {
		return msg.OrderSnapshotEvent{}, fmt.Errorf("%w: missing order id", ErrBadSnapshot)
	}
	if !o.Status.Valid() {
		return msg.OrderSnapshotEvent{}, fmt.Errorf("%w: status %q", ErrBadSnapshot, o.Status)
	}
	if o.Zone == "" {
		o.Zone = entities.ZoneUpperHalf
	}
	if !o.Zone.Valid() {
		return msg.OrderSnapshotEvent{}, fmt.Errorf("%w: zone %q", ErrBadSnapshot, o.Zone)
	}
	o.CurrentAngle = entities.NormalizeAngle(o.CurrentAngle)
	return ev, nil
}

func pickIDs(topic, pivotID, orderID string) (string, string) {
	if strings.TrimSpace(pivotID) != "" && strings.TrimSpace(orderID) != "" {
		return pivotID, orderID
	}
	parts := strings.Split(strings.TrimPrefix(topic, snapshotPrefix), "/")
	if len(parts) == 2 {
		if strings.TrimSpace(pivotID) == "" {
			pivotID = parts[0]
		}
		if strings.TrimSpace(orderID) == "" {
			orderID = parts[1]
		}
	}
	return pivotID, orderID
}
