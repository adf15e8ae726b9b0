package messages

import (
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

// OrderSnapshotEvent is published by the order console on every change of an
// order (topic "order/snapshot/{pivot}/{order}"). The order carries canonical enums.
type OrderSnapshotEvent struct {
	Order     entities.ServiceOrder `json:"order"`
	ChangedBy string                `json:"changed_by,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}
