package model

import (
	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

// Aliases shared by the services

type (
	ServiceOrder          = entities.ServiceOrder
	InterruptionRecord    = entities.InterruptionRecord
	OrderSnapshotEvent    = messages.OrderSnapshotEvent
	EfficiencyReportEvent = messages.EfficiencyReportEvent
)
