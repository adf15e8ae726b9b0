package entities

import "time"

// InterruptionRecord is one stop of an order; ResumedAt is nil while the stop is ongoing.
type InterruptionRecord struct {
	StoppedAt time.Time  `json:"stopped_at"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
	Reason    string     `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
	ResumedBy string     `json:"resumed_by,omitempty"`
}

func (r InterruptionRecord) Open() bool { return r.ResumedAt == nil }

// Stop reasons offered to operators when pausing an order.
const (
	ReasonPowerOutage = "Falta de energia"
	ReasonMechanical  = "Falha mecânica"
	ReasonWaterShort  = "Falta de água"
	ReasonWeather     = "Condições climáticas"
	ReasonMaintenance = "Manutenção programada"
	ReasonEmergency   = "Emergência"
	ReasonOther       = "Outro"
)

var KnownReasons = []string{
	ReasonPowerOutage,
	ReasonMechanical,
	ReasonWaterShort,
	ReasonWeather,
	ReasonMaintenance,
	ReasonEmergency,
	ReasonOther,
}

// ParseReason returns the catalog spelling of s, ignoring case and accents.
func ParseReason(s string) (string, bool) {
	k := foldKey(s)
	for _, r := range KnownReasons {
		if foldKey(r) == k {
			return r, true
		}
	}
	return "", false
}
