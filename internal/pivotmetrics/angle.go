// Package pivotmetrics holds the pure arithmetic behind the pivot order views:
// angle/stage mapping, progress percentages, efficiency and duration labels.
// Nothing here reads the clock or does I/O; "now" is always a parameter.
package pivotmetrics

import "github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"

// Representative angle of each 60° sector in the upper half.
// The lower half uses the same centers shifted by 180°.
var sectorCenter = map[entities.Stage]int{
	entities.StageStart:  30,
	entities.StageMiddle: 90,
	entities.StageEnd:    150,
}

type sector struct {
	lo, hi int // inclusive
	stage  entities.Stage
}

var (
	upperSectors = []sector{
		{0, 60, entities.StageStart},
		{61, 120, entities.StageMiddle},
		{121, 180, entities.StageEnd},
	}
	lowerSectors = []sector{
		{181, 240, entities.StageStart},
		{241, 300, entities.StageMiddle},
		{301, 360, entities.StageEnd},
	}
)

// effectiveZone resolves ZoneFull to the half the arm currently sits in.
func effectiveZone(zone entities.Zone, refAngle int) (entities.Zone, bool) {
	switch zone {
	case entities.ZoneUpperHalf, entities.ZoneLowerHalf:
		return zone, true
	case entities.ZoneFull:
		if refAngle > 180 {
			return entities.ZoneLowerHalf, true
		}
		return entities.ZoneUpperHalf, true
	}
	return "", false
}

// AngleForProgress returns the center angle of the sector matching stage.
// refAngle is only consulted for ZoneFull. The bool is false for an
// unknown stage or zone.
func AngleForProgress(stage entities.Stage, zone entities.Zone, refAngle int) (int, bool) {
	z, ok := effectiveZone(zone, refAngle)
	if !ok {
		return 0, false
	}
	c, ok := sectorCenter[stage]
	if !ok {
		return 0, false
	}
	if z == entities.ZoneLowerHalf {
		c += 180
	}
	return c, true
}

// ProgressForAngle is the step function from an angle to its sector stage.
// Angles are not wrapped: 360 belongs to the last lower sector and anything
// outside the zone's sectors is unknown.
func ProgressForAngle(angle int, zone entities.Zone) (entities.Stage, bool) {
	var groups [][]sector
	switch zone {
	case entities.ZoneUpperHalf:
		groups = [][]sector{upperSectors}
	case entities.ZoneLowerHalf:
		groups = [][]sector{lowerSectors}
	case entities.ZoneFull:
		groups = [][]sector{upperSectors, lowerSectors}
	default:
		return "", false
	}
	for _, g := range groups {
		for _, s := range g {
			if angle >= s.lo && angle <= s.hi {
				return s.stage, true
			}
		}
	}
	return "", false
}

// PercentageForAngle is the continuous progress of the arm through its zone.
// Angles outside the zone clamp to the nearest boundary: 0 below, 100 above.
func PercentageForAngle(angle float64, zone entities.Zone) (float64, bool) {
	switch zone {
	case entities.ZoneFull:
		return clampPct(angle / 360 * 100), true
	case entities.ZoneUpperHalf:
		if angle > 180 {
			return 100, true
		}
		return clampPct(angle / 180 * 100), true
	case entities.ZoneLowerHalf:
		if angle <= 180 {
			return 0, true
		}
		return clampPct((angle - 180) / 180 * 100), true
	}
	return 0, false
}

// AngleForPercentage inverts PercentageForAngle for bar rendering.
// pct is clamped to [0,100].
func AngleForPercentage(pct float64, zone entities.Zone) (float64, bool) {
	pct = clampPct(pct)
	switch zone {
	case entities.ZoneFull:
		return pct / 100 * 360, true
	case entities.ZoneUpperHalf:
		return pct / 100 * 180, true
	case entities.ZoneLowerHalf:
		return 180 + pct/100*180, true
	}
	return 0, false
}

// HalfForAngle tells which half of the circle the arm is in ("A"/"B" on the
// monitoring table). The angle is wrapped first so 360 reads as 0.
func HalfForAngle(angle int) entities.Zone {
	if entities.NormalizeAngle(angle) <= 180 {
		return entities.ZoneUpperHalf
	}
	return entities.ZoneLowerHalf
}

func clampPct(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
