package ordersim

import (
	"math"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

// Arm integrates the rotation of the pivot arm over wall time. It only moves
// while the order is running and stops at the end of its zone.
type Arm struct {
	mu        sync.Mutex
	angle     float64
	end       float64
	degPerMin float64
	last      time.Time
	started   bool
}

// zoneBounds returns the start and end angle the arm sweeps for a zone.
func zoneBounds(z entities.Zone) (float64, float64) {
	switch z {
	case entities.ZoneLowerHalf:
		return 180, 360
	case entities.ZoneFull:
		return 0, 360
	}
	return 0, 180
}

// NewArm places the arm at startAngle, or at the zone start when startAngle
// lies outside the zone.
func NewArm(zone entities.Zone, startAngle int, degPerMin float64) *Arm {
	lo, hi := zoneBounds(zone)
	a := float64(startAngle)
	if a < lo || a > hi {
		a = lo
	}
	return &Arm{angle: a, end: hi, degPerMin: math.Max(0, degPerMin)}
}

// Advance moves the arm for the time elapsed since the previous call and
// reports the whole-degree angle and whether the zone end was reached.
func (a *Arm) Advance(now time.Time, running bool) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		a.started = true
		a.last = now
	}
	dtMin := now.Sub(a.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	a.last = now
	if running {
		a.angle = math.Min(a.end, a.angle+a.degPerMin*dtMin)
	}
	return int(math.Round(a.angle)), a.angle >= a.end
}

func (a *Arm) Angle() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(math.Round(a.angle))
}
