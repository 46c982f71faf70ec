package sim

import (
	"math"
	"time"
)

// Track is a deterministic figure-eight around a center point. The zero value
// of RadiusNm and Period fall back to 0.5 NM and 10 minutes.
type Track struct {
	CenterLatDeg float64
	CenterLonDeg float64
	RadiusNm     float64
	Period       time.Duration
}

func (t Track) radiusNm() float64 {
	if t.RadiusNm <= 0 {
		return 0.5
	}
	return t.RadiusNm
}

func (t Track) period() time.Duration {
	if t.Period <= 0 {
		return 10 * time.Minute
	}
	return t.Period
}

// Position returns the point on the track at now, with course over ground
// and speed over ground in knots.
func (t Track) Position(now time.Time) (latDeg, lonDeg, courseDeg, speedKt float64) {
	period := t.period()
	radiusNm := t.radiusNm()

	// ~60 NM per degree of latitude.
	radiusDeg := radiusNm / 60.0

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())

	// x = cos(2πt) east-west, y = 0.5*sin(4πt) north-south. y stays within
	// [-0.5, 0.5] so the path never leaves the radius.
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = t.CenterLatDeg + radiusDeg*y
	lonDeg = t.CenterLonDeg + (radiusDeg*x)/math.Cos(t.CenterLatDeg*math.Pi/180.0)

	// d/dphase of (x, y); divide by the period for a rate.
	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	courseDeg = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)
	speedKt = radiusNm * math.Hypot(vx, vy) / period.Hours()
	return latDeg, lonDeg, courseDeg, speedKt
}
