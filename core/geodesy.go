package core

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/unit"

	"github.com/signalsfoundry/unit-simulator/model"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the spherical
	// destination projection (kilometres).
	EarthRadiusKm = 6371.0088

	// NauticalMileKm is the length of one international nautical mile.
	NauticalMileKm = 1.852
)

// Destination returns the point reached by travelling distanceNM nautical
// miles from start along the great circle with initial bearing bearingDeg.
//
// The bearing is reduced modulo 360 and the resulting longitude is wrapped
// into [-180, 180]. A zero distance returns start unchanged.
func Destination(start model.Position, distanceNM, bearingDeg float64) model.Position {
	if distanceNM == 0 {
		return start
	}

	phi1 := unit.AngleFromDeg(start.Lat)
	lambda1 := unit.AngleFromDeg(start.Lon)
	theta := unit.AngleFromDeg(model.NormalizeCourse(bearingDeg))
	delta := unit.Angle(distanceNM * NauticalMileKm / EarthRadiusKm)

	sinPhi2 := phi1.Sin()*delta.Cos() + phi1.Cos()*delta.Sin()*theta.Cos()
	phi2 := unit.Angle(math.Asin(clampUnit(sinPhi2)))

	y := theta.Sin() * delta.Sin() * phi1.Cos()
	x := delta.Cos() - phi1.Sin()*sinPhi2
	lambda2 := lambda1 + unit.Angle(math.Atan2(y, x))

	return model.Position{
		Lat: clampLatitude(phi2.Deg()),
		Lon: WrapLongitude(lambda2.Deg()),
	}
}

// DistanceNM is the distance covered at speedKnots over interval.
func DistanceNM(speedKnots float64, interval time.Duration) float64 {
	return speedKnots * interval.Hours()
}

// Advance moves start along a constant course at a constant speed for the
// given interval.
func Advance(start model.Position, kin model.Kinematics, interval time.Duration) (model.Position, error) {
	if math.IsNaN(kin.SpeedKnots) || math.IsInf(kin.SpeedKnots, 0) || kin.SpeedKnots < 0 {
		return start, &model.InvalidKinematicsError{Field: "speed", Value: kin.SpeedKnots, Reason: "must be a finite value >= 0"}
	}
	if interval < 0 {
		return start, &model.InvalidKinematicsError{Field: "interval", Value: interval.Seconds(), Reason: "must be >= 0"}
	}
	return Destination(start, DistanceNM(kin.SpeedKnots, interval), kin.CourseDeg), nil
}

// WrapLongitude maps any longitude in degrees into [-180, 180].
func WrapLongitude(deg float64) float64 {
	if deg >= -180 && deg <= 180 {
		return deg
	}
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// NormalizeCourse reduces a bearing into [0, 360).
func NormalizeCourse(deg float64) float64 { return model.NormalizeCourse(deg) }

// GreatCircleDistanceNM returns the surface distance between two points in
// nautical miles, measured on the IAU 1976 ellipsoid.
func GreatCircleDistanceNM(a, b model.Position) float64 {
	if a == b {
		return 0
	}
	// meeus measures longitude positively westward.
	c1 := globe.Coord{Lat: unit.AngleFromDeg(a.Lat), Lon: unit.AngleFromDeg(-a.Lon)}
	c2 := globe.Coord{Lat: unit.AngleFromDeg(b.Lat), Lon: unit.AngleFromDeg(-b.Lon)}
	km := globe.Earth76.Distance(c1, c2)
	if math.IsNaN(km) {
		return 0
	}
	return km / NauticalMileKm
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func clampLatitude(deg float64) float64 {
	return math.Max(-90, math.Min(90, deg))
}
