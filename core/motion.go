package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/unit-simulator/model"
)

// MotionModel advances a unit's position by one simulation step.
type MotionModel interface {
	UpdatePosition(simTime time.Time, interval time.Duration, u *model.Unit) error
}

// StaticMotionModel leaves the unit's position unchanged.
type StaticMotionModel struct{}

// UpdatePosition for static motion does nothing.
func (m *StaticMotionModel) UpdatePosition(time.Time, time.Duration, *model.Unit) error {
	return nil
}

// ConstantVelocityModel moves a unit along a great circle at its constant
// speed and course.
type ConstantVelocityModel struct{}

// UpdatePosition projects the unit forward by interval.
func (m *ConstantVelocityModel) UpdatePosition(_ time.Time, interval time.Duration, u *model.Unit) error {
	next, err := Advance(u.Position, u.Kinematics, interval)
	if err != nil {
		return fmt.Errorf("unit %q: %w", u.ID, err)
	}
	u.Position = next
	return nil
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to place a satellite unit at its
// sub-satellite point.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) (*OrbitalSGP4MotionModel, error) {
	line1, line2 = strings.TrimSpace(line1), strings.TrimSpace(line2)
	if len(line1) < 69 || len(line2) < 69 || line1[0] != '1' || line2[0] != '2' {
		return nil, errors.New("malformed two-line element set")
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}, nil
}

// UpdatePosition propagates the satellite to simTime and stores the geodetic
// latitude, longitude and altitude on the unit.
func (m *OrbitalSGP4MotionModel) UpdatePosition(simTime time.Time, _ time.Duration, u *model.Unit) error {
	pos, altKm, err := m.Propagate(simTime)
	if err != nil {
		return fmt.Errorf("unit %q: %w", u.ID, err)
	}
	u.Position = pos
	if v, ok := u.Variant.(model.SatelliteVariant); ok {
		v.AltitudeKm = altKm
		u.Variant = v
	}
	return nil
}

// Propagate returns the sub-satellite point and altitude (km) at t.
func (m *OrbitalSGP4MotionModel) Propagate(t time.Time) (model.Position, float64, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	altKm, _, lla := satellite.ECIToLLA(posECI, gmst)

	lat := lla.Latitude * 180 / math.Pi
	lon := WrapLongitude(lla.Longitude * 180 / math.Pi)
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(altKm) {
		return model.Position{}, 0, errors.New("sgp4 propagation diverged")
	}
	return model.Position{Lat: clampLatitude(lat), Lon: lon}, altKm, nil
}

// NewMotionModel chooses an appropriate MotionModel for the unit's category.
func NewMotionModel(u *model.Unit) (MotionModel, error) {
	switch v := u.Variant.(type) {
	case model.SatelliteVariant:
		m, err := NewOrbitalModelFromTLE(v.TLELine1, v.TLELine2)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", u.ID, err)
		}
		return m, nil
	case model.BaseVariant:
		return &StaticMotionModel{}, nil
	case nil:
		return nil, fmt.Errorf("unit %q has no variant", u.ID)
	default:
		return &ConstantVelocityModel{}, nil
	}
}
