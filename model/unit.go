package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Category identifies the kind of unit. Its label doubles as the unit's name.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAircraft
	CategoryShip
	CategorySubmarine
	CategoryBase
	CategorySatellite // TLE-driven orbit propagation
)

var categoryNames = map[Category]string{
	CategoryAircraft:  "Aircraft",
	CategoryShip:      "Ship",
	CategorySubmarine: "Submarine",
	CategoryBase:      "Base",
	CategorySatellite: "Satellite",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseCategory maps a label such as "aircraft" or "Ship" to its Category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown unit category %q", s)
}

// Kinematics is the constant speed and course of a unit.
type Kinematics struct {
	SpeedKnots float64
	CourseDeg  float64 // clockwise from true north, [0, 360)
}

// Variant carries the category-specific payload of a unit.
type Variant interface {
	Category() Category
	// detail renders the trailing part of the console line.
	detail(k Kinematics) string
}

// AircraftVariant holds the constant altitude of an aircraft.
type AircraftVariant struct {
	AltitudeM float64
}

func (AircraftVariant) Category() Category { return CategoryAircraft }

func (v AircraftVariant) detail(k Kinematics) string {
	return kinematicsDetail(k) + ", Height: " + formatNumber(v.AltitudeM) + " m"
}

// ShipVariant has no extra payload.
type ShipVariant struct{}

func (ShipVariant) Category() Category { return CategoryShip }

func (ShipVariant) detail(k Kinematics) string { return kinematicsDetail(k) }

// SubmarineVariant holds the constant depth of a submarine.
type SubmarineVariant struct {
	DepthM float64
}

func (SubmarineVariant) Category() Category { return CategorySubmarine }

func (v SubmarineVariant) detail(k Kinematics) string {
	return kinematicsDetail(k) + ", Depth: " + formatNumber(v.DepthM) + " m"
}

// BaseVariant is a stationary unit.
type BaseVariant struct{}

func (BaseVariant) Category() Category { return CategoryBase }

func (BaseVariant) detail(k Kinematics) string { return kinematicsDetail(k) }

// SatelliteVariant is propagated from a two-line element set. AltitudeKm is
// refreshed by the orbital motion model on every update.
type SatelliteVariant struct {
	TLELine1   string
	TLELine2   string
	AltitudeKm float64
}

func (SatelliteVariant) Category() Category { return CategorySatellite }

func (v SatelliteVariant) detail(Kinematics) string {
	return fmt.Sprintf(", Altitude: %.3f km", v.AltitudeKm)
}

// NoSubtypeLabel is rendered when a unit was created without a subtype.
const NoSubtypeLabel = "unknown"

// Unit is a tracked entity with identity, kinematic state and position.
// Units are mutated only through a motion model update.
type Unit struct {
	ID       string
	Subtype  string
	Position Position
	Kinematics
	Variant Variant
}

// NewUnit validates and constructs a unit. The course is normalised into
// [0, 360).
func NewUnit(id, subtype string, pos Position, kin Kinematics, variant Variant) (*Unit, error) {
	if variant == nil {
		return nil, fmt.Errorf("unit %q: variant is required", id)
	}
	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("unit %q: %w", id, err)
	}
	if !isFinite(kin.SpeedKnots) || kin.SpeedKnots < 0 {
		return nil, fmt.Errorf("unit %q: %w", id,
			&InvalidKinematicsError{Field: "speed", Value: kin.SpeedKnots, Reason: "must be a finite value >= 0"})
	}
	if !isFinite(kin.CourseDeg) {
		return nil, fmt.Errorf("unit %q: %w", id,
			&InvalidKinematicsError{Field: "course", Value: kin.CourseDeg, Reason: "must be finite"})
	}
	kin.CourseDeg = NormalizeCourse(kin.CourseDeg)

	return &Unit{
		ID:         id,
		Subtype:    subtype,
		Position:   pos,
		Kinematics: kin,
		Variant:    variant,
	}, nil
}

// Category returns the unit's category, or CategoryUnknown without a variant.
func (u *Unit) Category() Category {
	if u.Variant == nil {
		return CategoryUnknown
	}
	return u.Variant.Category()
}

// Name is the category label, e.g. "Aircraft".
func (u *Unit) Name() string { return u.Category().String() }

// String renders the unit as a single console line.
func (u *Unit) String() string {
	subtype := u.Subtype
	if subtype == "" {
		subtype = NoSubtypeLabel
	}
	var detail string
	if u.Variant != nil {
		detail = u.Variant.detail(u.Kinematics)
	} else {
		detail = kinematicsDetail(u.Kinematics)
	}
	return fmt.Sprintf("%s (%s) - Position:%s%s", u.Name(), subtype, u.Position, detail)
}

// NormalizeCourse reduces a bearing in degrees into [0, 360).
func NormalizeCourse(deg float64) float64 {
	deg = math.Mod(deg, 360)
	// Mod keeps the sign of its input, so -360 yields -0.
	if deg == 0 {
		return 0
	}
	if deg < 0 {
		deg += 360
	}
	// -1e-20 + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func kinematicsDetail(k Kinematics) string {
	return ", Speed: " + formatNumber(k.SpeedKnots) + " knots, Course: " + formatNumber(k.CourseDeg) + "°"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
