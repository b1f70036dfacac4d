package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/unit-simulator/model"
	"github.com/signalsfoundry/unit-simulator/timectrl"
)

// UnitSpec describes one unit to create at startup.
type UnitSpec struct {
	ID         string
	Category   model.Category
	Subtype    string // overrides the catalog pick when set
	SpeedKnots float64
	CourseDeg  float64
	AltitudeM  float64 // aircraft only
	DepthM     float64 // submarines only
	Start      *model.Position
	TLELine1   string // satellites only
	TLELine2   string
}

// Config is the full set of parameters for a simulation run.
type Config struct {
	BoundingBox model.BoundingBox
	Interval    time.Duration
	Duration    time.Duration
	StartTime   time.Time
	Mode        timectrl.Mode
	Units       []UnitSpec
}

// DefaultBoundingBox covers the Indian subcontinent and surrounding seas.
var DefaultBoundingBox = model.BoundingBox{MinLon: 68, MinLat: 8, MaxLon: 97.2, MaxLat: 37.5}

const (
	DefaultInterval = 10 * time.Minute
	DefaultDuration = time.Hour
)

// DefaultUnits is the stock scenario: three aircraft, three ships, three
// submarines and one base.
func DefaultUnits() []UnitSpec {
	return []UnitSpec{
		{ID: "aircraft-1", Category: model.CategoryAircraft, SpeedKnots: 500, CourseDeg: 90, AltitudeM: 10000},
		{ID: "aircraft-2", Category: model.CategoryAircraft, SpeedKnots: 800, CourseDeg: 10, AltitudeM: 10000},
		{ID: "aircraft-3", Category: model.CategoryAircraft, SpeedKnots: 200, CourseDeg: 180, AltitudeM: 10000},
		{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 20, CourseDeg: 45},
		{ID: "ship-2", Category: model.CategoryShip, SpeedKnots: 10, CourseDeg: 5},
		{ID: "ship-3", Category: model.CategoryShip, SpeedKnots: 40, CourseDeg: 0},
		{ID: "submarine-1", Category: model.CategorySubmarine, SpeedKnots: 15, CourseDeg: 135, DepthM: 200},
		{ID: "submarine-2", Category: model.CategorySubmarine, SpeedKnots: 10, CourseDeg: 13, DepthM: 100},
		{ID: "submarine-3", Category: model.CategorySubmarine, SpeedKnots: 5, CourseDeg: 135, DepthM: 20},
		{ID: "base-1", Category: model.CategoryBase},
	}
}

// DefaultConfig returns the stock one-hour scenario starting now.
func DefaultConfig() Config {
	return Config{
		BoundingBox: DefaultBoundingBox,
		Interval:    DefaultInterval,
		Duration:    DefaultDuration,
		StartTime:   time.Now().UTC(),
		Mode:        timectrl.Accelerated,
		Units:       DefaultUnits(),
	}
}

// Validate checks run parameters and unit specs.
func (c Config) Validate() error {
	if err := c.BoundingBox.Validate(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return &model.InvalidKinematicsError{Field: "interval", Value: c.Interval.Seconds(), Reason: "must be > 0"}
	}
	if c.Duration < 0 {
		return &model.InvalidKinematicsError{Field: "duration", Value: c.Duration.Seconds(), Reason: "must be >= 0"}
	}

	seen := make(map[string]struct{}, len(c.Units))
	var errs []error
	for i, u := range c.Units {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("units[%d]: id is required", i))
			continue
		}
		if _, dup := seen[u.ID]; dup {
			errs = append(errs, fmt.Errorf("units[%d]: duplicate id %q", i, u.ID))
		}
		seen[u.ID] = struct{}{}
		if u.Category == model.CategoryUnknown {
			errs = append(errs, fmt.Errorf("unit %q: category is required", u.ID))
		}
		if u.Category == model.CategorySatellite && (u.TLELine1 == "" || u.TLELine2 == "") {
			errs = append(errs, fmt.Errorf("unit %q: satellites need tle1 and tle2", u.ID))
		}
	}
	return errors.Join(errs...)
}
