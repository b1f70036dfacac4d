package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/unit-simulator/catalog"
	"github.com/signalsfoundry/unit-simulator/model"
)

// BuildUnits creates one unit per UnitSpec. Subtypes come from the catalog
// unless the UnitSpec names one; starting coordinates come from Start or are drawn
// inside cfg.BoundingBox. Satellites start at their propagated position at
// cfg.StartTime.
func BuildUnits(cfg Config, cat *catalog.Catalog, rng *rand.Rand) ([]*model.Unit, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	units := make([]*model.Unit, 0, len(cfg.Units))
	for _, spec := range cfg.Units {
		u, err := buildUnit(spec, cfg.BoundingBox, cfg.StartTime, cat, rng)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func buildUnit(spec UnitSpec, box model.BoundingBox, start time.Time, cat *catalog.Catalog, rng *rand.Rand) (*model.Unit, error) {
	subtype := spec.Subtype
	if subtype == "" {
		subtype, _ = cat.Pick(spec.Category.String(), rng)
	}

	variant, err := variantFor(spec)
	if err != nil {
		return nil, err
	}
	kin := model.Kinematics{SpeedKnots: spec.SpeedKnots, CourseDeg: spec.CourseDeg}
	if spec.Category == model.CategoryBase {
		kin = model.Kinematics{}
	}

	var pos model.Position
	switch {
	case spec.Category == model.CategorySatellite:
		orbit, err := NewOrbitalModelFromTLE(spec.TLELine1, spec.TLELine2)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", spec.ID, err)
		}
		var altKm float64
		pos, altKm, err = orbit.Propagate(start)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", spec.ID, err)
		}
		sv := variant.(model.SatelliteVariant)
		sv.AltitudeKm = altKm
		variant = sv
		kin = model.Kinematics{}
	case spec.Start != nil:
		pos = *spec.Start
	default:
		pos, err = RandomPosition(rng, box)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", spec.ID, err)
		}
	}

	return model.NewUnit(spec.ID, subtype, pos, kin, variant)
}

func variantFor(spec UnitSpec) (model.Variant, error) {
	switch spec.Category {
	case model.CategoryAircraft:
		return model.AircraftVariant{AltitudeM: spec.AltitudeM}, nil
	case model.CategoryShip:
		return model.ShipVariant{}, nil
	case model.CategorySubmarine:
		return model.SubmarineVariant{DepthM: spec.DepthM}, nil
	case model.CategoryBase:
		return model.BaseVariant{}, nil
	case model.CategorySatellite:
		return model.SatelliteVariant{TLELine1: spec.TLELine1, TLELine2: spec.TLELine2}, nil
	default:
		return nil, fmt.Errorf("unit %q: unsupported category %v", spec.ID, spec.Category)
	}
}
