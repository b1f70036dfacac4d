package core

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/soniakeys/unit"

	"github.com/signalsfoundry/unit-simulator/model"
)

// RandomPosition draws a coordinate uniformly distributed by area inside box.
// Longitude is uniform across the box; latitude is uniform in sin(lat), which
// compensates for meridians converging toward the poles.
func RandomPosition(rng *rand.Rand, box model.BoundingBox) (model.Position, error) {
	if rng == nil {
		return model.Position{}, errors.New("random source is required")
	}
	if err := box.Validate(); err != nil {
		return model.Position{}, err
	}

	sinMin := unit.AngleFromDeg(box.MinLat).Sin()
	sinMax := unit.AngleFromDeg(box.MaxLat).Sin()
	s := sinMin + rng.Float64()*(sinMax-sinMin)
	lat := unit.Angle(math.Asin(clampUnit(s))).Deg()

	lon := box.MinLon + rng.Float64()*(box.MaxLon-box.MinLon)

	// asin round-off can step a hair outside the box edges.
	return model.Position{
		Lat: math.Max(box.MinLat, math.Min(box.MaxLat, lat)),
		Lon: math.Max(box.MinLon, math.Min(box.MaxLon, lon)),
	}, nil
}
