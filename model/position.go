package model

import (
	"fmt"
	"math"
)

// Position is a geographic coordinate in decimal degrees (WGS84, no datum
// conversion).
type Position struct {
	Lat float64
	Lon float64
}

// Validate reports whether the coordinate lies within geographic range.
func (p Position) Validate() error {
	if !isFinite(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &InvalidCoordinateError{Field: "latitude", Value: p.Lat}
	}
	if !isFinite(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return &InvalidCoordinateError{Field: "longitude", Value: p.Lon}
	}
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("(Lat%.6f,Long%.6f)", p.Lat, p.Lon)
}

// BoundingBox is a lon/lat rectangle in GeoJSON bbox order.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// BoundingBoxFromSlice builds a box from [minLon, minLat, maxLon, maxLat].
func BoundingBoxFromSlice(v []float64) (BoundingBox, error) {
	if len(v) != 4 {
		return BoundingBox{}, &InvalidBoundsError{Reason: fmt.Sprintf("expected 4 values, got %d", len(v))}
	}
	box := BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// Validate rejects inverted, non-finite or out-of-range bounds.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if !isFinite(v) {
			return &InvalidBoundsError{Box: b, Reason: "bounds must be finite"}
		}
	}
	if b.MinLon > b.MaxLon {
		return &InvalidBoundsError{Box: b, Reason: "min longitude exceeds max longitude"}
	}
	if b.MinLat > b.MaxLat {
		return &InvalidBoundsError{Box: b, Reason: "min latitude exceeds max latitude"}
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return &InvalidBoundsError{Box: b, Reason: "longitude outside [-180, 180]"}
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return &InvalidBoundsError{Box: b, Reason: "latitude outside [-90, 90]"}
	}
	return nil
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Position) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
