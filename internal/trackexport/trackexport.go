// Package trackexport records unit positions during a run and writes them as
// a GeoJSON FeatureCollection of points.
package trackexport

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/signalsfoundry/unit-simulator/model"
)

// Supported output coordinate reference systems.
const (
	CRSGeographic  = "EPSG:4326"
	CRSWebMercator = "EPSG:3857"
)

// Sample is one observed unit position.
type Sample struct {
	UnitID   string
	Name     string
	Subtype  string
	Step     int
	Time     time.Time
	Position model.Position
}

// Recorder accumulates samples. Record matches core.TickListener.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Record stores the position of every unit at the given step.
func (r *Recorder) Record(step int, simTime time.Time, units []model.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range units {
		u := &units[i]
		subtype := u.Subtype
		if subtype == "" {
			subtype = model.NoSubtypeLabel
		}
		r.samples = append(r.samples, Sample{
			UnitID:   u.ID,
			Name:     u.Name(),
			Subtype:  subtype,
			Step:     step,
			Time:     simTime,
			Position: u.Position,
		})
	}
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// FeatureCollection converts the recorded samples into GeoJSON point
// features in the requested CRS.
func (r *Recorder) FeatureCollection(crs string) (geom.GeoJSONFeatureCollection, error) {
	project, err := projection(crs)
	if err != nil {
		return nil, err
	}

	samples := r.Samples()
	fc := make(geom.GeoJSONFeatureCollection, 0, len(samples))
	for _, s := range samples {
		x, y, err := project(s.Position.Lon, s.Position.Lat)
		if err != nil {
			return nil, fmt.Errorf("unit %q step %d: %w", s.UnitID, s.Step, err)
		}
		pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}, Type: geom.DimXY})
		if err != nil {
			return nil, fmt.Errorf("unit %q step %d: %w", s.UnitID, s.Step, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt.AsGeometry(),
			ID:       fmt.Sprintf("%s/%d", s.UnitID, s.Step),
			Properties: map[string]interface{}{
				"unit":    s.UnitID,
				"name":    s.Name,
				"subtype": s.Subtype,
				"step":    s.Step,
				"time":    s.Time.UTC().Format(time.RFC3339),
			},
		})
	}
	return fc, nil
}

// Write marshals the feature collection to path.
func (r *Recorder) Write(path, crs string) error {
	fc, err := r.FeatureCollection(crs)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode tracks: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tracks: %w", err)
	}
	return nil
}

// maxMercatorLat is the latitude at which Web Mercator becomes square.
const maxMercatorLat = 85.05112877980659

func projection(crs string) (func(lon, lat float64) (float64, float64, error), error) {
	switch strings.ToUpper(strings.TrimSpace(crs)) {
	case "", CRSGeographic:
		return func(lon, lat float64) (float64, float64, error) { return lon, lat, nil }, nil
	case CRSWebMercator:
		f := wgs84.EPSG().Transform(4326, 3857)
		return func(lon, lat float64) (float64, float64, error) {
			if math.Abs(lat) > maxMercatorLat {
				return 0, 0, fmt.Errorf("latitude %g is outside the %s range", lat, CRSWebMercator)
			}
			x, y, _ := f(lon, lat, 0)
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				return 0, 0, fmt.Errorf("projecting (%g, %g) to %s gave a non-finite point", lon, lat, CRSWebMercator)
			}
			return x, y, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported track CRS %q", crs)
	}
}
