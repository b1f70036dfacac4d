package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/signalsfoundry/unit-simulator/model"
)

const degTolerance = 1e-4

func arcDeg(distanceNM float64) float64 {
	return distanceNM * NauticalMileKm / EarthRadiusKm * 180 / math.Pi
}

func assertNear(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.9f, want %.9f (±%g)", what, got, want, tol)
	}
}

func TestDestination_CardinalCourses(t *testing.T) {
	start := model.Position{Lat: 0, Lon: 0}
	d := arcDeg(60)

	cases := []struct {
		course float64
		want   model.Position
	}{
		{0, model.Position{Lat: d, Lon: 0}},
		{90, model.Position{Lat: 0, Lon: d}},
		{180, model.Position{Lat: -d, Lon: 0}},
		{270, model.Position{Lat: 0, Lon: -d}},
	}
	for _, tc := range cases {
		got := Destination(start, 60, tc.course)
		assertNear(t, "lat", got.Lat, tc.want.Lat, degTolerance)
		assertNear(t, "lon", got.Lon, tc.want.Lon, degTolerance)
	}
}

func TestDestination_NorthFromMidLatitude(t *testing.T) {
	// Due north travel changes latitude by the arc length alone.
	start := model.Position{Lat: 45, Lon: 10}
	got := Destination(start, 120, 0)
	assertNear(t, "lat", got.Lat, 45+arcDeg(120), degTolerance)
	assertNear(t, "lon", got.Lon, 10, degTolerance)
}

func TestAdvance_OneHourEastAtEquator(t *testing.T) {
	start := model.Position{Lat: 0, Lon: 0}
	got, err := Advance(start, model.Kinematics{SpeedKnots: 60, CourseDeg: 90}, time.Hour)
	if err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	// 60 nm is roughly one degree of arc at the equator.
	assertNear(t, "lon", got.Lon, 1, 1e-2)
	assertNear(t, "lat", got.Lat, 0, 1e-9)
}

func TestAdvance_ZeroIntervalIsIdempotent(t *testing.T) {
	pos := model.Position{Lat: 23.4567891, Lon: -45.6789012}
	kin := model.Kinematics{SpeedKnots: 500, CourseDeg: 37}
	for i := 0; i < 5; i++ {
		next, err := Advance(pos, kin, 0)
		if err != nil {
			t.Fatalf("Advance error: %v", err)
		}
		if next != pos {
			t.Fatalf("zero interval moved the unit: %+v -> %+v", pos, next)
		}
		pos = next
	}
}

func TestAdvance_ZeroSpeedAnyCourse(t *testing.T) {
	pos := model.Position{Lat: -33.9, Lon: 151.2}
	for course := 0.0; course < 360; course += 45 {
		got, err := Advance(pos, model.Kinematics{SpeedKnots: 0, CourseDeg: course}, 6*time.Hour)
		if err != nil {
			t.Fatalf("Advance error: %v", err)
		}
		if got != pos {
			t.Fatalf("course %v: stationary unit moved to %+v", course, got)
		}
	}
}

func TestAdvance_RejectsNegativeInputs(t *testing.T) {
	pos := model.Position{}
	_, err := Advance(pos, model.Kinematics{SpeedKnots: -1}, time.Minute)
	if !errors.Is(err, model.ErrInvalidKinematics) {
		t.Fatalf("negative speed: got %v, want ErrInvalidKinematics", err)
	}
	_, err = Advance(pos, model.Kinematics{SpeedKnots: 1}, -time.Minute)
	var kinErr *model.InvalidKinematicsError
	if !errors.As(err, &kinErr) || kinErr.Field != "interval" {
		t.Fatalf("negative interval: got %v, want InvalidKinematicsError on interval", err)
	}
}

func TestDestination_AntimeridianWrap(t *testing.T) {
	start := model.Position{Lat: 0, Lon: 179.9}
	got := Destination(start, 60, 90)
	if got.Lon < -180 || got.Lon > 180 {
		t.Fatalf("longitude %v outside [-180, 180]", got.Lon)
	}
	assertNear(t, "lon", got.Lon, 179.9+arcDeg(60)-360, degTolerance)
	assertNear(t, "lat", got.Lat, 0, 1e-9)
}

func TestDestination_PoleCrossing(t *testing.T) {
	// Two degrees of arc north from 89N passes over the pole and lands at
	// 89N on the opposite meridian.
	start := model.Position{Lat: 89, Lon: 0}
	nm := 2 * EarthRadiusKm / NauticalMileKm * math.Pi / 180
	got := Destination(start, nm, 0)

	if got.Lat < -90 || got.Lat > 90 {
		t.Fatalf("latitude %v outside [-90, 90]", got.Lat)
	}
	assertNear(t, "lat", got.Lat, 89, degTolerance)
	assertNear(t, "|lon|", math.Abs(got.Lon), 180, degTolerance)
}

func TestDestination_CourseNormalization(t *testing.T) {
	start := model.Position{Lat: 10, Lon: 20}
	a := Destination(start, 100, 450)
	b := Destination(start, 100, 90)
	c := Destination(start, 100, -270)
	assertNear(t, "lat(450)", a.Lat, b.Lat, 1e-9)
	assertNear(t, "lon(450)", a.Lon, b.Lon, 1e-9)
	assertNear(t, "lat(-270)", c.Lat, b.Lat, 1e-9)
	assertNear(t, "lon(-270)", c.Lon, b.Lon, 1e-9)
}

func TestWrapLongitude(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: -180,
		181:  -179,
		-181: 179,
		540:  180 - 360,
		725:  5,
	}
	for in, want := range cases {
		assertNear(t, "WrapLongitude", WrapLongitude(in), want, 1e-9)
	}
}

func TestGreatCircleDistanceNM(t *testing.T) {
	if got := GreatCircleDistanceNM(model.Position{Lat: 1, Lon: 1}, model.Position{Lat: 1, Lon: 1}); got != 0 {
		t.Fatalf("distance to self = %v, want 0", got)
	}
	// One degree of longitude at the equator on the IAU 1976 ellipsoid.
	got := GreatCircleDistanceNM(model.Position{Lat: 0, Lon: 0}, model.Position{Lat: 0, Lon: 1})
	assertNear(t, "distance", got, 60.1, 0.5)
}

func TestRandomPosition_WithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	boxes := []model.BoundingBox{
		{MinLon: 68, MinLat: 8, MaxLon: 97.2, MaxLat: 37.5},
		{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90},
		{MinLon: 10, MinLat: 10, MaxLon: 10, MaxLat: 10},
		{MinLon: -5, MinLat: 60, MaxLon: 5, MaxLat: 89.9},
	}
	for _, box := range boxes {
		for i := 0; i < 1000; i++ {
			p, err := RandomPosition(rng, box)
			if err != nil {
				t.Fatalf("RandomPosition(%+v) error: %v", box, err)
			}
			if !box.Contains(p) {
				t.Fatalf("RandomPosition(%+v) = %+v outside box", box, p)
			}
		}
	}
}

func TestRandomPosition_Reproducible(t *testing.T) {
	box := model.BoundingBox{MinLon: 68, MinLat: 8, MaxLon: 97.2, MaxLat: 37.5}
	a, _ := RandomPosition(rand.New(rand.NewPCG(1, 2)), box)
	b, _ := RandomPosition(rand.New(rand.NewPCG(1, 2)), box)
	if a != b {
		t.Fatalf("same seed produced %+v and %+v", a, b)
	}
}

func TestRandomPosition_InvalidBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := RandomPosition(rng, model.BoundingBox{MinLon: 10, MinLat: 0, MaxLon: 0, MaxLat: 10})
	var boundsErr *model.InvalidBoundsError
	if !errors.As(err, &boundsErr) {
		t.Fatalf("got %v, want *InvalidBoundsError", err)
	}
}
