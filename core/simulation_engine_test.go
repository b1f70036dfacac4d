package core

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/unit-simulator/catalog"
	"github.com/signalsfoundry/unit-simulator/internal/logging"
	"github.com/signalsfoundry/unit-simulator/internal/observability"
	"github.com/signalsfoundry/unit-simulator/model"
	"github.com/signalsfoundry/unit-simulator/timectrl"
)

var engineEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func engineConfig(units ...UnitSpec) Config {
	return Config{
		BoundingBox: DefaultBoundingBox,
		Interval:    10 * time.Minute,
		Duration:    time.Hour,
		StartTime:   engineEpoch,
		Mode:        timectrl.Accelerated,
		Units:       units,
	}
}

func buildForTest(t *testing.T, cfg Config) []*model.Unit {
	t.Helper()
	cat := catalog.New(map[string][]string{
		"Aircraft":  {"F-16"},
		"Ship":      {"Destroyer"},
		"Submarine": {"Kilo"},
		"Base":      {"Airbase"},
	})
	units, err := BuildUnits(cfg, cat, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("BuildUnits: %v", err)
	}
	return units
}

func TestSimulationEngineRendersConsoleReport(t *testing.T) {
	cfg := engineConfig(
		UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 60, CourseDeg: 90, Start: &model.Position{}},
		UnitSpec{ID: "base-1", Category: model.CategoryBase, Start: &model.Position{Lat: 10, Lon: 70}},
	)
	cfg.Duration = 20 * time.Minute

	var out bytes.Buffer
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithOutput(&out))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Initial Positions:\nShip (Destroyer) - Position:(Lat0.000000,Long0.000000), Speed: 60 knots, Course: 90°\n",
		"Base (Airbase) - Position:(Lat10.000000,Long70.000000), Speed: 0 knots, Course: 0°\n",
		"\nPositions at each 10-minute interval:\n",
		"\nAfter 10 minutes:\n",
		"\nAfter 20 minutes:\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "After 30 minutes") {
		t.Fatalf("rendered more steps than the duration allows:\n%s", text)
	}

	ship, _ := se.KB.GetUnit("ship-1")
	// 60 knots for 20 minutes is 20 nm, a third of a degree on the equator.
	if d := GreatCircleDistanceNM(model.Position{}, ship.Position); d < 19.5 || d > 20.5 {
		t.Fatalf("ship travelled %.3f nm, want ~20", d)
	}
	base, _ := se.KB.GetUnit("base-1")
	if base.Position != (model.Position{Lat: 10, Lon: 70}) {
		t.Fatalf("base moved to %v", base.Position)
	}
}

func TestSimulationEngineDefaultScenario(t *testing.T) {
	cfg := engineConfig(DefaultUnits()...)
	units := buildForTest(t, cfg)

	var out bytes.Buffer
	se, err := NewSimulationEngine(cfg, units, WithOutput(&out))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	var steps []int
	se.RegisterTickListener(func(step int, simTime time.Time, us []model.Unit) {
		steps = append(steps, step)
		if len(us) != len(units) {
			t.Errorf("step %d: got %d units, want %d", step, len(us), len(units))
		}
		if want := engineEpoch.Add(time.Duration(step) * cfg.Interval); !simTime.Equal(want) {
			t.Errorf("step %d: sim time %s, want %s", step, simTime, want)
		}
	})

	if err := se.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(steps) != 7 || steps[0] != 0 || steps[6] != 6 {
		t.Fatalf("tick listener steps = %v, want 0..6", steps)
	}
	if got := strings.Count(out.String(), "\nAfter "); got != 6 {
		t.Fatalf("rendered %d step sections, want 6", got)
	}

	ordered := se.KB.ListUnits()
	for i, spec := range cfg.Units {
		if ordered[i].ID != spec.ID {
			t.Fatalf("unit %d = %s, want %s", i, ordered[i].ID, spec.ID)
		}
	}
}

func TestSimulationEngineZeroDurationRendersInitialOnly(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	cfg.Duration = 0

	var out bytes.Buffer
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithOutput(&out))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out.String(), "After ") {
		t.Fatalf("unexpected step output:\n%s", out.String())
	}
}

type failingRenderer struct{ failStep bool }

func (r failingRenderer) Initial([]model.Unit) error { return nil }

func (r failingRenderer) Step(time.Duration, []model.Unit) error {
	if r.failStep {
		return errors.New("disk full")
	}
	return nil
}

func TestSimulationEngineAbortsOnRenderError(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithRenderer(failingRenderer{failStep: true}))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	err = se.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Run error = %v, want render failure", err)
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("error %q should name the failing step", err)
	}
}

func TestSimulationEngineRejectsUnknownMotion(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip})
	u := &model.Unit{ID: "ship-1", Position: model.Position{}}
	if _, err := NewSimulationEngine(cfg, []*model.Unit{u}); err == nil {
		t.Fatalf("expected error for unit without a variant")
	}
}

func TestSimulationEngineCancelledContext(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithRenderer(failingRenderer{}))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := se.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestSimulationEngineRecordsMetrics(t *testing.T) {
	cfg := engineConfig(
		UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 30, CourseDeg: 0, Start: &model.Position{}},
		UnitSpec{ID: "base-1", Category: model.CategoryBase, Start: &model.Position{Lat: 10, Lon: 70}},
	)
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithRenderer(failingRenderer{}), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := testutil.ToFloat64(metrics.Steps); got != 6 {
		t.Fatalf("steps = %v, want 6", got)
	}
	if got := testutil.ToFloat64(metrics.UnitUpdates.WithLabelValues("Ship")); got != 6 {
		t.Fatalf("ship updates = %v, want 6", got)
	}
	// 30 knots for one hour.
	if got := testutil.ToFloat64(metrics.DistanceNM.WithLabelValues("Ship")); got < 29.5 || got > 30.5 {
		t.Fatalf("ship distance = %v nm, want ~30", got)
	}
	if got := testutil.ToFloat64(metrics.DistanceNM.WithLabelValues("Base")); got != 0 {
		t.Fatalf("base distance = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.Units.WithLabelValues("Base")); got != 1 {
		t.Fatalf("base gauge = %v, want 1", got)
	}
}

func TestSimulationEngineEmitsSpans(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	cfg.Duration = 30 * time.Minute

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithRenderer(failingRenderer{}), WithTracer(tp.Tracer("test")))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var run sdktrace.ReadOnlySpan
	var steps []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		switch s.Name() {
		case "simulation.run":
			run = s
		case "simulation.step":
			steps = append(steps, s)
		}
	}
	if run == nil {
		t.Fatalf("no simulation.run span recorded")
	}
	if len(steps) != 3 {
		t.Fatalf("got %d step spans, want 3", len(steps))
	}
	for _, s := range steps {
		if s.Parent().SpanID() != run.SpanContext().SpanID() {
			t.Fatalf("step span %v is not a child of the run span", s.SpanContext().SpanID())
		}
	}
}

func TestSimulationEngineLogsToContextLogger(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	cfg.Duration = 10 * time.Minute
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg), WithRenderer(failingRenderer{}))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	var logs bytes.Buffer
	ctx := logging.ContextWithRunID(context.Background(), "run-ctx")
	ctx = logging.ContextWithLogger(ctx, logging.New(logging.Config{Level: "debug", Output: &logs}))
	if err := se.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := logs.String()
	for _, want := range []string{"simulation starting", "step complete", "simulation complete", "run_id=run-ctx"} {
		if !strings.Contains(out, want) {
			t.Fatalf("context logger missing %q:\n%s", want, out)
		}
	}
}

func TestSimulationEngineExplicitLoggerWins(t *testing.T) {
	cfg := engineConfig(UnitSpec{ID: "ship-1", Category: model.CategoryShip, SpeedKnots: 10})
	var explicit, fromCtx bytes.Buffer
	se, err := NewSimulationEngine(cfg, buildForTest(t, cfg),
		WithRenderer(failingRenderer{}),
		WithLogger(logging.New(logging.Config{Output: &explicit})))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	ctx := logging.ContextWithLogger(context.Background(), logging.New(logging.Config{Output: &fromCtx}))
	if err := se.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(explicit.String(), "simulation starting") {
		t.Fatalf("explicit logger unused:\n%s", explicit.String())
	}
	if fromCtx.Len() != 0 {
		t.Fatalf("context logger should be ignored when WithLogger is set:\n%s", fromCtx.String())
	}
}
