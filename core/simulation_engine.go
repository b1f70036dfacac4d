package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/unit-simulator/internal/logging"
	"github.com/signalsfoundry/unit-simulator/internal/observability"
	"github.com/signalsfoundry/unit-simulator/kb"
	"github.com/signalsfoundry/unit-simulator/model"
	"github.com/signalsfoundry/unit-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/unit-simulator/core"

// TickListener observes unit state after construction (step 0) and after
// every completed step.
type TickListener func(step int, simTime time.Time, units []model.Unit)

// SimulationEngine advances every unit once per tick and reports the result.
type SimulationEngine struct {
	KB    *kb.KnowledgeBase
	Clock *timectrl.TimeController

	cfg      Config
	motions  map[string]MotionModel
	renderer Renderer
	log      logging.Logger
	metrics  *observability.SimCollector
	tracer   trace.Tracer

	tickListeners []TickListener

	// runCtx carries the run span into clock callbacks while Run is active.
	runCtx context.Context
}

// Option customises a SimulationEngine.
type Option func(*SimulationEngine)

// WithRenderer replaces the default stdout text renderer.
func WithRenderer(r Renderer) Option { return func(se *SimulationEngine) { se.renderer = r } }

// WithOutput renders text to w.
func WithOutput(w io.Writer) Option {
	return func(se *SimulationEngine) { se.renderer = NewTextRenderer(w, se.cfg.Interval) }
}

// WithLogger sets the structured logger. Without it the engine logs to the
// logger carried by the Run context.
func WithLogger(l logging.Logger) Option { return func(se *SimulationEngine) { se.log = l } }

// WithMetrics records run metrics on c.
func WithMetrics(c *observability.SimCollector) Option {
	return func(se *SimulationEngine) { se.metrics = c }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option { return func(se *SimulationEngine) { se.tracer = t } }

// NewSimulationEngine registers units in a fresh knowledge base and picks a
// motion model for each.
func NewSimulationEngine(cfg Config, units []*model.Unit, opts ...Option) (*SimulationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	se := &SimulationEngine{
		KB:      kb.NewKnowledgeBase(),
		Clock:   timectrl.NewTimeController(cfg.StartTime, cfg.Interval, cfg.Mode),
		cfg:     cfg,
		motions: make(map[string]MotionModel, len(units)),
	}
	for _, opt := range opts {
		opt(se)
	}
	if se.renderer == nil {
		se.renderer = NewTextRenderer(os.Stdout, cfg.Interval)
	}
	if se.tracer == nil {
		se.tracer = otel.Tracer(tracerName)
	}

	counts := make(map[string]int)
	for _, u := range units {
		m, err := NewMotionModel(u)
		if err != nil {
			return nil, err
		}
		if err := se.KB.AddUnit(u); err != nil {
			return nil, err
		}
		se.motions[u.ID] = m
		counts[u.Name()]++
	}
	se.metrics.SetUnitCounts(counts)

	se.KB.Subscribe(func(e kb.Event) {
		if e.Type != kb.EventUnitMoved {
			return
		}
		se.metrics.ObserveUnitMove(e.Unit.Category().String(), GreatCircleDistanceNM(e.Previous, e.Unit.Position))
	})
	se.Clock.AddListener(se.step)

	return se, nil
}

// RegisterTickListener adds an observer of per-step unit state.
func (se *SimulationEngine) RegisterTickListener(fn TickListener) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Run renders the initial state and then steps the simulation for the
// configured duration. The first failing step aborts the run.
func (se *SimulationEngine) Run(ctx context.Context) error {
	ctx, runID := logging.EnsureRunID(ctx)
	log := se.logger(ctx)
	steps := se.Clock.Steps(se.cfg.Duration)

	ctx, span := se.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("units", se.KB.Len()),
		attribute.Int("steps", steps),
		attribute.String("interval", se.cfg.Interval.String()),
	))
	defer span.End()

	log.Info(ctx, "simulation starting",
		logging.Int("units", se.KB.Len()),
		logging.Int("steps", steps),
		logging.Duration("interval", se.cfg.Interval),
		logging.String("mode", se.cfg.Mode.String()),
	)

	units := se.KB.ListUnits()
	if err := se.renderer.Initial(units); err != nil {
		return fail(ctx, log, span, fmt.Errorf("render initial positions: %w", err))
	}
	se.notify(0, se.cfg.StartTime, units)

	se.runCtx = ctx
	defer func() { se.runCtx = nil }()
	if err := se.Clock.Run(ctx, se.cfg.Duration); err != nil {
		return fail(ctx, log, span, err)
	}

	log.Info(ctx, "simulation complete", logging.Int("steps", steps))
	return nil
}

// step is the clock listener: update every unit in insertion order, then render.
func (se *SimulationEngine) step(n int, simTime time.Time) error {
	ctx := se.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := se.tracer.Start(ctx, "simulation.step", trace.WithAttributes(
		attribute.Int("step", n),
		attribute.String("sim_time", simTime.Format(time.RFC3339)),
	))
	defer span.End()

	began := time.Now()
	for _, u := range se.KB.ListUnits() {
		next := u
		if err := se.motions[u.ID].UpdatePosition(simTime, se.cfg.Interval, &next); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if err := se.KB.UpdateUnit(next); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	se.metrics.ObserveStep(time.Since(began))

	units := se.KB.ListUnits()
	elapsed := simTime.Sub(se.cfg.StartTime)
	if err := se.renderer.Step(elapsed, units); err != nil {
		return fmt.Errorf("render step %d: %w", n, err)
	}
	se.notify(n, simTime, units)

	se.logger(ctx).Debug(ctx, "step complete", logging.Int("step", n), logging.Duration("elapsed", elapsed))
	return nil
}

func (se *SimulationEngine) notify(step int, simTime time.Time, units []model.Unit) {
	for _, fn := range se.tickListeners {
		fn(step, simTime, units)
	}
}

func (se *SimulationEngine) logger(ctx context.Context) logging.Logger {
	if se.log != nil {
		return se.log
	}
	return logging.FromContext(ctx)
}

func fail(ctx context.Context, log logging.Logger, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error(ctx, "simulation aborted", logging.Err(err))
	return err
}
