package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimCollector bundles Prometheus metrics for a simulation run.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Steps         prometheus.Counter
	StepDurations prometheus.Histogram
	UnitUpdates   *prometheus.CounterVec
	DistanceNM    *prometheus.CounterVec
	Units         *prometheus.GaugeVec
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Total number of completed simulation steps.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock time spent updating all units in one step.",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	updates, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_unit_updates_total",
		Help: "Total number of position updates, labeled by unit category.",
	}, []string{"category"}), "sim_unit_updates_total")
	if err != nil {
		return nil, err
	}

	distance, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_distance_nautical_miles_total",
		Help: "Great-circle distance covered by units, labeled by unit category.",
	}, []string{"category"}), "sim_distance_nautical_miles_total")
	if err != nil {
		return nil, err
	}

	units, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_units",
		Help: "Current number of tracked units, labeled by unit category.",
	}, []string{"category"}), "sim_units")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		Steps:         steps,
		StepDurations: durations,
		UnitUpdates:   updates,
		DistanceNM:    distance,
		Units:         units,
	}, nil
}

// ObserveStep records a completed step and how long it took.
func (c *SimCollector) ObserveStep(d time.Duration) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.StepDurations.Observe(d.Seconds())
}

// ObserveUnitMove records one position update for a unit of the given
// category.
func (c *SimCollector) ObserveUnitMove(category string, distanceNM float64) {
	if c == nil {
		return
	}
	c.UnitUpdates.WithLabelValues(category).Inc()
	if distanceNM > 0 {
		c.DistanceNM.WithLabelValues(category).Add(distanceNM)
	}
}

// SetUnitCounts sets the per-category unit gauges.
func (c *SimCollector) SetUnitCounts(counts map[string]int) {
	if c == nil {
		return
	}
	c.Units.Reset()
	for category, n := range counts {
		c.Units.WithLabelValues(category).Set(float64(n))
	}
}

// WriteTextfile writes every metric in the collector's registry to path in
// the Prometheus text exposition format.
func (c *SimCollector) WriteTextfile(path string) error {
	if c == nil {
		return errors.New("metrics collector is not configured")
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// register adds collector to reg, reusing an existing collector of the same
// type when one is already registered under name.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
