package timectrl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time, so collaborators
// can depend on a clock abstraction rather than on the controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated Mode = iota
	// RealTime waits one wall-clock Tick between steps.
	RealTime
)

func (m Mode) String() string {
	if m == RealTime {
		return "realtime"
	}
	return "accelerated"
}

// ParseMode maps "accelerated" or "realtime" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accelerated":
		return Accelerated, nil
	case "realtime", "real-time":
		return RealTime, nil
	default:
		return Accelerated, fmt.Errorf("unknown time mode %q", s)
	}
}

// Listener is invoked once per step with the 1-based step number and the
// simulation time after the step. A non-nil error aborts the run.
type Listener func(step int, simTime time.Time) error

// TimeController drives simulation time and notifies registered listeners.
// It implements SimClock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// currentTime tracks the current simulation time. It is updated
	// as the controller advances time.
	currentTime time.Time

	listeners []Listener

	// wait blocks for one tick in RealTime mode; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		wait:        sleepContext,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime overrides the current simulation time.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every step.
func (tc *TimeController) AddListener(fn Listener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Steps returns how many whole ticks fit in duration.
func (tc *TimeController) Steps(duration time.Duration) int {
	if tc.Tick <= 0 || duration <= 0 {
		return 0
	}
	return int(duration / tc.Tick)
}

// Run resets simulation time to StartTime and steps synchronously until
// duration has elapsed, the context is cancelled, or a listener fails.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) error {
	if tc.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", tc.Tick)
	}

	tc.mu.Lock()
	simTime := tc.StartTime
	tc.currentTime = simTime
	listeners := append([]Listener(nil), tc.listeners...)
	tc.mu.Unlock()

	steps := tc.Steps(duration)
	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tc.Mode == RealTime {
			if err := tc.wait(ctx, tc.Tick); err != nil {
				return err
			}
		}

		simTime = simTime.Add(tc.Tick)
		tc.SetTime(simTime)

		for _, fn := range listeners {
			if err := fn(step, simTime); err != nil {
				return fmt.Errorf("step %d at %s: %w", step, simTime.Format(time.RFC3339), err)
			}
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
