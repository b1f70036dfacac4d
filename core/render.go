package core

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/signalsfoundry/unit-simulator/model"
)

// Renderer writes unit state as text after construction and after each step.
type Renderer interface {
	Initial(units []model.Unit) error
	Step(elapsed time.Duration, units []model.Unit) error
}

// TextRenderer prints the console report: a header per section and one line
// per unit.
type TextRenderer struct {
	w        io.Writer
	interval time.Duration
}

// NewTextRenderer returns a renderer writing to w for steps of interval.
func NewTextRenderer(w io.Writer, interval time.Duration) *TextRenderer {
	return &TextRenderer{w: w, interval: interval}
}

// Initial prints the starting positions and the interval header.
func (r *TextRenderer) Initial(units []model.Unit) error {
	ew := &errWriter{w: r.w}
	fmt.Fprintln(ew, "Initial Positions:")
	writeUnits(ew, units)
	fmt.Fprintf(ew, "\nPositions at each %s-minute interval:\n",
		strconv.FormatFloat(r.interval.Minutes(), 'f', -1, 64))
	return ew.err
}

// Step prints the positions after elapsed simulation time.
func (r *TextRenderer) Step(elapsed time.Duration, units []model.Unit) error {
	ew := &errWriter{w: r.w}
	fmt.Fprintf(ew, "\nAfter %d minutes:\n", int(elapsed/time.Minute))
	writeUnits(ew, units)
	return ew.err
}

func writeUnits(w io.Writer, units []model.Unit) {
	for i := range units {
		fmt.Fprintln(w, units[i].String())
	}
}

// errWriter remembers the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
