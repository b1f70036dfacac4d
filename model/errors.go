package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBounds matches any *InvalidBoundsError via errors.Is.
	ErrInvalidBounds = errors.New("invalid bounding box")
	// ErrInvalidKinematics matches any *InvalidKinematicsError via errors.Is.
	ErrInvalidKinematics = errors.New("invalid kinematics")
	// ErrInvalidCoordinate matches any *InvalidCoordinateError via errors.Is.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// InvalidBoundsError is returned for inverted or out-of-range bounding boxes.
type InvalidBoundsError struct {
	Box    BoundingBox
	Reason string
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("invalid bounding box [%g, %g, %g, %g]: %s",
		e.Box.MinLon, e.Box.MinLat, e.Box.MaxLon, e.Box.MaxLat, e.Reason)
}

func (e *InvalidBoundsError) Is(target error) bool { return target == ErrInvalidBounds }

// InvalidKinematicsError is returned for negative or non-finite speeds,
// courses and intervals.
type InvalidKinematicsError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidKinematicsError) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidKinematicsError) Is(target error) bool { return target == ErrInvalidKinematics }

// InvalidCoordinateError is returned for a latitude or longitude outside
// geographic range.
type InvalidCoordinateError struct {
	Field string // "latitude" or "longitude"
	Value float64
}

func (e *InvalidCoordinateError) Error() string {
	limit := 90
	if e.Field == "longitude" {
		limit = 180
	}
	return fmt.Sprintf("invalid %s %g: must be within [-%d, %d]", e.Field, e.Value, limit, limit)
}

func (e *InvalidCoordinateError) Is(target error) bool { return target == ErrInvalidCoordinate }
