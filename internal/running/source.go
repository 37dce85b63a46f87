package running

import (
	"context"
	"errors"
)

// CoordinateSource is the location sensor boundary.
//
// StartTracking returns a channel of fixes and a channel that delivers at most
// one terminal sensor error. Failures reported before the subscription exists
// should use ErrLocationNotAuthorized or ErrSensorUnavailable.
type CoordinateSource interface {
	HasLocationPermission() bool
	StartTracking(ctx context.Context) (<-chan Coordinate, <-chan error, error)
	StopTracking()
}

// MotionSource is the pedometer boundary used for cadence.
type MotionSource interface {
	HasMotionPermission() bool
	StartMotionUpdates(ctx context.Context) (<-chan MotionSample, error)
	StopMotionUpdates()
}

var errSourceClosed = errors.New("coordinate source closed")
