package sensor

import (
	"context"
	"errors"
	"sync"

	"backend-runmate/internal/running"
)

// ErrNotTracking is returned when a sample is pushed to a feed that has no
// active subscription.
var ErrNotTracking = errors.New("sensor feed is not tracking")

// Permissions mirrors the OS authorization state reported by the device.
type Permissions struct {
	Location bool `json:"location"`
	Motion   bool `json:"motion"`
}

// Feed is a push-driven sensor boundary: device samples arrive over the API
// and are handed to the run's stream. A Feed serves a single session.
type Feed struct {
	perms Permissions

	coords chan running.Coordinate
	steps  chan running.MotionSample
	errs   chan error
	done   chan struct{}

	mu       sync.Mutex
	tracking bool
	motionOn bool
	released bool
	releases int
}

func NewFeed(perms Permissions, buffer int) *Feed {
	if buffer < 0 {
		buffer = 0
	}
	return &Feed{
		perms:  perms,
		coords: make(chan running.Coordinate, buffer),
		steps:  make(chan running.MotionSample, buffer),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (f *Feed) HasLocationPermission() bool { return f.perms.Location }

func (f *Feed) HasMotionPermission() bool { return f.perms.Motion }

func (f *Feed) StartTracking(_ context.Context) (<-chan running.Coordinate, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released || f.tracking {
		return nil, nil, running.ErrSensorUnavailable
	}
	f.tracking = true
	return f.coords, f.errs, nil
}

// StopTracking releases the subscription. Only the first call counts.
func (f *Feed) StopTracking() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tracking {
		return
	}
	f.tracking = false
	f.released = true
	f.releases++
	close(f.done)
}

func (f *Feed) StartMotionUpdates(_ context.Context) (<-chan running.MotionSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released || f.motionOn {
		return nil, running.ErrSensorUnavailable
	}
	f.motionOn = true
	return f.steps, nil
}

func (f *Feed) StopMotionUpdates() {
	f.mu.Lock()
	f.motionOn = false
	f.mu.Unlock()
}

// Releases reports how many times the location subscription was released.
func (f *Feed) Releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

func (f *Feed) Tracking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking
}

// PushCoordinate delivers a fix, blocking while the buffer is full.
func (f *Feed) PushCoordinate(ctx context.Context, c running.Coordinate) error {
	if !f.Tracking() {
		return ErrNotTracking
	}
	select {
	case f.coords <- c:
		return nil
	case <-f.done:
		return ErrNotTracking
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) PushMotion(ctx context.Context, m running.MotionSample) error {
	f.mu.Lock()
	active := f.motionOn && f.tracking
	f.mu.Unlock()
	if !active {
		return ErrNotTracking
	}
	select {
	case f.steps <- m:
		return nil
	case <-f.done:
		return ErrNotTracking
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail reports a device-side sensor failure. Only the first failure is kept.
func (f *Feed) Fail(err error) error {
	if !f.Tracking() {
		return ErrNotTracking
	}
	select {
	case f.errs <- err:
	default:
	}
	return nil
}
