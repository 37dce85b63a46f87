package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-runmate/internal/running"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPermissions(t *testing.T) {
	f := NewFeed(Permissions{Location: true}, 1)
	assert.True(t, f.HasLocationPermission())
	assert.False(t, f.HasMotionPermission())
}

func TestFeedPushBeforeStart(t *testing.T) {
	f := NewFeed(Permissions{Location: true, Motion: true}, 1)
	err := f.PushCoordinate(context.Background(), running.Coordinate{})
	assert.ErrorIs(t, err, ErrNotTracking)
	assert.ErrorIs(t, f.PushMotion(context.Background(), running.MotionSample{}), ErrNotTracking)
	assert.ErrorIs(t, f.Fail(errors.New("gps")), ErrNotTracking)
}

func TestFeedDeliversAndReleasesOnce(t *testing.T) {
	f := NewFeed(Permissions{Location: true}, 1)
	coords, errs, err := f.StartTracking(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.PushCoordinate(context.Background(), running.Coordinate{Latitude: 1}))
	got := <-coords
	assert.Equal(t, 1.0, got.Latitude)

	require.NoError(t, f.Fail(errors.New("gps lost")))
	require.NoError(t, f.Fail(errors.New("ignored")))
	assert.EqualError(t, <-errs, "gps lost")

	f.StopTracking()
	f.StopTracking()
	assert.Equal(t, 1, f.Releases())
	assert.ErrorIs(t, f.PushCoordinate(context.Background(), running.Coordinate{}), ErrNotTracking)

	_, _, err = f.StartTracking(context.Background())
	assert.ErrorIs(t, err, running.ErrSensorUnavailable)
}

func TestFeedPushUnblocksOnStop(t *testing.T) {
	f := NewFeed(Permissions{Location: true}, 0)
	_, _, err := f.StartTracking(context.Background())
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		result <- f.PushCoordinate(context.Background(), running.Coordinate{})
	}()

	time.Sleep(10 * time.Millisecond)
	f.StopTracking()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrNotTracking)
	case <-time.After(time.Second):
		t.Fatalf("push did not unblock")
	}
}

func TestFeedPushHonoursContext(t *testing.T) {
	f := NewFeed(Permissions{Location: true}, 0)
	_, _, err := f.StartTracking(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.PushCoordinate(ctx, running.Coordinate{}), context.DeadlineExceeded)
}

func TestFeedMotion(t *testing.T) {
	f := NewFeed(Permissions{Location: true, Motion: true}, 1)
	_, _, err := f.StartTracking(context.Background())
	require.NoError(t, err)
	steps, err := f.StartMotionUpdates(context.Background())
	require.NoError(t, err)

	_, err = f.StartMotionUpdates(context.Background())
	assert.ErrorIs(t, err, running.ErrSensorUnavailable)

	require.NoError(t, f.PushMotion(context.Background(), running.MotionSample{Steps: 12}))
	assert.Equal(t, 12, (<-steps).Steps)

	f.StopMotionUpdates()
	assert.ErrorIs(t, f.PushMotion(context.Background(), running.MotionSample{}), ErrNotTracking)
}
