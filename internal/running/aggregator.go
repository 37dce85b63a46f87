package running

import (
	"time"

	"backend-runmate/internal/shared/geo"
)

type segment struct {
	meters  float64
	elapsed time.Duration
}

type stepSegment struct {
	steps   int
	elapsed time.Duration
}

// aggregator folds samples into running totals. Times are positions on the
// session's running clock, which excludes paused intervals. Not safe for
// concurrent use; the stream loop is its only caller.
type aggregator struct {
	window int

	distance float64
	seq      int64
	latest   *Coordinate

	anchor   *Coordinate
	anchorAt time.Duration
	segments []segment

	stepAnchor   *MotionSample
	stepAnchorAt time.Duration
	steps        []stepSegment
}

func newAggregator(window int) *aggregator {
	if window < 1 {
		window = 1
	}
	return &aggregator{window: window}
}

func (a *aggregator) addCoordinate(c Coordinate, at time.Duration) {
	latest := c
	a.latest = &latest

	if a.anchor != nil {
		meters := geo.HaversineMeters(a.anchor.Latitude, a.anchor.Longitude, c.Latitude, c.Longitude)
		a.distance += meters
		a.segments = appendWindow(a.segments, segment{meters: meters, elapsed: at - a.anchorAt}, a.window)
	}
	a.anchor = &latest
	a.anchorAt = at
}

func (a *aggregator) addMotion(m MotionSample, at time.Duration) {
	if a.stepAnchor != nil {
		delta := m.Steps - a.stepAnchor.Steps
		if delta < 0 {
			// pedometer reset; restart from this sample
			delta = 0
		}
		a.steps = appendWindow(a.steps, stepSegment{steps: delta, elapsed: at - a.stepAnchorAt}, a.window)
	}
	sample := m
	a.stepAnchor = &sample
	a.stepAnchorAt = at
}

// reanchor forgets the previous fix and step count so nothing is counted
// across a pause.
func (a *aggregator) reanchor() {
	a.anchor = nil
	a.stepAnchor = nil
}

func (a *aggregator) pace() time.Duration {
	var meters float64
	var elapsed time.Duration
	for _, s := range a.segments {
		meters += s.meters
		elapsed += s.elapsed
	}
	if meters > 0 && elapsed > 0 {
		return time.Duration(float64(elapsed) * 1000 / meters)
	}
	if a.latest != nil {
		return a.latest.Pace
	}
	return 0
}

func (a *aggregator) cadence() float64 {
	var steps int
	var elapsed time.Duration
	for _, s := range a.steps {
		steps += s.steps
		elapsed += s.elapsed
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(steps) / elapsed.Minutes()
}

func (a *aggregator) snapshot(duration time.Duration) Snapshot {
	a.seq++
	snap := Snapshot{
		Seq:       a.seq,
		DistanceM: a.distance,
		Pace:      a.pace(),
		Duration:  duration,
		Cadence:   a.cadence(),
	}
	if a.latest != nil {
		c := *a.latest
		snap.Coordinate = &c
	}
	return snap
}

func appendWindow[T any](items []T, item T, limit int) []T {
	items = append(items, item)
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}
