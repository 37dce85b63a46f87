package running

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock supplies wall time to a stream.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options tunes a Stream. Zero values pick the defaults.
type Options struct {
	// PaceWindow is the number of recent segments averaged into pace and cadence.
	PaceWindow int
	// Buffer bounds snapshots waiting for a slow consumer; the oldest is dropped past it.
	Buffer int
	// Tick re-emits the current aggregate at this interval while running; zero disables it.
	Tick   time.Duration
	Clock  Clock
	Logger *zap.Logger
}

const (
	defaultPaceWindow = 5
	defaultBuffer     = 64
)

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdStop
)

type command struct {
	kind  commandKind
	reply chan struct{}
}

// Stream owns one running session: its lifecycle state and the ordered
// snapshot sequence derived from a coordinate source. A Stream runs at most
// once; after Stopped a new Stream is required.
type Stream struct {
	source CoordinateSource
	motion MotionSource
	opts   Options
	clock  Clock
	logger *zap.Logger

	// control serializes lifecycle calls; held across the round trip to the loop.
	control sync.Mutex

	mu     sync.RWMutex
	state  State
	err    error
	latest *Snapshot

	cmds chan command
	done chan struct{}
}

// NewStream builds an idle stream. motion may be nil, in which case cadence
// stays zero.
func NewStream(source CoordinateSource, motion MotionSource, opts Options) *Stream {
	if opts.PaceWindow <= 0 {
		opts.PaceWindow = defaultPaceWindow
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		source: source,
		motion: motion,
		opts:   opts,
		clock:  clock,
		logger: logger,
		state:  Idle,
	}
}

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error that ended the session, nil while active or after a
// graceful stop.
func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot returns the most recently computed snapshot.
func (s *Stream) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

// StartRun subscribes to the sensors and returns the snapshot channel. The
// channel closes when the run stops, when ctx is cancelled, or on a terminal
// sensor error; check Err after it closes.
func (s *Stream) StartRun(ctx context.Context) (<-chan Snapshot, error) {
	s.control.Lock()
	defer s.control.Unlock()

	switch s.State() {
	case Running, Paused:
		return nil, ErrAlreadyRunning
	case Stopped:
		return nil, ErrInvalidState
	}

	if !s.source.HasLocationPermission() {
		return nil, ErrLocationNotAuthorized
	}
	if s.motion != nil && !s.motion.HasMotionPermission() {
		return nil, ErrMotionNotAuthorized
	}

	runCtx, cancel := context.WithCancel(ctx)
	coords, errs, err := s.source.StartTracking(runCtx)
	if err != nil {
		cancel()
		return nil, classify(err)
	}

	var steps <-chan MotionSample
	if s.motion != nil {
		steps, err = s.motion.StartMotionUpdates(runCtx)
		if err != nil {
			s.source.StopTracking()
			cancel()
			return nil, classify(err)
		}
	}

	out := make(chan Snapshot)
	l := &loop{
		stream:  s,
		cancel:  cancel,
		agg:     newAggregator(s.opts.PaceWindow),
		out:     out,
		coords:  coords,
		errs:    errs,
		steps:   steps,
		running: true,
		since:   s.clock.Now(),
	}
	s.cmds = make(chan command)
	s.done = make(chan struct{})
	s.setState(Running)

	s.logger.Info("run started")
	go l.run(runCtx)
	return out, nil
}

// Pause halts aggregation and emission. Pausing a paused run is a no-op.
func (s *Stream) Pause() error {
	s.control.Lock()
	defer s.control.Unlock()

	switch s.State() {
	case Paused:
		return nil
	case Running:
	default:
		return ErrInvalidState
	}
	if !s.send(cmdPause) {
		return ErrInvalidState
	}
	s.logger.Info("run paused")
	return nil
}

// Resume continues a paused run without resetting its totals.
func (s *Stream) Resume() error {
	s.control.Lock()
	defer s.control.Unlock()

	if s.State() != Paused {
		return ErrInvalidState
	}
	if !s.send(cmdResume) {
		return ErrInvalidState
	}
	s.logger.Info("run resumed")
	return nil
}

// StopRun ends the session. The sensor subscription is released before it
// returns. Stopping an idle stream retires it without touching the sensors.
func (s *Stream) StopRun() {
	s.control.Lock()
	defer s.control.Unlock()

	switch s.State() {
	case Stopped:
		return
	case Idle:
		s.setState(Stopped)
		return
	}
	s.send(cmdStop)
	s.logger.Info("run stopped")
}

// send hands a command to the loop and waits until it has been applied. It
// reports false when the loop had already exited.
func (s *Stream) send(kind commandKind) bool {
	cmd := command{kind: kind, reply: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return false
	}
	<-cmd.reply
	return true
}

func (s *Stream) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Runtime(err)
}

// loop is the single writer of a session's aggregate.
type loop struct {
	stream *Stream
	cancel context.CancelFunc
	agg    *aggregator
	out    chan Snapshot
	queue  []Snapshot

	coords <-chan Coordinate
	errs   <-chan error
	steps  <-chan MotionSample

	running     bool
	since       time.Time
	accumulated time.Duration
}

func (l *loop) run(ctx context.Context) {
	s := l.stream
	defer close(s.done)

	var tick <-chan time.Time
	if s.opts.Tick > 0 {
		ticker := time.NewTicker(s.opts.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var send chan<- Snapshot
		var next Snapshot
		if l.running && len(l.queue) > 0 {
			send = l.out
			next = l.queue[0]
		}

		select {
		case cmd := <-s.cmds:
			stop := l.apply(cmd.kind)
			close(cmd.reply)
			if stop {
				return
			}
		case c, ok := <-l.coords:
			if !ok {
				if ctx.Err() != nil {
					l.finish(nil)
				} else {
					l.finish(Runtime(errSourceClosed))
				}
				return
			}
			if l.running {
				at := l.elapsed()
				l.agg.addCoordinate(c, at)
				snap := l.agg.snapshot(at)
				snap.Fix = true
				l.enqueue(snap)
			}
		case m, ok := <-l.steps:
			if !ok {
				// cadence freezes; position tracking goes on
				l.steps = nil
				continue
			}
			if l.running {
				l.agg.addMotion(m, l.elapsed())
			}
		case err, ok := <-l.errs:
			if !ok {
				l.errs = nil
				continue
			}
			if err == nil {
				continue
			}
			// tagged source errors still end the run as runtime, keeping the tag as cause
			l.finish(&Error{Kind: KindRuntime, Cause: err})
			return
		case <-tick:
			if l.running {
				l.enqueue(l.agg.snapshot(l.elapsed()))
			}
		case send <- next:
			l.queue = l.queue[1:]
		case <-ctx.Done():
			l.finish(nil)
			return
		}
	}
}

// apply runs a lifecycle command and reports whether the loop must exit.
func (l *loop) apply(kind commandKind) bool {
	s := l.stream
	switch kind {
	case cmdPause:
		if l.running {
			l.accumulated += s.clock.Now().Sub(l.since)
			l.running = false
			l.queue = nil
			l.agg.reanchor()
			s.setState(Paused)
		}
	case cmdResume:
		if !l.running {
			l.since = s.clock.Now()
			l.running = true
			s.setState(Running)
		}
	case cmdStop:
		l.finish(nil)
		return true
	}
	return false
}

func (l *loop) elapsed() time.Duration {
	if !l.running {
		return l.accumulated
	}
	return l.accumulated + l.stream.clock.Now().Sub(l.since)
}

func (l *loop) enqueue(snap Snapshot) {
	s := l.stream
	s.mu.Lock()
	latest := snap
	s.latest = &latest
	s.mu.Unlock()

	l.queue = append(l.queue, snap)
	if len(l.queue) > s.opts.Buffer {
		s.logger.Debug("snapshot consumer lagging, dropping oldest",
			zap.Int64("seq", l.queue[0].Seq))
		l.queue = l.queue[1:]
	}
}

// finish releases the sensors, records the terminal error and closes the
// snapshot channel, in that order.
func (l *loop) finish(err error) {
	s := l.stream
	if l.running {
		l.accumulated += s.clock.Now().Sub(l.since)
		l.running = false
	}
	l.queue = nil

	l.cancel()
	s.source.StopTracking()
	if s.motion != nil {
		s.motion.StopMotionUpdates()
	}

	s.mu.Lock()
	s.state = Stopped
	s.err = err
	s.mu.Unlock()
	close(l.out)

	if err != nil {
		s.logger.Warn("run ended by sensor failure", zap.Error(err))
	}
}
