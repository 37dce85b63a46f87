package runs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"backend-runmate/internal/running"
	"backend-runmate/internal/sensor"
	"backend-runmate/internal/tracking"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrRateLimited = errors.New("sensor sample rate exceeded")
)

// Recorder persists run sessions; tracking.Service satisfies it.
type Recorder interface {
	StartSession(ctx context.Context, userID string) (tracking.Session, error)
	RecordSnapshot(ctx context.Context, sessionID string, snap running.Snapshot) (tracking.Point, error)
	Finish(ctx context.Context, sessionID, status string) error
}

type Broadcaster interface {
	Broadcast(runID string, payload []byte)
}

type Config struct {
	PaceWindow int
	Buffer     int
	Tick       time.Duration
	FeedBuffer int
	RateLimit  float64
	RateBurst  int
}

// Run is one live session hosted by the registry.
type Run struct {
	ID        string
	UserID    string
	StartedAt time.Time

	feed    *sensor.Feed
	stream  *running.Stream
	worker  *running.Worker
	limiter *rate.Limiter
	done    chan struct{}
}

func (r *Run) State() running.State {
	return r.worker.State()
}

func (r *Run) View() View {
	snap, _ := r.stream.Snapshot()
	v := newView(r, r.State(), snap)
	if err := r.stream.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// Done is closed once the run has ended and its session was finalized.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Registry hosts the live runs of this instance. Each user has at most one
// active run; the last finished run of a user is kept for status queries
// until the user starts another.
type Registry struct {
	recorder Recorder
	hub      Broadcaster
	cfg      Config
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	runs    map[string]*Run
	byUser  map[string]string
	pending map[string]struct{}
}

func NewRegistry(recorder Recorder, hub Broadcaster, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeedBuffer <= 0 {
		cfg.FeedBuffer = 16
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		recorder: recorder,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		runs:     map[string]*Run{},
		byUser:   map[string]string{},
		pending:  map[string]struct{}{},
	}
}

// Start opens a session for the user and begins streaming. The user's slot is
// reserved while the session row is created so the registry lock is never held
// across the recorder.
func (r *Registry) Start(ctx context.Context, req StartRequest) (*Run, error) {
	if err := r.reserve(req.UserID); err != nil {
		return nil, err
	}

	run, snaps, logger, err := r.open(ctx, req)

	r.mu.Lock()
	delete(r.pending, req.UserID)
	if err == nil {
		r.runs[run.ID] = run
		r.byUser[run.UserID] = run.ID
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go r.consume(run, snaps, logger)
	return run, nil
}

func (r *Registry) reserve(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.pending[userID]; busy {
		return running.ErrAlreadyRunning
	}
	if prevID, ok := r.byUser[userID]; ok {
		prev := r.runs[prevID]
		if prev != nil && prev.State() != running.Stopped {
			return running.ErrAlreadyRunning
		}
		delete(r.runs, prevID)
		delete(r.byUser, userID)
	}
	r.pending[userID] = struct{}{}
	return nil
}

func (r *Registry) open(ctx context.Context, req StartRequest) (*Run, <-chan running.Snapshot, *zap.Logger, error) {
	runID := uuid.NewString()
	if r.recorder != nil {
		session, err := r.recorder.StartSession(ctx, req.UserID)
		if err != nil {
			return nil, nil, nil, oops.In("runs").With("user_id", req.UserID).Wrapf(err, "start session")
		}
		runID = session.ID
	}

	logger := r.logger.With(zap.String("run_id", runID), zap.String("user_id", req.UserID))
	feed := sensor.NewFeed(req.Permissions, r.cfg.FeedBuffer)
	var motion running.MotionSource
	if req.Cadence {
		motion = feed
	}
	stream := running.NewStream(feed, motion, running.Options{
		PaceWindow: r.cfg.PaceWindow,
		Buffer:     r.cfg.Buffer,
		Tick:       r.cfg.Tick,
		Logger:     logger,
	})
	run := &Run{
		ID:        runID,
		UserID:    req.UserID,
		StartedAt: time.Now(),
		feed:      feed,
		stream:    stream,
		worker:    running.NewWorker(stream, logger),
		limiter:   rate.NewLimiter(rate.Limit(r.cfg.RateLimit), r.cfg.RateBurst),
		done:      make(chan struct{}),
	}

	snaps, err := run.worker.StartRun(r.ctx)
	if err != nil {
		r.finish(run, tracking.StatusFailed)
		return nil, nil, nil, err
	}
	return run, snaps, logger, nil
}

func (r *Registry) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (r *Registry) Pause(id string) (*Run, error) {
	run, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return run, run.worker.Pause()
}

func (r *Registry) Resume(id string) (*Run, error) {
	run, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return run, run.worker.Resume()
}

// Stop ends the run and waits until its session has been finalized.
func (r *Registry) Stop(ctx context.Context, id string) (*Run, error) {
	run, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	run.worker.StopRun()
	select {
	case <-run.done:
	case <-ctx.Done():
		return run, ctx.Err()
	}
	return run, nil
}

func (r *Registry) PushCoordinates(ctx context.Context, id string, coords []running.Coordinate) error {
	run, err := r.Get(id)
	if err != nil {
		return err
	}
	if !run.limiter.AllowN(time.Now(), len(coords)) {
		return ErrRateLimited
	}
	for _, c := range coords {
		if err := run.feed.PushCoordinate(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) PushMotion(ctx context.Context, id string, sample running.MotionSample) error {
	run, err := r.Get(id)
	if err != nil {
		return err
	}
	if !run.limiter.Allow() {
		return ErrRateLimited
	}
	return run.feed.PushMotion(ctx, sample)
}

// ReportSensorError ends the run with a device-reported sensor failure.
func (r *Registry) ReportSensorError(ctx context.Context, id, message string) (*Run, error) {
	run, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if err := run.feed.Fail(errors.New(message)); err != nil {
		return run, err
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return run, ctx.Err()
	}
	return run, nil
}

// Shutdown stops every live run and waits for their sessions to be finalized.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	live := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		live = append(live, run)
	}
	r.mu.RUnlock()

	for _, run := range live {
		run.worker.StopRun()
	}
	r.cancel()

	for _, run := range live {
		select {
		case <-run.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Registry) consume(run *Run, snaps <-chan running.Snapshot, logger *zap.Logger) {
	for snap := range snaps {
		if r.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := r.recorder.RecordSnapshot(ctx, run.ID, snap); err != nil {
				logger.Error("persist snapshot failed", zap.Error(
					oops.In("runs").With("run_id", run.ID, "seq", snap.Seq).Wrapf(err, "record snapshot")))
			}
			cancel()
		}
		v := newView(run, running.Running, snap)
		v.Event = EventSnapshot
		r.broadcast(run.ID, v, logger)
	}

	status := tracking.StatusCompleted
	final := run.View()
	final.Event = EventEnded
	if run.stream.Err() != nil {
		status = tracking.StatusFailed
	}
	r.broadcast(run.ID, final, logger)
	r.finish(run, status)
	logger.Info("run finished", zap.String("status", status))
}

func (r *Registry) finish(run *Run, status string) {
	defer close(run.done)
	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.recorder.Finish(ctx, run.ID, status); err != nil {
		r.logger.Error("finish session failed", zap.Error(
			oops.In("runs").With("run_id", run.ID, "status", status).Wrapf(err, "finish session")))
	}
}

func (r *Registry) broadcast(runID string, v View, logger *zap.Logger) {
	if r.hub == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode run view failed", zap.Error(err))
		return
	}
	r.hub.Broadcast(runID, payload)
}
