package running

import (
	"context"

	"go.uber.org/zap"
)

// Runner is the lifecycle surface of a session stream.
type Runner interface {
	StartRun(ctx context.Context) (<-chan Snapshot, error)
	Pause() error
	Resume() error
	StopRun()
	State() State
}

var _ Runner = (*Stream)(nil)

// Worker is the controller-facing façade over a Runner. It forwards every
// call and logs failed transitions.
type Worker struct {
	runner Runner
	logger *zap.Logger
}

func NewWorker(runner Runner, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{runner: runner, logger: logger}
}

func (w *Worker) StartRun(ctx context.Context) (<-chan Snapshot, error) {
	snapshots, err := w.runner.StartRun(ctx)
	if err != nil {
		w.logFailure("start", err)
		return nil, err
	}
	return snapshots, nil
}

func (w *Worker) Pause() error {
	if err := w.runner.Pause(); err != nil {
		w.logFailure("pause", err)
		return err
	}
	return nil
}

func (w *Worker) Resume() error {
	if err := w.runner.Resume(); err != nil {
		w.logFailure("resume", err)
		return err
	}
	return nil
}

func (w *Worker) StopRun() {
	w.runner.StopRun()
}

func (w *Worker) State() State {
	return w.runner.State()
}

func (w *Worker) logFailure(op string, err error) {
	kind, _ := KindOf(err)
	w.logger.Warn("run transition rejected",
		zap.String("op", op),
		zap.String("state", w.runner.State().String()),
		zap.String("kind", kind.String()),
		zap.Error(err))
}
