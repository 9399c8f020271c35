package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/repository"
)

// DiagnosticsWorker retries the anomaly pass for runs whose diagnostics
// failed, so no run is left permanently incomplete. Retrying is safe because
// the pass is idempotent on its duplicate-skip keys.
type DiagnosticsWorker interface {
	Enqueue(runID uuid.UUID)
	Shutdown()
}

type diagnosticsWorker struct {
	engine     AnomalyEngine
	repo       repository.RunRepository
	log        *slog.Logger
	retryEvery time.Duration

	queue chan uuid.UUID
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDiagnosticsWorker starts the background retry loop.
func NewDiagnosticsWorker(engine AnomalyEngine, repo repository.RunRepository, retryEvery time.Duration, log *slog.Logger) *diagnosticsWorker {
	w := &diagnosticsWorker{
		engine:     engine,
		repo:       repo,
		log:        log,
		retryEvery: retryEvery,
		queue:      make(chan uuid.UUID, 64),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Enqueue registers a run for retry. Drops the run id rather than blocking
// when the queue is full or the worker has shut down; the run stays marked
// failed and can be retried through the API.
func (w *diagnosticsWorker) Enqueue(runID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.log.Warn("diagnostics worker stopped, dropping", slog.String("run_id", runID.String()))
		return
	}
	select {
	case w.queue <- runID:
	default:
		w.log.Warn("diagnostics retry queue full, dropping", slog.String("run_id", runID.String()))
	}
}

// Shutdown stops the loop after one final drain of the queue. Safe to call
// more than once; later Enqueue calls drop their run id.
func (w *diagnosticsWorker) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *diagnosticsWorker) loop() {
	defer w.wg.Done()

	pending := make(map[uuid.UUID]struct{})
	ticker := time.NewTicker(w.retryEvery)
	defer ticker.Stop()

	for {
		select {
		case runID, ok := <-w.queue:
			if !ok {
				w.retryAll(pending)
				return
			}
			pending[runID] = struct{}{}

		case <-ticker.C:
			w.retryAll(pending)
		}
	}
}

func (w *diagnosticsWorker) retryAll(pending map[uuid.UUID]struct{}) {
	for runID := range pending {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := w.engine.Run(ctx, runID)
		if err == nil {
			err = w.repo.SetDiagnosticsState(ctx, runID, model.DiagnosticsComplete)
		}
		cancel()

		if err != nil {
			w.log.Warn("diagnostics retry failed",
				slog.String("run_id", runID.String()),
				slog.String("err", err.Error()),
			)
			continue
		}
		w.log.Info("diagnostics retry succeeded", slog.String("run_id", runID.String()))
		delete(pending, runID)
	}
}
