package notification

import (
	"context"
	"log/slog"
	"time"
)

// Worker flushes the digest queue on a fixed interval. It runs either
// inside the API process or as the standalone worker command; both share
// the queue's flush lock, so running several flushers is safe.
type Worker struct {
	queue    *Queue
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewWorker(queue *Queue, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return "notification-digest"
}

// Start runs the flush loop until Stop is called or the context ends.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("digest worker started", "interval", w.interval.String())

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("digest worker stopping, context done")
				return
			case <-w.stop:
				w.logger.Info("digest worker stopping")
				return
			case <-ticker.C:
				if err := w.queue.Flush(ctx); err != nil {
					w.logger.Error("scheduled digest flush failed", "error", err)
				}
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
