package drain

import (
	"context"
	"fmt"
	"os"
	"time"

	"insightminer/pkg/logger"
	"insightminer/pkg/metrics"
	"insightminer/pkg/queue"
)

// Worker periodically drains outstanding processing flags from the download
// folders. It is started once at process startup; downloads enqueue flags at
// any time and the next pass picks them up.
type Worker struct {
	queue     queue.Queue
	folders   []string
	processor queue.Processor
	interval  time.Duration
	logger    logger.Logger
}

// NewWorker creates a drain worker scanning the given folders on a fixed
// interval
func NewWorker(q queue.Queue, folders []string, processor queue.Processor, interval time.Duration, log logger.Logger) *Worker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Worker{
		queue:     q,
		folders:   folders,
		processor: instrument(processor),
		interval:  interval,
		logger:    log,
	}
}

// Run blocks until the context is cancelled, draining once immediately and
// then on every tick
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoWithFields("drain worker started", map[string]interface{}{
		"folders":  w.folders,
		"interval": w.interval.String(),
	})

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("drain worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single drain pass over every folder and returns the
// number of items processed
func (w *Worker) RunOnce(ctx context.Context) int {
	total := 0
	for _, folder := range w.folders {
		count, err := w.queue.Drain(ctx, folder, w.processor)
		total += count
		if err != nil {
			w.logger.WarnWithFields("drain pass aborted", map[string]interface{}{
				"folder": folder,
				"error":  err.Error(),
			})
			return total
		}
	}

	if total > 0 {
		w.logger.InfoWithFields("drain pass complete", map[string]interface{}{
			"processed": total,
		})
	}

	return total
}

// instrument wraps a processor so every outcome lands in the queue metrics
func instrument(p queue.Processor) queue.Processor {
	return queue.ProcessorFunc(func(ctx context.Context, filePath string) error {
		err := p.Process(ctx, filePath)
		if err != nil {
			metrics.QueueProcessed.WithLabelValues(metrics.ResultFailure).Inc()
			return err
		}
		metrics.QueueProcessed.WithLabelValues(metrics.ResultSuccess).Inc()
		return nil
	})
}

// NewHandoffProcessor returns the default processor: it verifies the
// downloaded file is intact and records it as ready for the downstream
// analysis stage, which consumes the folders independently.
func NewHandoffProcessor(log logger.Logger) queue.Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return queue.ProcessorFunc(func(ctx context.Context, filePath string) error {
		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("downloaded file unreadable: %w", err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("downloaded file is empty: %s", filePath)
		}

		log.InfoWithFields("media ready for analysis", map[string]interface{}{
			"file":  filePath,
			"bytes": info.Size(),
		})
		return nil
	})
}
