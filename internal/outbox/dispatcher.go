package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go-cargo-portal/internal/logger"
	"go-cargo-portal/internal/models"

	"gorm.io/gorm"
)

// Dispatcher drains pending outbox jobs and publishes them to the broker.
// Jobs are retried up to maxAttempts across ticks; after that they are
// parked as failed for manual inspection. Publishing is at-least-once:
// the consumer side must tolerate a duplicate email.
type Dispatcher struct {
	db  *gorm.DB
	pub Publisher

	interval    time.Duration
	batchSize   int
	workerCount int
	maxAttempts int
}

func NewDispatcher(db *gorm.DB, pub Publisher) *Dispatcher {
	return &Dispatcher{
		db:          db,
		pub:         pub,
		interval:    15 * time.Second,
		batchSize:   50,
		workerCount: 4,
		maxAttempts: 5,
	}
}

// Start runs the dispatch loop until the context is cancelled. Blocking;
// run it in a goroutine from main.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	logger.L.Infow("outbox dispatcher started", "interval", d.interval)

	for {
		select {
		case <-ctx.Done():
			logger.L.Info("outbox dispatcher stopping")
			return
		case <-ticker.C:
			d.processBatch(ctx)
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) {
	var jobs []models.OutboxJob
	err := d.db.Where("status = ? AND attempts < ?", "pending", d.maxAttempts).
		Order("id ASC").
		Limit(d.batchSize).
		Find(&jobs).Error
	if err != nil {
		logger.L.Errorw("outbox fetch failed", "err", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	work := make(chan models.OutboxJob, len(jobs))
	var wg sync.WaitGroup
	for w := 0; w < d.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range work {
				d.dispatch(ctx, job)
			}
		}()
	}
	for _, job := range jobs {
		work <- job
	}
	close(work)
	wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, job models.OutboxJob) {
	// Without a broker we run degraded: the job is logged and marked done
	// so a missing RabbitMQ never wedges the queue.
	if d.pub == nil {
		logger.L.Infow("outbox job dropped (no broker configured)",
			"job_id", job.JobID, "kind", job.Kind)
		d.update(job, "done", "")
		return
	}

	msg, err := json.Marshal(map[string]string{
		"job_id":  job.JobID,
		"kind":    job.Kind,
		"payload": job.Payload,
	})
	if err != nil {
		d.update(job, "failed", err.Error())
		return
	}

	if err := d.pub.Publish(ctx, NotificationQueue, msg); err != nil {
		job.Attempts++
		status := "pending"
		if job.Attempts >= d.maxAttempts {
			status = "failed"
			logger.L.Errorw("outbox job exhausted retries",
				"job_id", job.JobID, "kind", job.Kind, "err", err)
		}
		d.update(job, status, err.Error())
		return
	}

	d.update(job, "done", "")
}

func (d *Dispatcher) update(job models.OutboxJob, status, lastErr string) {
	err := d.db.Model(&models.OutboxJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   job.Attempts,
			"last_error": lastErr,
		}).Error
	if err != nil {
		logger.L.Errorw("outbox status update failed", "job_id", job.JobID, "err", err)
	}
}
