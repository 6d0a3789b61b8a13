package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"busline/pkg/logger"
)

// AuditJob runs the auditor on a fixed interval in the background
type AuditJob struct {
	auditor  *Auditor
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	last *AuditReport
}

func NewAuditJob(auditor *Auditor, interval time.Duration, log *logger.Logger) *AuditJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &AuditJob{
		auditor:  auditor,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the audit loop. It returns immediately.
func (j *AuditJob) Start(ctx context.Context) {
	j.log.Info("Starting ledger audit job", slog.Duration("interval", j.interval))
	go j.loop(ctx)
}

// Stop ends the loop. Safe to call more than once.
func (j *AuditJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.log.Info("Ledger audit job stopped")
	})
}

func (j *AuditJob) loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on startup
	j.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.runOnce(ctx)
		case <-j.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *AuditJob) runOnce(ctx context.Context) {
	report, err := j.auditor.Run(ctx)
	if err != nil {
		j.log.Error("Ledger audit failed", slog.Any("error", err))
		return
	}

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	if report.Healthy() {
		j.log.Debug("Ledger audit passed", slog.Int("trips", report.Trips))
	}
}

// LastReport returns the most recent report, nil before the first run
func (j *AuditJob) LastReport() *AuditReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Status describes the job for the health endpoint
func (j *AuditJob) Status() map[string]interface{} {
	status := map[string]interface{}{
		"interval": j.interval.String(),
		"status":   "running",
	}
	if last := j.LastReport(); last != nil {
		status["last_checked_at"] = last.CheckedAt
		status["trips"] = last.Trips
		status["drifts"] = len(last.Drifts)
	}
	return status
}
