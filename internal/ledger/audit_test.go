package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"busline/pkg/logger"

	"github.com/google/uuid"
)

type fakePositions struct {
	positions []Position
	err       error
}

func (f *fakePositions) Positions(context.Context) ([]Position, error) {
	return f.positions, f.err
}

func TestAuditorFlagsDrift(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, true, false)

	bad := uuid.New()
	src := &fakePositions{positions: []Position{
		{TripID: uuid.New(), Capacity: 40, Remaining: 33, Held: 7},
		{TripID: bad, Capacity: 40, Remaining: 35, Held: 7},
	}}

	report, err := NewAuditor(src, log).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Trips != 2 || report.Healthy() {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Drifts) != 1 || report.Drifts[0].TripID != bad || report.Drifts[0].Drift() != 2 {
		t.Fatalf("drifts = %+v", report.Drifts)
	}
	if !strings.Contains(buf.String(), bad.String()) || !strings.Contains(buf.String(), `"alarm":true`) {
		t.Fatalf("alarm not logged: %s", buf.String())
	}
}

func TestAuditorSourceError(t *testing.T) {
	src := &fakePositions{err: errors.New("boom")}
	if _, err := NewAuditor(src, logger.Discard()).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuditJobKeepsLastReport(t *testing.T) {
	src := &fakePositions{positions: []Position{{TripID: uuid.New(), Capacity: 5, Remaining: 5}}}
	job := NewAuditJob(NewAuditor(src, logger.Discard()), time.Hour, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.Start(ctx)
	defer job.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for job.LastReport() == nil {
		if time.Now().After(deadline) {
			t.Fatal("audit job never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if status := job.Status(); status["trips"] != 1 {
		t.Fatalf("status = %+v", status)
	}
}
