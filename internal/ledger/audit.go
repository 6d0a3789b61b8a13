package ledger

import (
	"context"
	"fmt"
	"time"

	"busline/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Position compares a trip's stored counter with the seats its tickets hold
type Position struct {
	TripID    uuid.UUID `json:"trip_id"`
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
	Held      int       `json:"held"`
}

// Drift is how far the stored counter is from capacity - held. Zero is healthy.
func (p Position) Drift() int {
	return p.Remaining - (p.Capacity - p.Held)
}

// PositionSource reports positions for every trip
type PositionSource interface {
	Positions(ctx context.Context) ([]Position, error)
}

// AuditReport is the outcome of one audit pass
type AuditReport struct {
	CheckedAt time.Time  `json:"checked_at"`
	Trips     int        `json:"trips"`
	Drifts    []Position `json:"drifts"`
}

// Healthy reports whether every trip balanced
func (r *AuditReport) Healthy() bool {
	return len(r.Drifts) == 0
}

// Auditor recomputes the ledger invariant from tickets and raises an alarm
// for every trip whose counter disagrees.
type Auditor struct {
	source PositionSource
	log    *logger.Logger
	now    func() time.Time
}

func NewAuditor(source PositionSource, log *logger.Logger) *Auditor {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Auditor{source: source, log: log, now: time.Now}
}

func (a *Auditor) Run(ctx context.Context) (*AuditReport, error) {
	positions, err := a.source.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger positions: %w", err)
	}

	report := &AuditReport{CheckedAt: a.now().UTC(), Trips: len(positions)}
	for _, p := range positions {
		if p.Drift() == 0 && p.Remaining >= 0 && p.Remaining <= p.Capacity {
			continue
		}
		report.Drifts = append(report.Drifts, p)
		a.log.LogLedgerAlarm(ctx, p.TripID.String(), ErrLedgerInconsistency, map[string]interface{}{
			"capacity":  p.Capacity,
			"remaining": p.Remaining,
			"held":      p.Held,
			"drift":     p.Drift(),
		})
	}

	return report, nil
}

// GormPositions derives positions from the trips and tickets tables.
// Completed tickets still occupy their seats.
type GormPositions struct {
	db *gorm.DB
}

func NewGormPositions(db *gorm.DB) *GormPositions {
	return &GormPositions{db: db}
}

func (g *GormPositions) Positions(ctx context.Context) ([]Position, error) {
	var rows []Position
	err := g.db.WithContext(ctx).Raw(`
		SELECT t.id AS trip_id,
		       t.capacity AS capacity,
		       t.remaining_capacity AS remaining,
		       COALESCE(SUM(k.seat_count) FILTER (WHERE k.status IN ('confirmed', 'completed')), 0) AS held
		FROM trips t
		LEFT JOIN tickets k ON k.trip_id = t.id
		GROUP BY t.id, t.capacity, t.remaining_capacity
		ORDER BY t.id`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
