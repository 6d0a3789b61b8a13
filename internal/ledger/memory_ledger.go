package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/moby/locker"
)

// MemoryLedger is the in-process ledger used by the memory store and tests.
// A Session holds the trip's key lock from its first touch until Commit or
// Rollback, which gives the same per-trip serialization a row lock gives.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*account
	locks    *locker.Locker
}

type account struct {
	capacity  int
	remaining int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[uuid.UUID]*account),
		locks:    locker.New(),
	}
}

// Open registers a trip's seat account. Reopening an existing trip resets it.
func (m *MemoryLedger) Open(tripID uuid.UUID, capacity, remaining int) error {
	if capacity < 0 || remaining < 0 || remaining > capacity {
		return fmt.Errorf("%w: capacity %d remaining %d", ErrInvalidAmount, capacity, remaining)
	}

	m.locks.Lock(tripID.String())
	defer m.locks.Unlock(tripID.String())

	m.mu.Lock()
	m.accounts[tripID] = &account{capacity: capacity, remaining: remaining}
	m.mu.Unlock()
	return nil
}

// Begin starts a session whose changes become visible on Commit
func (m *MemoryLedger) Begin() *Session {
	return &Session{
		ledger: m,
		held:   make(map[uuid.UUID]struct{}),
		staged: make(map[uuid.UUID]int),
	}
}

func (m *MemoryLedger) Debit(ctx context.Context, tripID uuid.UUID, seats int) error {
	return m.single(func(s *Session) error { return s.Debit(ctx, tripID, seats) })
}

func (m *MemoryLedger) Credit(ctx context.Context, tripID uuid.UUID, seats int) error {
	return m.single(func(s *Session) error { return s.Credit(ctx, tripID, seats) })
}

func (m *MemoryLedger) Balance(_ context.Context, tripID uuid.UUID) (Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[tripID]
	if !ok {
		return Balance{}, ErrUnknownTrip
	}
	return Balance{TripID: tripID, Capacity: acct.capacity, Remaining: acct.remaining}, nil
}

// Trips lists every registered trip with its committed balance
func (m *MemoryLedger) Trips() []Balance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Balance, 0, len(m.accounts))
	for id, acct := range m.accounts {
		out = append(out, Balance{TripID: id, Capacity: acct.capacity, Remaining: acct.remaining})
	}
	return out
}

func (m *MemoryLedger) single(fn func(*Session) error) error {
	s := m.Begin()
	if err := fn(s); err != nil {
		s.Rollback()
		return err
	}
	s.Commit()
	return nil
}

// Session is a transactional view over a MemoryLedger. It is not safe for
// concurrent use; one unit of work owns it.
type Session struct {
	ledger *MemoryLedger
	held   map[uuid.UUID]struct{}
	staged map[uuid.UUID]int
	done   bool
}

func (s *Session) Debit(_ context.Context, tripID uuid.UUID, seats int) error {
	if seats < 1 {
		return ErrInvalidAmount
	}

	bal, err := s.acquire(tripID)
	if err != nil {
		return err
	}
	if bal.Remaining < seats {
		return ErrInsufficientSeats
	}

	s.staged[tripID] = bal.Remaining - seats
	return nil
}

func (s *Session) Credit(_ context.Context, tripID uuid.UUID, seats int) error {
	if seats < 1 {
		return ErrInvalidAmount
	}

	bal, err := s.acquire(tripID)
	if err != nil {
		return err
	}
	if bal.Remaining+seats > bal.Capacity {
		return fmt.Errorf("%w: crediting %d seats to trip %s would exceed capacity %d (remaining %d)",
			ErrLedgerInconsistency, seats, tripID, bal.Capacity, bal.Remaining)
	}

	s.staged[tripID] = bal.Remaining + seats
	return nil
}

// Balance reads through the session, so staged changes are visible
func (s *Session) Balance(ctx context.Context, tripID uuid.UUID) (Balance, error) {
	bal, err := s.ledger.Balance(ctx, tripID)
	if err != nil {
		return Balance{}, err
	}
	if remaining, ok := s.staged[tripID]; ok {
		bal.Remaining = remaining
	}
	return bal, nil
}

// Commit publishes staged counters and releases every trip lock
func (s *Session) Commit() {
	if s.done {
		return
	}

	s.ledger.mu.Lock()
	for id, remaining := range s.staged {
		if acct, ok := s.ledger.accounts[id]; ok {
			acct.remaining = remaining
		}
	}
	s.ledger.mu.Unlock()

	s.release()
}

// Rollback drops staged counters and releases every trip lock
func (s *Session) Rollback() {
	if s.done {
		return
	}
	s.release()
}

func (s *Session) acquire(tripID uuid.UUID) (Balance, error) {
	if _, ok := s.held[tripID]; !ok {
		s.ledger.locks.Lock(tripID.String())
		s.held[tripID] = struct{}{}
	}
	return s.Balance(context.Background(), tripID)
}

func (s *Session) release() {
	for id := range s.held {
		s.ledger.locks.Unlock(id.String())
		delete(s.held, id)
	}
	s.staged = map[uuid.UUID]int{}
	s.done = true
}
