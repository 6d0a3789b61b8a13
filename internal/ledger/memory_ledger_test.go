package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTrip(t *testing.T, l *MemoryLedger, capacity, remaining int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := l.Open(id, capacity, remaining); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return id
}

func TestMemoryLedgerDebitAndCredit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 40, 40)

	if err := l.Debit(ctx, trip, 3); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	bal, _ := l.Balance(ctx, trip)
	if bal.Remaining != 37 || bal.Held() != 3 {
		t.Fatalf("after debit got %+v", bal)
	}

	if err := l.Credit(ctx, trip, 3); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	bal, _ = l.Balance(ctx, trip)
	if bal.Remaining != 40 {
		t.Fatalf("after credit remaining = %d, want 40", bal.Remaining)
	}
}

func TestMemoryLedgerInsufficientSeatsLeavesCounter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 40, 2)

	err := l.Debit(ctx, trip, 3)
	if !errors.Is(err, ErrInsufficientSeats) {
		t.Fatalf("Debit err = %v, want ErrInsufficientSeats", err)
	}
	bal, _ := l.Balance(ctx, trip)
	if bal.Remaining != 2 {
		t.Fatalf("remaining = %d, want 2", bal.Remaining)
	}
}

func TestMemoryLedgerOverCreditIsInconsistency(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 10, 9)

	err := l.Credit(ctx, trip, 2)
	if !errors.Is(err, ErrLedgerInconsistency) {
		t.Fatalf("Credit err = %v, want ErrLedgerInconsistency", err)
	}
	bal, _ := l.Balance(ctx, trip)
	if bal.Remaining != 9 {
		t.Fatalf("remaining = %d, want 9", bal.Remaining)
	}
}

func TestMemoryLedgerRejectsBadAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 10, 10)

	if err := l.Debit(ctx, trip, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Debit(0) err = %v", err)
	}
	if err := l.Credit(ctx, trip, -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Credit(-1) err = %v", err)
	}
	if err := l.Debit(ctx, uuid.New(), 1); !errors.Is(err, ErrUnknownTrip) {
		t.Fatalf("Debit(unknown) err = %v", err)
	}
	if err := l.Open(uuid.New(), 5, 6); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Open(5, 6) err = %v", err)
	}
}

func TestMemoryLedgerLastSeatRace(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 40, 1)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Debit(ctx, trip, 1); err == nil {
				atomic.AddInt32(&wins, 1)
			} else if !errors.Is(err, ErrInsufficientSeats) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d debits won the last seat, want 1", wins)
	}
	bal, _ := l.Balance(ctx, trip)
	if bal.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", bal.Remaining)
	}
}

func TestSessionRollbackDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 40, 40)

	s := l.Begin()
	if err := s.Debit(ctx, trip, 5); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	staged, _ := s.Balance(ctx, trip)
	if staged.Remaining != 35 {
		t.Fatalf("staged remaining = %d, want 35", staged.Remaining)
	}
	committed, _ := l.Balance(ctx, trip)
	if committed.Remaining != 40 {
		t.Fatalf("uncommitted debit leaked: remaining = %d", committed.Remaining)
	}

	s.Rollback()
	s.Rollback()

	committed, _ = l.Balance(ctx, trip)
	if committed.Remaining != 40 {
		t.Fatalf("remaining after rollback = %d, want 40", committed.Remaining)
	}

	// The trip lock must have been released.
	if err := l.Debit(ctx, trip, 1); err != nil {
		t.Fatalf("Debit after rollback: %v", err)
	}
}

func TestSessionCommitAppliesEveryTrip(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	a := openTrip(t, l, 10, 10)
	b := openTrip(t, l, 10, 4)

	s := l.Begin()
	if err := s.Debit(ctx, a, 2); err != nil {
		t.Fatalf("Debit a: %v", err)
	}
	if err := s.Credit(ctx, b, 3); err != nil {
		t.Fatalf("Credit b: %v", err)
	}
	if err := s.Debit(ctx, a, 1); err != nil {
		t.Fatalf("second Debit a: %v", err)
	}
	s.Commit()

	balA, _ := l.Balance(ctx, a)
	balB, _ := l.Balance(ctx, b)
	if balA.Remaining != 7 || balB.Remaining != 7 {
		t.Fatalf("got a=%d b=%d, want 7 and 7", balA.Remaining, balB.Remaining)
	}
	if n := len(l.Trips()); n != 2 {
		t.Fatalf("Trips() = %d entries, want 2", n)
	}
}

func TestSessionHoldsTripUntilCommit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	trip := openTrip(t, l, 5, 5)

	first := l.Begin()
	if err := first.Debit(ctx, trip, 2); err != nil {
		t.Fatalf("first Debit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		second := l.Begin()
		err := second.Debit(ctx, trip, 3)
		second.Commit()
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("second session ran while trip was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	first.Commit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Debit: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second session never acquired the trip")
	}

	bal, _ := l.Balance(ctx, trip)
	if bal.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", bal.Remaining)
	}

	// the lock is free again once both sessions have ended
	again := l.Begin()
	if err := again.Credit(ctx, trip, 1); err != nil {
		t.Fatalf("Credit after release: %v", err)
	}
	again.Rollback()
}
