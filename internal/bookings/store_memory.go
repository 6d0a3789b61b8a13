package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"busline/internal/ledger"
	"busline/internal/trips"

	"github.com/google/uuid"
	"github.com/moby/locker"
)

// MemoryStore is the in-process Store. A unit of work takes a keyed lock
// per reservation, ticket and trip it touches, stages its writes, and
// publishes them together with its ledger session on commit.
type MemoryStore struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]Reservation
	tickets      map[uuid.UUID]Ticket
	ticketByRes  map[uuid.UUID]uuid.UUID

	catalog *trips.MemoryCatalog
	seats   *ledger.MemoryLedger
	locks   *locker.Locker
}

func NewMemoryStore(catalog *trips.MemoryCatalog, seats *ledger.MemoryLedger) *MemoryStore {
	return &MemoryStore{
		reservations: make(map[uuid.UUID]Reservation),
		tickets:      make(map[uuid.UUID]Ticket),
		ticketByRes:  make(map[uuid.UUID]uuid.UUID),
		catalog:      catalog,
		seats:        seats,
		locks:        locker.New(),
	}
}

// AddTrip registers a trip in the catalog and opens its seat account
func (m *MemoryStore) AddTrip(trip trips.Trip, points ...trips.BoardingPoint) (uuid.UUID, error) {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if err := m.seats.Open(trip.ID, trip.Capacity, trip.RemainingCapacity); err != nil {
		return uuid.Nil, err
	}
	m.catalog.Put(trip, points...)
	return trip.ID, nil
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		store:        m,
		held:         make(map[string]struct{}),
		reservations: make(map[uuid.UUID]Reservation),
		tickets:      make(map[uuid.UUID]Ticket),
		seats:        m.seats.Begin(),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		tx.seats.Rollback()
		return err
	}

	m.mu.Lock()
	for id, r := range tx.reservations {
		m.reservations[id] = r
	}
	for id, t := range tx.tickets {
		m.tickets[id] = t
		m.ticketByRes[t.ReservationID] = id
	}
	tx.seats.Commit()
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Reservation(_ context.Context, id uuid.UUID) (*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) Ticket(_ context.Context, id uuid.UUID) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) TicketByReservation(_ context.Context, reservationID uuid.UUID) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ticketByRes[reservationID]
	if !ok {
		return nil, ErrNotFound
	}
	t := m.tickets[id]
	return &t, nil
}

func (m *MemoryStore) ListReservations(_ context.Context, filter ReservationFilter) ([]Reservation, int64, error) {
	filter.normalize()

	m.mu.RLock()
	var matched []Reservation
	for _, r := range m.reservations {
		if filter.matches(&r) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].RequestedAt.After(matched[j].RequestedAt) })
	return page(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (m *MemoryStore) ListTickets(_ context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	filter.normalize()

	m.mu.RLock()
	var matched []Ticket
	for _, t := range m.tickets {
		if filter.matches(&t) {
			matched = append(matched, t)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].IssuedAt.After(matched[j].IssuedAt) })
	if filter.Limit == 0 {
		return matched, int64(len(matched)), nil
	}
	return page(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// Positions implements ledger.PositionSource. Commits hold the store lock
// while publishing the ledger session, so counters and tickets agree here.
func (m *MemoryStore) Positions(_ context.Context) ([]ledger.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	held := make(map[uuid.UUID]int)
	for _, t := range m.tickets {
		if t.Status.HoldsSeats() {
			held[t.TripID] += t.SeatCount
		}
	}

	balances := m.seats.Trips()
	out := make([]ledger.Position, 0, len(balances))
	for _, b := range balances {
		out = append(out, ledger.Position{
			TripID:    b.TripID,
			Capacity:  b.Capacity,
			Remaining: b.Remaining,
			Held:      held[b.TripID],
		})
	}
	return out, nil
}

func page[T any](items []T, pageNum, limit int) []T {
	start := (pageNum - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type memTx struct {
	store        *MemoryStore
	held         map[string]struct{}
	reservations map[uuid.UUID]Reservation
	tickets      map[uuid.UUID]Ticket
	seats        *ledger.Session
}

func (t *memTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	t.store.locks.Lock(key)
	t.held[key] = struct{}{}
}

func (t *memTx) release() {
	t.seats.Rollback()
	for key := range t.held {
		t.store.locks.Unlock(key)
		delete(t.held, key)
	}
}

func (t *memTx) LockReservation(_ context.Context, id uuid.UUID) (*Reservation, error) {
	t.lock("reservation:" + id.String())

	if r, ok := t.reservations[id]; ok {
		return &r, nil
	}
	t.store.mu.RLock()
	r, ok := t.store.reservations[id]
	t.store.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) LockTicket(_ context.Context, id uuid.UUID) (*Ticket, error) {
	t.lock("ticket:" + id.String())

	if tk, ok := t.tickets[id]; ok {
		return &tk, nil
	}
	t.store.mu.RLock()
	tk, ok := t.store.tickets[id]
	t.store.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &tk, nil
}

func (t *memTx) TicketForReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error) {
	if id, ok := t.ticketIDFor(reservationID); ok {
		return t.LockTicket(ctx, id)
	}
	return nil, ErrNotFound
}

func (t *memTx) ticketIDFor(reservationID uuid.UUID) (uuid.UUID, bool) {
	for id, tk := range t.tickets {
		if tk.ReservationID == reservationID {
			return id, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.ticketByRes[reservationID]
	return id, ok
}

func (t *memTx) InsertReservation(_ context.Context, r *Reservation) error {
	t.lock("pending:" + r.RiderID.String() + ":" + r.TripID.String())

	if r.Status == ReservationPending && t.hasPending(r.RiderID, r.TripID) {
		return ErrDuplicatePending
	}

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now

	t.lock("reservation:" + r.ID.String())
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) hasPending(riderID, tripID uuid.UUID) bool {
	isDup := func(r Reservation) bool {
		return r.RiderID == riderID && r.TripID == tripID && r.Status == ReservationPending
	}
	for _, r := range t.reservations {
		if isDup(r) {
			return true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, r := range t.store.reservations {
		if staged, ok := t.reservations[id]; ok {
			r = staged
		}
		if isDup(r) {
			return true
		}
	}
	return false
}

func (t *memTx) UpdateReservation(_ context.Context, r *Reservation) error {
	r.UpdatedAt = time.Now()
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) InsertTicket(_ context.Context, tk *Ticket) error {
	if _, exists := t.ticketIDFor(tk.ReservationID); exists {
		return ErrAlreadyTicketed
	}

	if tk.ID == uuid.Nil {
		tk.ID = uuid.New()
	}
	now := time.Now()
	tk.CreatedAt, tk.UpdatedAt = now, now

	t.lock("ticket:" + tk.ID.String())
	t.tickets[tk.ID] = *tk
	return nil
}

func (t *memTx) UpdateTicket(_ context.Context, tk *Ticket) error {
	tk.UpdatedAt = time.Now()
	t.tickets[tk.ID] = *tk
	return nil
}

func (t *memTx) Trip(ctx context.Context, id uuid.UUID) (*trips.Trip, error) {
	return t.store.catalog.GetTrip(ctx, id)
}

func (t *memTx) Seats() ledger.Ledger {
	return t.seats
}
