package trips

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryCatalog is an in-process catalog for the memory store and tests.
// The seat counter on returned trips is whatever was loaded; the ledger owns
// the live value.
type MemoryCatalog struct {
	mu     sync.RWMutex
	trips  map[uuid.UUID]Trip
	points map[uuid.UUID][]BoardingPoint
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		trips:  make(map[uuid.UUID]Trip),
		points: make(map[uuid.UUID][]BoardingPoint),
	}
}

// Put inserts or replaces a trip and its boarding points
func (m *MemoryCatalog) Put(trip Trip, points ...BoardingPoint) {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	stops := make([]BoardingPoint, 0, len(points))
	for _, p := range points {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.TripID = trip.ID
		stops = append(stops, p)
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })

	trip.BoardingPoints = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	m.points[trip.ID] = stops
}

// SetActive flips a trip's active flag
func (m *MemoryCatalog) SetActive(tripID uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trips[tripID]; ok {
		t.IsActive = active
		m.trips[tripID] = t
	}
}

// SetFare changes a trip's per-seat fare
func (m *MemoryCatalog) SetFare(tripID uuid.UUID, fare int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trips[tripID]; ok {
		t.FarePerSeat = fare
		m.trips[tripID] = t
	}
}

func (m *MemoryCatalog) GetTrip(_ context.Context, id uuid.UUID) (*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	return &t, nil
}

func (m *MemoryCatalog) ListBoardingPoints(_ context.Context, tripID uuid.UUID) ([]BoardingPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]BoardingPoint(nil), m.points[tripID]...), nil
}

func (m *MemoryCatalog) GetBoardingPoint(_ context.Context, tripID, pointID uuid.UUID) (*BoardingPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.points[tripID] {
		if p.ID == pointID {
			return &p, nil
		}
	}
	return nil, ErrBoardingPointNotFound
}

func (m *MemoryCatalog) ListOwnerTrips(_ context.Context, ownerID uuid.UUID) ([]Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Trip
	for _, t := range m.trips {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.After(out[j].DepartureTime) })
	return out, nil
}

// AllTrips lists every trip, newest departure first
func (m *MemoryCatalog) AllTrips() []Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Trip, 0, len(m.trips))
	for _, t := range m.trips {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.After(out[j].DepartureTime) })
	return out
}
