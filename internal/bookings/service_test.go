package bookings

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"busline/internal/feed"
	"busline/internal/ledger"
	"busline/internal/trips"
	"busline/internal/users"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []SupervisorNotice
}

func (n *recordingNotifier) NotifySupervisor(_ context.Context, notice SupervisorNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

type fixture struct {
	svc        Service
	store      *MemoryStore
	catalog    *trips.MemoryCatalog
	seats      *ledger.MemoryLedger
	directory  *users.MemoryDirectory
	hub        *feed.Hub
	notifier   *recordingNotifier
	tripID     uuid.UUID
	pointID    uuid.UUID
	supervisor Actor
	owner      Actor
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	f := &fixture{
		catalog:    trips.NewMemoryCatalog(),
		seats:      ledger.NewMemoryLedger(),
		directory:  users.NewMemoryDirectory(),
		hub:        feed.NewHub(64, logger.Discard()),
		notifier:   &recordingNotifier{},
		supervisor: Supervisor(uuid.New()),
		owner:      Owner(uuid.New()),
		pointID:    uuid.New(),
	}
	f.store = NewMemoryStore(f.catalog, f.seats)

	supervisorID := f.supervisor.ID
	tripID, err := f.store.AddTrip(trips.Trip{
		OwnerID:           f.owner.ID,
		SupervisorID:      &supervisorID,
		BusNumber:         "KA-01-4242",
		RouteFrom:         "Bengaluru",
		RouteTo:           "Mysuru",
		DepartureTime:     time.Date(2026, 11, 2, 7, 30, 0, 0, time.UTC),
		BusType:           trips.BusTypeAC,
		Capacity:          capacity,
		RemainingCapacity: capacity,
		FarePerSeat:       45000,
		IsActive:          true,
	}, trips.BoardingPoint{ID: f.pointID, Name: "Majestic", Latitude: 12.9767, Longitude: 77.5713, Sequence: 1})
	if err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	f.tripID = tripID

	f.svc = NewService(f.store, f.catalog, f.directory, logger.Discard(),
		WithPublisher(f.hub),
		WithNotifier(f.notifier),
	)
	return f
}

func (f *fixture) rider(t *testing.T) Actor {
	t.Helper()
	a := Rider(uuid.New())
	f.directory.Put(users.User{ID: a.ID, Name: "Asha", Phone: "+91 90000 00000", Role: users.RoleRider})
	return a
}

func (f *fixture) remaining(t *testing.T) int {
	t.Helper()
	b, err := f.seats.Balance(context.Background(), f.tripID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return b.Remaining
}

// accepted walks a fresh reservation to accepted
func (f *fixture) accepted(t *testing.T, rider Actor) *Reservation {
	t.Helper()
	ctx := context.Background()
	r, err := f.svc.Request(ctx, rider, f.tripID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	r, err = f.svc.Accept(ctx, f.supervisor, r.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return r
}

func (f *fixture) ticketed(t *testing.T, rider Actor, seats int) (*Reservation, *Ticket) {
	t.Helper()
	r := f.accepted(t, rider)
	tk, err := f.svc.IssueTicket(context.Background(), rider, r.ID, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: seats})
	if err != nil {
		t.Fatalf("IssueTicket: %v", err)
	}
	return r, tk
}

func TestCapacityScenario(t *testing.T) {
	f := newFixture(t, 40)
	ctx := context.Background()
	rider := f.rider(t)

	r, err := f.svc.Request(ctx, rider, f.tripID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if r.Status != ReservationPending {
		t.Fatalf("status = %s, want pending", r.Status)
	}
	if got := f.remaining(t); got != 40 {
		t.Fatalf("remaining after request = %d, want 40", got)
	}

	if _, err := f.svc.Accept(ctx, f.supervisor, r.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got := f.remaining(t); got != 40 {
		t.Fatalf("remaining after accept = %d, want 40", got)
	}

	tk, err := f.svc.IssueTicket(ctx, rider, r.ID, IssueTicketInput{
		BoardingPointID: f.pointID,
		SeatCount:       3,
		SeatLabels:      []string{"A1", "A2", "A3"},
	})
	if err != nil {
		t.Fatalf("IssueTicket: %v", err)
	}
	if tk.Status != TicketConfirmed || tk.TotalFare != 135000 {
		t.Fatalf("ticket = %s total %d, want confirmed total 135000", tk.Status, tk.TotalFare)
	}
	if got := f.remaining(t); got != 37 {
		t.Fatalf("remaining after issue = %d, want 37", got)
	}

	tk, err = f.svc.CancelTicket(ctx, rider, tk.ID)
	if err != nil {
		t.Fatalf("CancelTicket: %v", err)
	}
	if tk.Status != TicketCancelled || tk.CancelledAt == nil {
		t.Fatalf("ticket not cancelled: %+v", tk)
	}
	if got := f.remaining(t); got != 40 {
		t.Fatalf("remaining after ticket cancel = %d, want 40", got)
	}

	stored, err := f.store.Reservation(ctx, r.ID)
	if err != nil {
		t.Fatalf("Reservation: %v", err)
	}
	if stored.Status != ReservationAccepted {
		t.Errorf("reservation status = %s, want accepted after ticket cancel", stored.Status)
	}
}

func TestSupervisorCancelCascadesToTicket(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	f.ticketed(t, f.rider(t), 3)
	rider := f.rider(t)
	r, tk := f.ticketed(t, rider, 2)
	if got := f.remaining(t); got != 5 {
		t.Fatalf("remaining = %d, want 5", got)
	}

	cancelled, err := f.svc.Cancel(ctx, f.supervisor, r.ID, "bus breakdown")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != ReservationCancelled || cancelled.CancelledBy != CancelledBySupervisor {
		t.Fatalf("reservation = %s by %q", cancelled.Status, cancelled.CancelledBy)
	}
	if cancelled.AcceptedAt == nil {
		t.Error("cancel must keep accepted_at")
	}
	if got := f.remaining(t); got != 7 {
		t.Fatalf("remaining after cascade = %d, want 7", got)
	}

	stored, err := f.store.Ticket(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if stored.Status != TicketCancelled {
		t.Errorf("ticket status = %s, want cancelled", stored.Status)
	}

	report, err := ledger.NewAuditor(f.store, logger.Discard()).Run(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !report.Healthy() {
		t.Errorf("audit drifts: %+v", report.Drifts)
	}
}

func TestRiderCancelWithLiveTicket(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	r, tk := f.ticketed(t, rider, 2)

	if _, err := f.svc.Cancel(ctx, rider, r.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Cancel with live ticket err = %v, want ErrInvalidTransition", err)
	}
	if got := f.remaining(t); got != 8 {
		t.Fatalf("remaining = %d, want 8", got)
	}

	if _, err := f.svc.CancelTicket(ctx, rider, tk.ID); err != nil {
		t.Fatalf("CancelTicket: %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, rider, r.ID, "plans changed")
	if err != nil {
		t.Fatalf("Cancel after ticket cancel: %v", err)
	}
	if cancelled.CancelledBy != CancelledByRider || cancelled.CancellationReason != "plans changed" {
		t.Errorf("reservation = %+v", cancelled)
	}
	if got := f.remaining(t); got != 10 {
		t.Errorf("remaining = %d, want 10", got)
	}
}

func TestCompletedTicketKeepsSeats(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	r, tk := f.ticketed(t, rider, 4)

	if _, err := f.svc.CompleteTicket(ctx, rider, tk.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("rider CompleteTicket err = %v, want ErrNotAuthorized", err)
	}

	done, err := f.svc.CompleteTicket(ctx, f.supervisor, tk.ID)
	if err != nil {
		t.Fatalf("CompleteTicket: %v", err)
	}
	if done.Status != TicketCompleted || done.CompletedAt == nil {
		t.Fatalf("ticket = %+v", done)
	}
	if got := f.remaining(t); got != 6 {
		t.Fatalf("remaining = %d, want 6", got)
	}

	if _, err := f.svc.CompleteTicket(ctx, f.supervisor, tk.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second CompleteTicket err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.CancelTicket(ctx, rider, tk.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CancelTicket on completed err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Cancel(ctx, f.supervisor, r.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("supervisor Cancel with completed ticket err = %v, want ErrInvalidTransition", err)
	}
	if got := f.remaining(t); got != 6 {
		t.Errorf("remaining = %d, want 6", got)
	}
}

func TestIssueTicketOnNonAcceptedLeavesLedger(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	in := IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 2}

	pending, err := f.svc.Request(ctx, rider, f.tripID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.IssueTicket(ctx, rider, pending.ID, in); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending IssueTicket err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.svc.Reject(ctx, f.supervisor, pending.ID, "full"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := f.svc.IssueTicket(ctx, rider, pending.ID, in); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("rejected IssueTicket err = %v, want ErrInvalidTransition", err)
	}

	if got := f.remaining(t); got != 10 {
		t.Errorf("remaining = %d, want 10", got)
	}
	if _, err := f.store.TicketByReservation(ctx, pending.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ticket lookup err = %v, want ErrNotFound", err)
	}
}

func TestIssueTicketValidation(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	rider := f.rider(t)
	r := f.accepted(t, rider)

	tests := []struct {
		name  string
		actor Actor
		in    IssueTicketInput
		want  error
	}{
		{"other rider", Rider(uuid.New()), IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1}, ErrNotAuthorized},
		{"supervisor", f.supervisor, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1}, ErrNotAuthorized},
		{"foreign boarding point", rider, IssueTicketInput{BoardingPointID: uuid.New(), SeatCount: 1}, ErrInvalidBoardingPoint},
		{"zero seats", rider, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 0}, ErrInvalidSeatCount},
		{"labels disagree", rider, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 2, SeatLabels: []string{"A1"}}, ErrInvalidSeatCount},
		{"comma in label", rider, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1, SeatLabels: []string{"A1,A2"}}, ErrInvalidSeatLabel},
		{"over capacity", rider, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 5}, ErrInsufficientSeats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.IssueTicket(ctx, tt.actor, r.ID, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if got := f.remaining(t); got != 4 {
				t.Errorf("remaining = %d, want 4", got)
			}
		})
	}

	tk, err := f.svc.IssueTicket(ctx, rider, r.ID, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 4})
	if err != nil {
		t.Fatalf("IssueTicket: %v", err)
	}
	if _, err := f.svc.IssueTicket(ctx, rider, r.ID, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1}); !errors.Is(err, ErrAlreadyTicketed) {
		t.Errorf("second IssueTicket err = %v, want ErrAlreadyTicketed", err)
	}

	// A cancelled ticket still counts as the reservation's one ticket.
	if _, err := f.svc.CancelTicket(ctx, rider, tk.ID); err != nil {
		t.Fatalf("CancelTicket: %v", err)
	}
	if _, err := f.svc.IssueTicket(ctx, rider, r.ID, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1}); !errors.Is(err, ErrAlreadyTicketed) {
		t.Errorf("IssueTicket after cancel err = %v, want ErrAlreadyTicketed", err)
	}
}

func TestLastSeatRace(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	type attempt struct {
		rider Actor
		resID uuid.UUID
	}
	attempts := make([]attempt, 2)
	for i := range attempts {
		rider := f.rider(t)
		attempts[i] = attempt{rider: rider, resID: f.accepted(t, rider).ID}
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(attempts))
	)
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.IssueTicket(ctx, a.rider, a.resID, IssueTicketInput{BoardingPointID: f.pointID, SeatCount: 1})
		}(i, a)
	}
	close(start)
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientSeats):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Fatalf("successes = %d, insufficient = %d, want 1 and 1", ok, full)
	}
	if got := f.remaining(t); got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
}

func TestDuplicatePendingRequest(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)

	first, err := f.svc.Request(ctx, rider, f.tripID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.Request(ctx, rider, f.tripID); !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("second Request err = %v, want ErrDuplicatePending", err)
	}

	if _, err := f.svc.Reject(ctx, f.supervisor, first.ID, ""); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := f.svc.Request(ctx, rider, f.tripID); err != nil {
		t.Errorf("Request after reject: %v", err)
	}
}

func TestRequestGuards(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	if _, err := f.svc.Request(ctx, f.supervisor, f.tripID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("supervisor Request err = %v, want ErrNotAuthorized", err)
	}
	if _, err := f.svc.Request(ctx, f.rider(t), uuid.New()); !errors.Is(err, ErrInvalidTrip) {
		t.Errorf("unknown trip err = %v, want ErrInvalidTrip", err)
	}

	f.catalog.SetActive(f.tripID, false)
	if _, err := f.svc.Request(ctx, f.rider(t), f.tripID); !errors.Is(err, ErrInvalidTrip) {
		t.Errorf("inactive trip err = %v, want ErrInvalidTrip", err)
	}
}

func TestDecisionGuards(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	r := f.accepted(t, rider)
	stranger := Supervisor(uuid.New())

	// Authorization is checked before state.
	if _, err := f.svc.Accept(ctx, stranger, r.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("stranger Accept err = %v, want ErrNotAuthorized", err)
	}
	if _, err := f.svc.Accept(ctx, f.supervisor, r.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("repeat Accept err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Reject(ctx, f.supervisor, r.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reject accepted err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Cancel(ctx, f.owner, r.ID, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("owner Cancel err = %v, want ErrNotAuthorized", err)
	}
	if _, err := f.svc.Accept(ctx, f.supervisor, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown reservation err = %v, want ErrNotFound", err)
	}

	if _, err := f.svc.Cancel(ctx, rider, r.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, rider, r.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("repeat Cancel err = %v, want ErrInvalidTransition", err)
	}
}

func TestPrivacyReveal(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)

	r, err := f.svc.Request(ctx, rider, f.tripID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	staffView, err := f.svc.GetReservation(ctx, f.supervisor, r.ID)
	if err != nil {
		t.Fatalf("supervisor view: %v", err)
	}
	if staffView.Rider != nil {
		t.Fatal("pending reservation revealed the rider")
	}
	riderView, err := f.svc.GetReservation(ctx, rider, r.ID)
	if err != nil {
		t.Fatalf("rider view: %v", err)
	}
	if len(riderView.BoardingPoints) != 0 {
		t.Fatal("pending reservation listed boarding points")
	}
	if _, err := f.svc.GetReservation(ctx, Rider(uuid.New()), r.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("stranger view err = %v, want ErrNotAuthorized", err)
	}

	if _, err := f.svc.Accept(ctx, f.supervisor, r.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	staffView, err = f.svc.GetReservation(ctx, f.supervisor, r.ID)
	if err != nil {
		t.Fatalf("supervisor view: %v", err)
	}
	if staffView.Rider == nil || staffView.Rider.Name != "Asha" {
		t.Fatalf("accepted view rider = %+v", staffView.Rider)
	}
	ownerView, err := f.svc.GetReservation(ctx, f.owner, r.ID)
	if err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if ownerView.Rider == nil {
		t.Error("owner should see the rider once accepted")
	}
	riderView, err = f.svc.GetReservation(ctx, rider, r.ID)
	if err != nil {
		t.Fatalf("rider view: %v", err)
	}
	if len(riderView.BoardingPoints) != 1 {
		t.Fatalf("boarding points = %d, want 1", len(riderView.BoardingPoints))
	}
	if !bytes.Contains(riderView.BoardingPoints[0].Location, []byte(`"Point"`)) {
		t.Errorf("location = %s, want a GeoJSON point", riderView.BoardingPoints[0].Location)
	}

	if _, err := f.svc.Cancel(ctx, rider, r.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	staffView, err = f.svc.GetReservation(ctx, f.supervisor, r.ID)
	if err != nil {
		t.Fatalf("supervisor view: %v", err)
	}
	if staffView.Rider == nil {
		t.Error("reveal must survive a later cancel")
	}
	riderView, err = f.svc.GetReservation(ctx, rider, r.ID)
	if err != nil {
		t.Fatalf("rider view: %v", err)
	}
	if len(riderView.BoardingPoints) != 0 {
		t.Error("cancelled reservation still lists boarding points")
	}
}

func TestEventsAndNotices(t *testing.T) {
	f := newFixture(t, 10)
	rider := f.rider(t)

	tripSub := f.hub.Subscribe(feed.TripTopic(f.tripID))
	defer tripSub.Close()
	riderSub := f.hub.Subscribe(feed.RiderTopic(rider.ID))
	defer riderSub.Close()

	r := f.accepted(t, rider)

	f.notifier.mu.Lock()
	notices := append([]SupervisorNotice(nil), f.notifier.notices...)
	f.notifier.mu.Unlock()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if notices[0].ReservationID != r.ID || notices[0].SupervisorID != f.supervisor.ID {
		t.Errorf("notice = %+v", notices[0])
	}

	for _, want := range []string{"pending", "accepted"} {
		select {
		case ev := <-tripSub.Events:
			if ev.EntityKind != feed.EntityReservation || ev.EntityID != r.ID || ev.NewStatus != want {
				t.Errorf("trip event = %+v, want %s", ev, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s event on trip topic", want)
		}
		select {
		case ev := <-riderSub.Events:
			if ev.NewStatus != want {
				t.Errorf("rider event status = %s, want %s", ev.NewStatus, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s event on rider topic", want)
		}
	}
}

func TestFailedTransitionPublishesNothing(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	r := f.accepted(t, rider)

	sub := f.hub.Subscribe(feed.TripTopic(f.tripID))
	defer sub.Close()

	if _, err := f.svc.Accept(ctx, f.supervisor, r.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Accept err = %v", err)
	}
	select {
	case ev := <-sub.Events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestFareIsSnapshotted(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	_, tk := f.ticketed(t, rider, 2)

	f.catalog.SetFare(f.tripID, 99900)

	view, err := f.svc.GetTicket(ctx, rider, tk.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if view.FarePerSeat != 45000 || view.TotalFare != 90000 {
		t.Errorf("fare = %d total %d, want 45000 and 90000", view.FarePerSeat, view.TotalFare)
	}
	if view.BoardingPoint == nil || view.BoardingPoint.ID != f.pointID {
		t.Errorf("boarding point = %+v", view.BoardingPoint)
	}
	if view.Rider != nil {
		t.Error("rider's own ticket view carries a profile")
	}

	staff, err := f.svc.GetTicket(ctx, f.supervisor, tk.ID)
	if err != nil {
		t.Fatalf("supervisor GetTicket: %v", err)
	}
	if staff.Rider == nil {
		t.Error("supervisor should see the ticket's rider")
	}
}

func TestTicketTotalMismatchIsInconsistency(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	r := f.accepted(t, rider)

	bad := &Ticket{
		ReservationID:   r.ID,
		TripID:          f.tripID,
		RiderID:         rider.ID,
		BoardingPointID: f.pointID,
		SeatCount:       2,
		FarePerSeat:     45000,
		TotalFare:       1,
		Status:          TicketConfirmed,
		IssuedAt:        time.Now(),
	}
	err := f.store.WithinTx(ctx, func(tx Tx) error { return tx.InsertTicket(ctx, bad) })
	if err != nil {
		t.Fatalf("InsertTicket: %v", err)
	}

	if _, err := f.svc.GetTicket(ctx, rider, bad.ID); !errors.Is(err, ErrLedgerInconsistency) {
		t.Errorf("GetTicket err = %v, want ErrLedgerInconsistency", err)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	pendingRider := f.rider(t)
	if _, err := f.svc.Request(ctx, pendingRider, f.tripID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	ticketRider := f.rider(t)
	f.ticketed(t, ticketRider, 2)

	queue, err := f.svc.ListTripReservations(ctx, f.supervisor, f.tripID, ListQuery{})
	if err != nil {
		t.Fatalf("ListTripReservations: %v", err)
	}
	if queue.Total != 2 || len(queue.Items) != 2 || queue.TotalPages != 1 {
		t.Fatalf("queue = %+v", queue)
	}
	for _, item := range queue.Items {
		if item.Status == ReservationPending && item.Rider != nil {
			t.Error("pending row in queue carries rider identity")
		}
		if item.Status == ReservationAccepted && item.Rider == nil {
			t.Error("accepted row in queue lacks rider identity")
		}
	}

	pendingOnly, err := f.svc.ListTripReservations(ctx, f.owner, f.tripID, ListQuery{Status: "pending"})
	if err != nil {
		t.Fatalf("owner ListTripReservations: %v", err)
	}
	if pendingOnly.Total != 1 {
		t.Errorf("pending total = %d, want 1", pendingOnly.Total)
	}

	if _, err := f.svc.ListTripReservations(ctx, Supervisor(uuid.New()), f.tripID, ListQuery{}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("stranger queue err = %v, want ErrNotAuthorized", err)
	}
	if _, err := f.svc.ListTripReservations(ctx, f.supervisor, f.tripID, ListQuery{Status: "boarded"}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("bad filter err = %v, want ErrInvalidFilter", err)
	}

	mine, err := f.svc.ListRiderReservations(ctx, ticketRider, ListQuery{})
	if err != nil {
		t.Fatalf("ListRiderReservations: %v", err)
	}
	if mine.Total != 1 || len(mine.Items[0].BoardingPoints) != 1 {
		t.Errorf("rider reservations = %+v", mine)
	}

	tickets, err := f.svc.ListRiderTickets(ctx, ticketRider, ListQuery{Status: "confirmed"})
	if err != nil {
		t.Fatalf("ListRiderTickets: %v", err)
	}
	if tickets.Total != 1 || tickets.Items[0].SeatCount != 2 {
		t.Errorf("rider tickets = %+v", tickets)
	}

	none, err := f.svc.ListRiderTickets(ctx, pendingRider, ListQuery{})
	if err != nil {
		t.Fatalf("ListRiderTickets: %v", err)
	}
	if none.Total != 0 || len(none.Items) != 0 {
		t.Errorf("pending rider tickets = %+v", none)
	}
}

func TestWriteTicketPDF(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	rider := f.rider(t)
	_, tk := f.ticketed(t, rider, 1)

	var buf bytes.Buffer
	if err := f.svc.WriteTicketPDF(ctx, rider, tk.ID, &buf); err != nil {
		t.Fatalf("WriteTicketPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}

	if err := f.svc.WriteTicketPDF(ctx, Rider(uuid.New()), tk.ID, &bytes.Buffer{}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("stranger err = %v, want ErrNotAuthorized", err)
	}

	if _, err := f.svc.CancelTicket(ctx, rider, tk.ID); err != nil {
		t.Fatalf("CancelTicket: %v", err)
	}
	if err := f.svc.WriteTicketPDF(ctx, rider, tk.ID, &bytes.Buffer{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancelled ticket err = %v, want ErrInvalidTransition", err)
	}
}

func TestFormatMinor(t *testing.T) {
	tests := map[int64]string{0: "0.00", 5: "0.05", 45000: "450.00", 123456: "1234.56", -250: "-2.50"}
	for in, want := range tests {
		if got := formatMinor(in); got != want {
			t.Errorf("formatMinor(%d) = %q, want %q", in, got, want)
		}
	}
}
