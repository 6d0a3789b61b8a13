package bookings

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm: %v", err)
	}
	return NewGormStore(db), mock
}

func TestGormStoreLocksReservationForUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations" WHERE id = $1`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockReservation(context.Background(), id)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGormStoreTicketReadIsPlain(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	tripID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tickets" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "seat_count", "status"}).
			AddRow(id.String(), tripID.String(), 2, "confirmed"))

	tk, err := store.Ticket(context.Background(), id)
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if tk.ID != id || tk.TripID != tripID || tk.SeatCount != 2 || tk.Status != TicketConfirmed {
		t.Errorf("ticket = %+v", tk)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGormStoreListTicketsUnbounded(t *testing.T) {
	store, mock := newMockStore(t)
	tripID := uuid.New()
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "tickets"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tickets"`) + `.*ORDER BY issued_at DESC$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "seat_count", "status"}).
			AddRow(uuid.NewString(), tripID.String(), 3, "confirmed").
			AddRow(uuid.NewString(), tripID.String(), 1, "completed"))

	got, total, err := store.ListTickets(context.Background(), TicketFilter{
		TripIDs:    []uuid.UUID{tripID},
		Statuses:   SeatHoldingStatuses,
		IssuedFrom: &from,
		IssuedTo:   &to,
	})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("got %d tickets, total %d", len(got), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTicketSeatLabelsColumnIsUnbounded(t *testing.T) {
	sch, err := schema.Parse(&Ticket{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	field := sch.LookUpField("SeatLabels")
	if field == nil {
		t.Fatal("no SeatLabels field")
	}
	// 60 labels of 8 characters joined by commas pass request validation
	if got := string(field.DataType); got != "text" {
		t.Errorf("seat_labels column type = %q, want text", got)
	}
}
