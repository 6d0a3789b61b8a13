package users

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMemoryDirectory(t *testing.T) {
	dir := NewMemoryDirectory()
	id := uuid.New()
	dir.Put(User{ID: id, Name: "Asha", Phone: "+91 98000 00001", Role: RoleRider})

	p, err := dir.Profile(context.Background(), id)
	if err != nil || p.Name != "Asha" || p.Phone != "+91 98000 00001" {
		t.Fatalf("Profile = %+v, %v", p, err)
	}
	if _, err := dir.Profile(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestGormDirectory(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "role"}).
			AddRow(id.String(), "Ravi", "+91 98000 00002", "SUPERVISOR"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "role"}))

	dir := NewDirectory(db, nil, 0)
	p, err := dir.Profile(context.Background(), id)
	if err != nil || p.ID != id || p.Name != "Ravi" {
		t.Fatalf("Profile = %+v, %v", p, err)
	}
	if _, err := dir.Profile(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{"RIDER", "SUPERVISOR", "OWNER"} {
		if !IsValidRole(r) {
			t.Errorf("%s rejected", r)
		}
	}
	if IsValidRole("ADMIN") {
		t.Error("ADMIN accepted")
	}
}
