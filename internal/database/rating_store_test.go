package database

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	return &DB{DB: sqlDB}, mock
}

func TestRatingStore_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ratings").
		WithArgs("photo-1", "user-1", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "photo_id", "rater_id", "value", "created_at"}).
			AddRow("rating-1", "photo-1", "user-1", 7, time.Now()))
	mock.ExpectExec("UPDATE photos").
		WithArgs(7, "photo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rating, err := store.Insert(context.Background(), "photo-1", "user-1", 7)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if rating.Value != 7 {
		t.Errorf("rating value = %d, want 7", rating.Value)
	}
	if rating.PhotoID != "photo-1" {
		t.Errorf("rating photo id = %s, want photo-1", rating.PhotoID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRatingStore_Insert_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ratings").
		WithArgs("photo-1", "user-1", 5).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.Insert(context.Background(), "photo-1", "user-1", 5)
	if !errors.Is(err, ErrDuplicateRating) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateRating", err)
	}
}

func TestRatingStore_Insert_OutOfRange(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewRatingStore(db)

	for _, value := range []int{0, 11, -3} {
		if _, err := store.Insert(context.Background(), "photo-1", "user-1", value); err == nil {
			t.Errorf("Insert(%d) expected error", value)
		}
	}
}

func TestRatingStore_Insert_RollbackOnAggregateFailure(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ratings").
		WithArgs("photo-1", "user-1", 9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "photo_id", "rater_id", "value", "created_at"}).
			AddRow("rating-1", "photo-1", "user-1", 9, time.Now()))
	mock.ExpectExec("UPDATE photos").
		WithArgs(9, "photo-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := store.Insert(context.Background(), "photo-1", "user-1", 9); err == nil {
		t.Fatal("Insert() expected error when aggregate update fails")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRatingStore_ListRatedPhotoIDs(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectQuery("SELECT photo_id FROM ratings").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"photo_id"}).
			AddRow("photo-1").
			AddRow("photo-2"))

	ids, err := store.ListRatedPhotoIDs(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListRatedPhotoIDs() error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0] != "photo-1" || ids[1] != "photo-2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestRatingStore_HasRated(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("photo-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	rated, err := store.HasRated(context.Background(), "photo-1", "user-1")
	if err != nil {
		t.Fatalf("HasRated() error: %v", err)
	}
	if !rated {
		t.Error("HasRated() = false, want true")
	}
}
