package database

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/dmkolesov/snaprate/internal/models"
)

func photoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "object_key", "url", "thumbnail_url", "content_type",
		"rating_count", "rating_sum", "status", "created_at", "updated_at",
	})
}

func TestPhotoStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPhotoStore(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO photos").
		WithArgs("photo-1", "user-1", "photos/abc.jpg", "/photos/photo-1", "/photos/photo-1/thumb", "image/jpeg", "active").
		WillReturnRows(photoRows().
			AddRow("photo-1", "user-1", "photos/abc.jpg", "/photos/photo-1", "/photos/photo-1/thumb", "image/jpeg", 0, 0, "active", now, now))
	mock.ExpectExec("UPDATE users SET photos_uploaded").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	photo, err := store.Create(context.Background(), CreatePhotoParams{
		ID:           "photo-1",
		OwnerID:      "user-1",
		ObjectKey:    "photos/abc.jpg",
		URL:          "/photos/photo-1",
		ThumbnailURL: "/photos/photo-1/thumb",
		ContentType:  "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if photo.RatingCount != 0 {
		t.Errorf("new photo rating count = %d, want 0", photo.RatingCount)
	}
	if photo.Status != models.PhotoStatusActive {
		t.Errorf("new photo status = %s, want active", photo.Status)
	}
	if photo.ObjectKey != "photos/abc.jpg" {
		t.Errorf("object key = %s", photo.ObjectKey)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPhotoStore_Create_RequiresOwner(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewPhotoStore(db)

	if _, err := store.Create(context.Background(), CreatePhotoParams{ID: "photo-x", URL: "/photos/x"}); err == nil {
		t.Fatal("Create() without owner should fail")
	}
}

func TestPhotoStore_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPhotoStore(db)

	mock.ExpectQuery("SELECT (.+) FROM photos WHERE id").
		WithArgs("missing").
		WillReturnRows(photoRows())

	photo, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if photo != nil {
		t.Errorf("GetByID() = %+v, want nil for missing photo", photo)
	}
}

func TestPhotoStore_PickUnrated(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPhotoStore(db)

	now := time.Now()
	mock.ExpectQuery("FROM photos p").
		WithArgs("active", "user-1").
		WillReturnRows(photoRows().
			AddRow("photo-2", "user-2", nil, "/photos/photo-2", nil, "image/png", 4, 27, "active", now, now))

	photo, err := store.PickUnrated(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PickUnrated() error: %v", err)
	}
	if photo == nil {
		t.Fatal("PickUnrated() returned nil photo")
	}
	if photo.OwnerID == "user-1" {
		t.Error("PickUnrated() returned rater's own photo")
	}
	if photo.AverageRating != 6.75 {
		t.Errorf("average = %v, want 6.75 recomputed from aggregates", photo.AverageRating)
	}
}

func TestPhotoStore_PickUnrated_Exhausted(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPhotoStore(db)

	mock.ExpectQuery("FROM photos p").
		WithArgs("active", "user-1").
		WillReturnRows(photoRows())

	photo, err := store.PickUnrated(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PickUnrated() error: %v", err)
	}
	if photo != nil {
		t.Errorf("PickUnrated() = %+v, want nil when pool is exhausted", photo)
	}
}

func TestPhotoStore_SetStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPhotoStore(db)

	mock.ExpectExec("UPDATE photos SET status").
		WithArgs("removed", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.SetStatus(context.Background(), "missing", models.PhotoStatusRemoved); err == nil {
		t.Fatal("SetStatus() expected error for missing photo")
	}
}
