package photos

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/testutil"
)

type fakeModerator struct {
	decision *models.ModerationDecision
	err      error
}

func (f *fakeModerator) ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error) {
	_ = ctx
	_ = imageBytes
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type fakeStorage struct {
	saved   []SaveRequest
	deleted []string
	saveErr error
}

func (f *fakeStorage) Save(ctx context.Context, req SaveRequest) (*models.ImageAsset, error) {
	_ = ctx
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, req)
	return &models.ImageAsset{
		PhotoID:     req.PhotoID,
		Variant:     req.Variant,
		ContentType: req.ContentType,
		ImageBytes:  req.ImageBytes,
	}, nil
}

func (f *fakeStorage) Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error) {
	_ = ctx
	for _, req := range f.saved {
		if req.PhotoID == photoID && req.Variant == variant {
			return &models.ImageAsset{
				PhotoID:     req.PhotoID,
				Variant:     req.Variant,
				ContentType: req.ContentType,
				ImageBytes:  req.ImageBytes,
			}, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) Delete(ctx context.Context, photoID string) error {
	_ = ctx
	f.deleted = append(f.deleted, photoID)
	return nil
}

func (f *fakeStorage) URL(photoID string, variant models.ImageVariant) string {
	if variant == models.ImageVariantThumbnail {
		return "/photos/" + photoID + "/thumbnail"
	}
	return "/photos/" + photoID
}

type fakeRecords struct {
	created   []database.CreatePhotoParams
	createErr error
}

func (f *fakeRecords) Create(ctx context.Context, params database.CreatePhotoParams) (*models.Photo, error) {
	_ = ctx
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	return &models.Photo{
		ID:           params.ID,
		OwnerID:      params.OwnerID,
		ObjectKey:    params.ObjectKey,
		URL:          params.URL,
		ThumbnailURL: params.ThumbnailURL,
		ContentType:  params.ContentType,
		Status:       models.PhotoStatusActive,
	}, nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(storage *fakeStorage, records *fakeRecords) *Service {
	return NewService(nil, storage, records, 10*1024*1024, 500, 0, testutil.NullLogger())
}

func TestServiceUpload(t *testing.T) {
	storage := &fakeStorage{}
	records := &fakeRecords{}
	svc := newTestService(storage, records)

	photo, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID:  "user-1",
		FileName: "sunset.png",
		Data:     pngBytes(t, 800, 600),
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if photo.ID == "" {
		t.Fatal("uploaded photo has no id")
	}
	if photo.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", photo.ContentType)
	}
	if photo.URL != "/photos/"+photo.ID {
		t.Errorf("url = %q", photo.URL)
	}
	if photo.ThumbnailURL != "/photos/"+photo.ID+"/thumbnail" {
		t.Errorf("thumbnail url = %q", photo.ThumbnailURL)
	}

	if len(storage.saved) != 2 {
		t.Fatalf("saved %d renditions, want 2", len(storage.saved))
	}
	if storage.saved[0].Variant != models.ImageVariantOriginal {
		t.Errorf("first rendition = %s, want original", storage.saved[0].Variant)
	}
	if storage.saved[1].Variant != models.ImageVariantThumbnail {
		t.Errorf("second rendition = %s, want thumbnail", storage.saved[1].Variant)
	}
	if storage.saved[1].ContentType != "image/jpeg" {
		t.Errorf("thumbnail content type = %q, want image/jpeg", storage.saved[1].ContentType)
	}
}

func TestServiceUpload_RejectsNonImage(t *testing.T) {
	svc := newTestService(&fakeStorage{}, &fakeRecords{})

	payload := append([]byte("%PDF-1.7"), make([]byte, 600)...)
	_, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    payload,
	})
	if !errors.Is(err, ErrInvalidContentType) {
		t.Fatalf("Upload() error = %v, want ErrInvalidContentType", err)
	}
}

func TestServiceUpload_RejectsOversizedPayload(t *testing.T) {
	storage := &fakeStorage{}
	records := &fakeRecords{}
	svc := NewService(nil, storage, records, 1024, 500, 0, testutil.NullLogger())

	_, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    pngBytes(t, 200, 200),
	})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Upload() error = %v, want ErrPayloadTooLarge", err)
	}
	if len(storage.saved) != 0 {
		t.Error("oversized payload should not reach storage")
	}
}

func TestServiceUpload_ModerationRejected(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(
		&fakeModerator{decision: &models.ModerationDecision{
			Status: models.ImageModerationRejected,
			Reason: "This photo can't be shared",
		}},
		storage, &fakeRecords{}, 10*1024*1024, 500, 0, testutil.NullLogger(),
	)

	_, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    pngBytes(t, 100, 100),
	})
	if !errors.Is(err, ErrModerationRejected) {
		t.Fatalf("Upload() error = %v, want ErrModerationRejected", err)
	}
	if len(storage.saved) != 0 {
		t.Error("rejected photo should not reach storage")
	}
}

func TestServiceUpload_ModerationErrorStillAccepts(t *testing.T) {
	storage := &fakeStorage{}
	records := &fakeRecords{}
	svc := NewService(
		&fakeModerator{err: errors.New("rekognition down")},
		storage, records, 10*1024*1024, 500, 0, testutil.NullLogger(),
	)

	photo, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    pngBytes(t, 100, 100),
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if photo == nil || photo.ID == "" {
		t.Fatal("photo should be accepted when moderation is unavailable")
	}
}

func TestServiceUpload_StorageFailure(t *testing.T) {
	storage := &fakeStorage{saveErr: errors.New("bucket gone")}
	svc := newTestService(storage, &fakeRecords{})

	_, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    pngBytes(t, 100, 100),
	})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Upload() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestServiceUpload_RecordFailureCleansUpBytes(t *testing.T) {
	storage := &fakeStorage{}
	records := &fakeRecords{createErr: errors.New("db down")}
	svc := newTestService(storage, records)

	_, err := svc.Upload(context.Background(), UploadRequest{
		OwnerID: "user-1",
		Data:    pngBytes(t, 100, 100),
	})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Upload() error = %v, want ErrStorageUnavailable", err)
	}
	if len(storage.deleted) != 1 {
		t.Fatalf("deleted %d photos, want 1", len(storage.deleted))
	}
}

func TestMakeThumbnail_KeepsSmallImages(t *testing.T) {
	data := pngBytes(t, 100, 80)

	thumb, err := makeThumbnail(data, 500)
	if err != nil {
		t.Fatalf("makeThumbnail() error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Errorf("width = %d, want 100 (no upscaling)", img.Bounds().Dx())
	}
}

func TestMakeThumbnail_ScalesDown(t *testing.T) {
	data := pngBytes(t, 1000, 500)

	thumb, err := makeThumbnail(data, 500)
	if err != nil {
		t.Fatalf("makeThumbnail() error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 500 {
		t.Errorf("width = %d, want 500", img.Bounds().Dx())
	}
}
