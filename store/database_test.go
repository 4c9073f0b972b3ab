package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "photos.db"))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertPhoto(t *testing.T, db *Database, id string, ts time.Time, tags ...string) {
	t.Helper()
	p := Photo{
		ID:               id,
		Filename:         id + ".jpg",
		OriginalFilename: "upload.jpg",
		Timestamp:        ts,
		FileSize:         10,
		FilePath:         "/tmp/" + id + ".jpg",
		ContentType:      "image/jpeg",
		Tags:             tags,
	}
	if err := db.InsertPhoto(p); err != nil {
		t.Fatalf("InsertPhoto(%s): %v", id, err)
	}
}

func TestGetPhotos_NewestFirstWithPaging(t *testing.T) {
	db := newTestDatabase(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	insertPhoto(t, db, "a", base)
	insertPhoto(t, db, "b", base.Add(100*time.Millisecond))
	insertPhoto(t, db, "c", base.Add(time.Second))

	photos, err := db.GetPhotos(2, 0)
	if err != nil {
		t.Fatalf("GetPhotos: %v", err)
	}
	if len(photos) != 2 || photos[0].ID != "c" || photos[1].ID != "b" {
		t.Fatalf("unexpected first page: %+v", photos)
	}

	photos, err = db.GetPhotos(2, 2)
	if err != nil {
		t.Fatalf("GetPhotos: %v", err)
	}
	if len(photos) != 1 || photos[0].ID != "a" {
		t.Fatalf("unexpected second page: %+v", photos)
	}

	count, err := db.GetPhotoCount()
	if err != nil {
		t.Fatalf("GetPhotoCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 photos, got %d", count)
	}
}

func TestGetPhoto_RoundTripsMetadata(t *testing.T) {
	db := newTestDatabase(t)
	ts := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	insertPhoto(t, db, "x", ts, "party", "beach")

	p, err := db.GetPhoto("x")
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if !p.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", p.Timestamp, ts)
	}
	if len(p.Tags) != 2 || p.Tags[1] != "beach" {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.FilePath != "/tmp/x.jpg" {
		t.Errorf("file path = %q", p.FilePath)
	}
}

func TestGetPhoto_NotFound(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.GetPhoto("missing"); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound, got %v", err)
	}
	if err := db.DeletePhoto("missing"); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound on delete, got %v", err)
	}
}

func TestSearchPhotos(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()
	insertPhoto(t, db, "a", now, "Birthday")
	insertPhoto(t, db, "b", now.Add(time.Second), "work")

	photos, err := db.SearchPhotos("birth")
	if err != nil {
		t.Fatalf("SearchPhotos: %v", err)
	}
	if len(photos) != 1 || photos[0].ID != "a" {
		t.Fatalf("unexpected search result: %+v", photos)
	}
}

func TestGetSourceKeys(t *testing.T) {
	db := newTestDatabase(t)
	insertPhoto(t, db, "local", time.Now())
	p := Photo{ID: "remote", Filename: "r.jpg", Timestamp: time.Now(), ContentType: "image/jpeg", SourceKey: "trip/r.jpg"}
	if err := db.InsertPhoto(p); err != nil {
		t.Fatalf("InsertPhoto: %v", err)
	}

	keys, err := db.GetSourceKeys()
	if err != nil {
		t.Fatalf("GetSourceKeys: %v", err)
	}
	if len(keys) != 1 || keys["trip/r.jpg"] != "remote" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestUpdatePhotoMetadata(t *testing.T) {
	db := newTestDatabase(t)
	insertPhoto(t, db, "u", time.Now(), "old")

	if err := db.UpdatePhotoMetadata("u", "Sunset", "at the pier", []string{"beach"}); err != nil {
		t.Fatalf("UpdatePhotoMetadata: %v", err)
	}
	p, err := db.GetPhoto("u")
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if p.Title != "Sunset" || p.Description != "at the pier" {
		t.Errorf("title/description = %q/%q", p.Title, p.Description)
	}
	if len(p.Tags) != 1 || p.Tags[0] != "beach" {
		t.Errorf("tags = %v", p.Tags)
	}

	if err := db.UpdatePhotoMetadata("missing", "", "", nil); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound, got %v", err)
	}
}
