package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aouyang1/photoslideshow/store"
	"github.com/aouyang1/photoslideshow/util"
	"github.com/google/uuid"
)

var ErrUnsupportedExt = errors.New("unsupported file extension")

// PhotoMeta is what a caller knows about a photo before it is stored.
type PhotoMeta struct {
	OriginalFilename string
	Title            string
	Description      string
	Tags             []string
	SourceKey        string
}

// Library writes photo files under {root}/photos and keeps their metadata
// in the database. The upload handler and both importers go through it.
type Library struct {
	db        *store.Database
	photosDir string
}

func NewLibrary(db *store.Database, rootPath string) (*Library, error) {
	photosDir := filepath.Join(rootPath, "photos")
	if err := os.MkdirAll(photosDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photos directory: %w", err)
	}
	return &Library{db: db, photosDir: photosDir}, nil
}

// Add stores the image read from r under a fresh id. ext is the file
// extension without the dot.
func (l *Library) Add(r io.Reader, ext string, meta PhotoMeta) (store.Photo, error) {
	ext = strings.ToLower(ext)
	if !util.SupportedExt.Contains(ext) {
		return store.Photo{}, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}

	id := uuid.NewString()
	filename := id + "." + ext
	filePath := filepath.Join(l.photosDir, filename)

	f, err := os.Create(filePath)
	if err != nil {
		return store.Photo{}, fmt.Errorf("failed to create photo file: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return store.Photo{}, fmt.Errorf("failed to write photo file: %w", err)
	}

	if meta.OriginalFilename == "" {
		meta.OriginalFilename = "upload." + ext
	}
	photo := store.Photo{
		ID:               id,
		Filename:         filename,
		OriginalFilename: meta.OriginalFilename,
		Timestamp:        time.Now().UTC(),
		FileSize:         size,
		FilePath:         filePath,
		ContentType:      util.ContentType(filename),
		Title:            meta.Title,
		Description:      meta.Description,
		Tags:             meta.Tags,
		SourceKey:        meta.SourceKey,
	}
	if err := l.db.InsertPhoto(photo); err != nil {
		// Clean up file if DB insert fails
		os.Remove(filePath)
		return store.Photo{}, err
	}

	slog.Info("stored photo", "id", id, "original_filename", photo.OriginalFilename, "size", size)
	return photo, nil
}

// Remove deletes the photo's metadata and its file. A file that is already
// gone is not an error.
func (l *Library) Remove(id string) error {
	photo, err := l.db.GetPhoto(id)
	if err != nil {
		return err
	}
	if err := l.db.DeletePhoto(id); err != nil {
		return err
	}
	if err := os.Remove(photo.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("unable to remove photo file", "id", id, "path", photo.FilePath, "error", err)
	}
	slog.Info("removed photo", "id", id)
	return nil
}
