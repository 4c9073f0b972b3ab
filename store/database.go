// Package store database for photo metadata
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrPhotoNotFound = errors.New("photo not found")

// timestamps are stored fixed-width in UTC so text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// importers and handlers write concurrently; a single connection serializes them
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{db: db}

	// Create table if it doesn't exist
	if err := database.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return database, nil
}

func (d *Database) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS photos (
		id                TEXT NOT NULL PRIMARY KEY,
		filename          TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		timestamp         TEXT NOT NULL,
		file_size         INTEGER NOT NULL,
		file_path         TEXT NOT NULL,
		content_type      TEXT NOT NULL,
		title             TEXT NOT NULL DEFAULT '',
		description       TEXT NOT NULL DEFAULT '',
		tags              TEXT NOT NULL DEFAULT '[]',
		source_key        TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_photos_timestamp ON photos(timestamp);
	CREATE INDEX IF NOT EXISTS idx_photos_source_key ON photos(source_key);
	`
	_, err := d.db.Exec(query)
	return err
}

const photoColumns = `id, filename, original_filename, timestamp, file_size, file_path,
	content_type, title, description, tags, source_key`

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (Photo, error) {
	var p Photo
	var ts, tags string
	if err := row.Scan(
		&p.ID, &p.Filename, &p.OriginalFilename, &ts, &p.FileSize, &p.FilePath,
		&p.ContentType, &p.Title, &p.Description, &tags, &p.SourceKey,
	); err != nil {
		return p, err
	}

	parsed, err := time.Parse(timeLayout, ts)
	if err != nil {
		return p, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	p.Timestamp = parsed

	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return p, fmt.Errorf("invalid tags for %s: %w", p.ID, err)
	}
	return p, nil
}

func (d *Database) InsertPhoto(p Photo) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	if p.Tags == nil {
		tags = []byte("[]")
	}

	query := `INSERT INTO photos (` + photoColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = d.db.Exec(query,
		p.ID, p.Filename, p.OriginalFilename, p.Timestamp.UTC().Format(timeLayout),
		p.FileSize, p.FilePath, p.ContentType, p.Title, p.Description, string(tags), p.SourceKey,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (d *Database) queryPhotos(query string, args ...any) ([]Photo, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return photos, nil
}

// GetPhotos returns one page of photos, newest first.
func (d *Database) GetPhotos(limit int, offset int) ([]Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		ORDER BY timestamp DESC, id ASC
		LIMIT ? OFFSET ?
	`
	return d.queryPhotos(query, limit, offset)
}

func (d *Database) GetAllPhotos() ([]Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		ORDER BY timestamp DESC, id ASC
	`
	return d.queryPhotos(query)
}

// SearchPhotos matches query case-insensitively against title, description and each tag.
func (d *Database) SearchPhotos(query string) ([]Photo, error) {
	all, err := d.GetAllPhotos()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var matched []Photo
	for _, p := range all {
		if photoMatches(p, q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func photoMatches(p Photo, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (d *Database) GetPhoto(id string) (*Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = ?`
	p, err := scanPhoto(d.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &p, nil
}

func (d *Database) GetPhotoCount() (int, error) {
	query := `SELECT COUNT(*) FROM photos`
	var count int
	err := d.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get photo count: %w", err)
	}
	return count, nil
}

// GetSourceKeys maps every imported S3 object key to its photo id.
func (d *Database) GetSourceKeys() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT source_key, id FROM photos WHERE source_key != ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("failed to scan source key: %w", err)
		}
		keys[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return keys, nil
}

// UpdatePhotoMetadata replaces the editable fields of a photo.
func (d *Database) UpdatePhotoMetadata(id, title, description string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `UPDATE photos SET title = ?, description = ?, tags = ? WHERE id = ?`
	result, err := d.db.Exec(query, title, description, string(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to update photo: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}
	return nil
}

func (d *Database) DeletePhoto(id string) error {
	query := `DELETE FROM photos WHERE id = ?`
	result, err := d.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
