package store

import "time"

// Photo is the metadata record of one stored image. ID is its identity.
type Photo struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	FileSize         int64     `json:"file_size,omitempty"`
	FilePath         string    `json:"-"`
	ContentType      string    `json:"content_type,omitempty"`
	Title            string    `json:"title,omitempty"`
	Description      string    `json:"description,omitempty"`
	Tags             []string  `json:"tags,omitempty"`

	// SourceKey is the S3 object key a photo was imported from, if any.
	SourceKey string `json:"source_key,omitempty"`
}
