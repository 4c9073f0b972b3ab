// Package models tracks all api models for request and responses
package models

import (
	"encoding/json"

	"github.com/aouyang1/photoslideshow/store"
)

type PhotoListResponse struct {
	Photos     []store.Photo `json:"photos"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

type SearchResponse struct {
	Photos []store.Photo `json:"photos"`
	Total  int           `json:"total"`
	Query  string        `json:"query"`
}

type UploadResponse struct {
	Message  string      `json:"message"`
	PhotoID  string      `json:"photo_id"`
	Metadata store.Photo `json:"metadata"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Base64Response struct {
	PhotoID     string      `json:"photo_id"`
	Base64Data  string      `json:"base64_data"`
	ContentType string      `json:"content_type"`
	Metadata    store.Photo `json:"metadata"`
}

// UpdatePhotoRequest carries the editable fields of a photo. Tags is either
// a list of strings or one comma-separated string.
type UpdatePhotoRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Tags        json.RawMessage `json:"tags"`
}

type UpdateResponse struct {
	Message  string      `json:"message"`
	Metadata store.Photo `json:"metadata"`
}
