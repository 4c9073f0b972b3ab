package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aouyang1/photoslideshow/api/models"
	"github.com/aouyang1/photoslideshow/store"
)

const defaultTimeout = 10 * time.Second

// TransportError means the photo list request never got an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the server answered with a non-success status.
type ProtocolError struct {
	StatusCode int
	Message    string
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

type PhotoClient struct {
	baseURL  string
	client   *http.Client
	pageSize int
}

type Option func(*PhotoClient)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(c *http.Client) Option {
	return func(pc *PhotoClient) { pc.client = c }
}

// WithPageSize asks the server for up to n photos per list request.
func WithPageSize(n int) Option {
	return func(pc *PhotoClient) { pc.pageSize = n }
}

func NewPhotoClient(baseURL string, opts ...Option) *PhotoClient {
	pc := &PhotoClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

// FileURL is the address of the image payload for a photo id.
func (pc *PhotoClient) FileURL(id string) string {
	return fmt.Sprintf("%s/api/photos/%s/file", pc.baseURL, url.PathEscape(id))
}

// ListPhotos fetches the photo list in server order. A body without a usable
// photos array is not an error and yields an empty list.
func (pc *PhotoClient) ListPhotos(ctx context.Context) ([]store.Photo, error) {
	listURL := pc.baseURL + "/api/photos"
	if pc.pageSize > 0 {
		listURL += "?per_page=" + strconv.Itoa(pc.pageSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProtocolError{StatusCode: resp.StatusCode}
		var errResp models.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			perr.Message = errResp.Error
		}
		return nil, perr
	}

	return decodePhotoList(body), nil
}

func decodePhotoList(body []byte) []store.Photo {
	var envelope struct {
		Photos json.RawMessage `json:"photos"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.Warn("malformed photo list response, treating as empty", "error", err)
		return []store.Photo{}
	}

	raw := bytes.TrimSpace(envelope.Photos)
	if len(raw) == 0 || raw[0] != '[' {
		return []store.Photo{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("malformed photos array, treating as empty", "error", err)
		return []store.Photo{}
	}

	photos := make([]store.Photo, 0, len(items))
	for _, item := range items {
		var p store.Photo
		if err := json.Unmarshal(item, &p); err != nil {
			// only the id matters for display, keep the photo if that much decodes
			var idOnly struct {
				ID json.RawMessage `json:"id"`
			}
			if err := json.Unmarshal(item, &idOnly); err != nil {
				slog.Debug("skipping undecodable photo entry", "error", err)
				continue
			}
			p = store.Photo{ID: opaqueID(idOnly.ID)}
		}
		if p.ID == "" {
			slog.Debug("skipping photo entry without id")
			continue
		}
		photos = append(photos, p)
	}
	return photos
}

// opaqueID accepts a string or a number as a photo id; numbers keep their
// JSON spelling.
func opaqueID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
