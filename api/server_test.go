package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aouyang1/photoslideshow/api/models"
	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testStore struct {
	root    string
	db      *store.Database
	library *Library
	handler http.Handler
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	root := t.TempDir()
	db, err := store.NewDatabase(filepath.Join(root, "photos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	library, err := NewLibrary(db, root)
	require.NoError(t, err)

	return &testStore{
		root:    root,
		db:      db,
		library: library,
		handler: NewServer(db, library, metrics.New()).Handler(),
	}
}

func (ts *testStore) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testStore) get(path string) *httptest.ResponseRecorder {
	return ts.serve(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testStore) add(t *testing.T, body string, meta PhotoMeta) store.Photo {
	t.Helper()
	photo, err := ts.library.Add(strings.NewReader(body), "jpg", meta)
	require.NoError(t, err)
	return photo
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formUpload(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/photos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestUpload_MultipartStoresFileAndMetadata(t *testing.T) {
	ts := newTestStore(t)

	rr := ts.serve(multipartUpload(t, "Beach.JPG", []byte("jpeg-data"), map[string]string{
		"title": "Beach",
		"tags":  "summer, sea ,,",
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[models.UploadResponse](t, rr)
	require.Equal(t, "Photo uploaded successfully", resp.Message)
	require.Equal(t, resp.PhotoID, resp.Metadata.ID)
	require.Equal(t, "Beach.JPG", resp.Metadata.OriginalFilename)
	require.Equal(t, resp.PhotoID+".jpg", resp.Metadata.Filename)
	require.Equal(t, "image/jpeg", resp.Metadata.ContentType)
	require.Equal(t, int64(len("jpeg-data")), resp.Metadata.FileSize)
	require.Equal(t, []string{"summer", "sea"}, resp.Metadata.Tags)

	data, err := os.ReadFile(filepath.Join(ts.root, "photos", resp.Metadata.Filename))
	require.NoError(t, err)
	require.Equal(t, "jpeg-data", string(data))
}

func TestUpload_Base64(t *testing.T) {
	ts := newTestStore(t)

	rr := ts.serve(formUpload(url.Values{
		"base64_data":    {base64.StdEncoding.EncodeToString([]byte("png-data"))},
		"file_extension": {"png"},
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[models.UploadResponse](t, rr)
	require.Equal(t, "upload.png", resp.Metadata.OriginalFilename)
	require.Equal(t, "image/png", resp.Metadata.ContentType)
}

func TestUpload_Rejections(t *testing.T) {
	ts := newTestStore(t)

	tests := []struct {
		name string
		req  *http.Request
		code int
		want string
	}{
		{"nothing provided", formUpload(url.Values{"title": {"x"}}), http.StatusBadRequest, "No file or base64 data provided"},
		{"bad file type", multipartUpload(t, "notes.txt", []byte("x"), nil), http.StatusBadRequest, "Invalid file type"},
		{"bad base64 extension", formUpload(url.Values{"base64_data": {"aGk="}, "file_extension": {"tiff"}}), http.StatusBadRequest, "Invalid file extension"},
		{"bad base64 data", formUpload(url.Values{"base64_data": {"%%%"}}), http.StatusBadRequest, "Invalid base64 data"},
		{
			"too large",
			formUpload(url.Values{"base64_data": {strings.Repeat("A", maxUploadSize+1)}}),
			http.StatusRequestEntityTooLarge,
			"File too large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.serve(tt.req)
			require.Equal(t, tt.code, rr.Code)
			require.Contains(t, decode[models.ErrorResponse](t, rr).Error, tt.want)
		})
	}

	count, err := ts.db.GetPhotoCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestListPhotos_Paging(t *testing.T) {
	ts := newTestStore(t)
	for range 5 {
		ts.add(t, "x", PhotoMeta{})
	}

	resp := decode[models.PhotoListResponse](t, ts.get("/api/photos?page=2&per_page=2"))
	require.Len(t, resp.Photos, 2)
	require.Equal(t, 5, resp.Total)
	require.Equal(t, 2, resp.Page)
	require.Equal(t, 2, resp.PerPage)
	require.Equal(t, 3, resp.TotalPages)

	resp = decode[models.PhotoListResponse](t, ts.get("/api/photos?per_page=abc"))
	require.Equal(t, defaultPerPage, resp.PerPage)
	require.Len(t, resp.Photos, 5)
}

func TestListPhotos_EmptyIsArray(t *testing.T) {
	ts := newTestStore(t)

	rr := ts.get("/api/photos")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"photos":[]`)
}

func TestSearch(t *testing.T) {
	ts := newTestStore(t)
	ts.add(t, "x", PhotoMeta{Title: "Birthday"})
	ts.add(t, "x", PhotoMeta{Tags: []string{"party"}})
	ts.add(t, "x", PhotoMeta{Description: "quiet morning"})

	resp := decode[models.SearchResponse](t, ts.get("/api/photos/search?q=PARTY"))
	require.Equal(t, 1, resp.Total)
	require.Equal(t, "PARTY", resp.Query)

	rr := ts.get("/api/photos/search")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPhotoAndFile(t *testing.T) {
	ts := newTestStore(t)
	photo := ts.add(t, "image-bytes", PhotoMeta{Title: "t"})

	meta := decode[store.Photo](t, ts.get("/api/photos/"+photo.ID))
	require.Equal(t, photo.ID, meta.ID)
	require.Equal(t, "t", meta.Title)
	require.NotContains(t, ts.get("/api/photos/"+photo.ID).Body.String(), "file_path")

	rr := ts.get("/api/photos/" + photo.ID + "/file")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	require.Equal(t, "image-bytes", rr.Body.String())

	b64 := decode[models.Base64Response](t, ts.get("/api/photos/"+photo.ID+"/base64"))
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("image-bytes")), b64.Base64Data)

	require.Equal(t, http.StatusNotFound, ts.get("/api/photos/missing").Code)
	require.Equal(t, http.StatusNotFound, ts.get("/api/photos/missing/file").Code)

	require.NoError(t, os.Remove(photo.FilePath))
	rr = ts.get("/api/photos/" + photo.ID + "/file")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "Photo file not found")
}

func TestUpdatePhoto(t *testing.T) {
	ts := newTestStore(t)
	photo := ts.add(t, "x", PhotoMeta{Title: "old"})

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/photos/"+photo.ID, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return ts.serve(req)
	}

	rr := put(`{"title":"new","tags":"a, b"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[models.UpdateResponse](t, rr)
	require.Equal(t, "new", resp.Metadata.Title)
	require.Equal(t, []string{"a", "b"}, resp.Metadata.Tags)

	rr = put(`{"tags":["c"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	stored, err := ts.db.GetPhoto(photo.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, stored.Tags)
	require.Equal(t, "new", stored.Title)

	require.Equal(t, http.StatusBadRequest, put(`{"camera":"x"}`).Code)
	require.Equal(t, http.StatusBadRequest, put(`{"tags":42}`).Code)
}

func TestDeletePhoto(t *testing.T) {
	ts := newTestStore(t)
	photo := ts.add(t, "x", PhotoMeta{})

	del := func() *httptest.ResponseRecorder {
		return ts.serve(httptest.NewRequest(http.MethodDelete, "/api/photos/"+photo.ID, nil))
	}

	rr := del()
	require.Equal(t, http.StatusOK, rr.Code)
	_, err := os.Stat(photo.FilePath)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, http.StatusNotFound, del().Code)
}
