// Package api is the photo store web server
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aouyang1/photoslideshow/api/models"
	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/store"
	"github.com/aouyang1/photoslideshow/util"
	"github.com/gin-gonic/gin"
)

const (
	defaultPerPage = 20
	maxUploadSize  = 16 << 20
)

type Server struct {
	router  *gin.Engine
	db      *store.Database
	library *Library
	metrics *metrics.Metrics
}

func NewServer(db *store.Database, library *Library, m *metrics.Metrics) *Server {
	s := &Server{
		router:  gin.Default(),
		db:      db,
		library: library,
		metrics: m,
	}
	if m != nil {
		s.router.Use(m.Middleware())
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/photos", s.handleListPhotos)
	s.router.POST("/api/photos", s.handleUpload)
	s.router.GET("/api/photos/search", s.handleSearch)
	s.router.GET("/api/photos/:id", s.handleGetPhoto)
	s.router.PUT("/api/photos/:id", s.handleUpdatePhoto)
	s.router.DELETE("/api/photos/:id", s.handleDeletePhoto)
	s.router.GET("/api/photos/:id/file", s.handlePhotoFile)
	s.router.GET("/api/photos/:id/base64", s.handlePhotoBase64)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) handleListPhotos(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPerPage)

	total, err := s.db.GetPhotoCount()
	if err != nil {
		slog.Error("failed to count photos", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list photos: %v", err)})
		return
	}
	photos, err := s.db.GetPhotos(perPage, (page-1)*perPage)
	if err != nil {
		slog.Error("failed to list photos", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list photos: %v", err)})
		return
	}
	if photos == nil {
		photos = []store.Photo{}
	}

	c.JSON(http.StatusOK, models.PhotoListResponse{
		Photos:     photos,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Search query is required"})
		return
	}

	photos, err := s.db.SearchPhotos(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Search failed: %v", err)})
		return
	}
	if photos == nil {
		photos = []store.Photo{}
	}
	c.JSON(http.StatusOK, models.SearchResponse{Photos: photos, Total: len(photos), Query: query})
}

// lookupPhoto writes the error response itself and returns nil when the
// photo cannot be loaded.
func (s *Server) lookupPhoto(c *gin.Context) *store.Photo {
	photo, err := s.db.GetPhoto(c.Param("id"))
	if errors.Is(err, store.ErrPhotoNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Photo not found"})
		return nil
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to get photo: %v", err)})
		return nil
	}
	return photo
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	photo := s.lookupPhoto(c)
	if photo == nil {
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (s *Server) handlePhotoFile(c *gin.Context) {
	photo := s.lookupPhoto(c)
	if photo == nil {
		return
	}
	if _, err := os.Stat(photo.FilePath); err != nil {
		slog.Warn("photo file missing", "id", photo.ID, "path", photo.FilePath, "error", err)
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Photo file not found"})
		return
	}
	c.Header("Content-Type", photo.ContentType)
	c.File(photo.FilePath)
}

func (s *Server) handlePhotoBase64(c *gin.Context) {
	photo := s.lookupPhoto(c)
	if photo == nil {
		return
	}
	data, err := os.ReadFile(photo.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Photo file not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to read photo: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.Base64Response{
		PhotoID:     photo.ID,
		Base64Data:  base64.StdEncoding.EncodeToString(data),
		ContentType: photo.ContentType,
		Metadata:    *photo,
	})
}

func splitTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	// ParseMultipartForm reports ErrNotMultipart even when reading a
	// url-encoded body failed, so that body is parsed on its own first.
	err := c.Request.ParseForm()
	if err == nil {
		err = c.Request.ParseMultipartForm(s.router.MaxMultipartMemory)
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid form: %v", err)})
		return
	}

	meta := PhotoMeta{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if tags, ok := c.GetPostForm("tags"); ok {
		meta.Tags = splitTags(tags)
	}

	var photo store.Photo
	if file, fileErr := c.FormFile("file"); fileErr == nil {
		if file.Filename == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file selected"})
			return
		}
		if !util.IsSupported(file.Filename) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid file type"})
			return
		}
		f, openErr := file.Open()
		if openErr != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Upload failed: %v", openErr)})
			return
		}
		defer f.Close()

		meta.OriginalFilename = filepath.Base(file.Filename)
		photo, err = s.library.Add(f, util.Ext(file.Filename), meta)
	} else if encoded, ok := c.GetPostForm("base64_data"); ok {
		ext := strings.ToLower(c.DefaultPostForm("file_extension", "png"))
		if !util.SupportedExt.Contains(ext) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid file extension"})
			return
		}
		data, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid base64 data: %v", decodeErr)})
			return
		}
		photo, err = s.library.Add(bytes.NewReader(data), ext, meta)
	} else {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file or base64 data provided"})
		return
	}

	if err != nil {
		slog.Error("upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, models.UploadResponse{
		Message:  "Photo uploaded successfully",
		PhotoID:  photo.ID,
		Metadata: photo,
	})
}

func (s *Server) handleUpdatePhoto(c *gin.Context) {
	var req models.UpdatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	photo := s.lookupPhoto(c)
	if photo == nil {
		return
	}

	updated := false
	if req.Title != nil {
		photo.Title = *req.Title
		updated = true
	}
	if req.Description != nil {
		photo.Description = *req.Description
		updated = true
	}
	if len(req.Tags) > 0 && string(req.Tags) != "null" {
		var list []string
		var joined string
		switch {
		case json.Unmarshal(req.Tags, &list) == nil:
			photo.Tags = list
		case json.Unmarshal(req.Tags, &joined) == nil:
			photo.Tags = splitTags(joined)
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "tags must be a list or a comma-separated string"})
			return
		}
		updated = true
	}

	if !updated {
		c.JSON(http.StatusBadRequest, models.MessageResponse{Message: "No valid fields to update"})
		return
	}

	if err := s.db.UpdatePhotoMetadata(photo.ID, photo.Title, photo.Description, photo.Tags); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to update photo metadata: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.UpdateResponse{Message: "Photo metadata updated successfully", Metadata: *photo})
}

func (s *Server) handleDeletePhoto(c *gin.Context) {
	err := s.library.Remove(c.Param("id"))
	if errors.Is(err, store.ErrPhotoNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Photo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to delete photo: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Photo deleted successfully"})
}
