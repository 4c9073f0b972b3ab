// Package viewer serves the slideshow page and turns clicks and key presses
// into slideshow controller messages.
package viewer

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/aouyang1/photoslideshow/api/models"
	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/slideshow"
	"github.com/gin-gonic/gin"
)

//go:embed web/static
var webFiles embed.FS

type Server struct {
	router    *gin.Engine
	slideshow *slideshow.Controller
	metrics   *metrics.Metrics
	store     http.Handler
}

// NewServer wires the page to ctrl. Photo files are fetched through a
// reverse proxy to storeURL so the page only talks to one origin.
func NewServer(ctrl *slideshow.Controller, storeURL string, m *metrics.Metrics) (*Server, error) {
	target, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid photo store url %q: %w", storeURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("photo store url %q needs a scheme and host", storeURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("photo store proxy error", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	s := &Server{
		router:    gin.Default(),
		slideshow: ctrl,
		metrics:   m,
		store:     proxy,
	}
	if m != nil {
		s.router.Use(m.Middleware())
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	staticFS, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		return fmt.Errorf("failed to create static filesystem: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))

	s.router.GET("/", s.handlePage)
	s.router.GET("/view", s.handleView)

	s.router.POST("/actions/next", s.action(s.slideshow.Next))
	s.router.POST("/actions/prev", s.action(s.slideshow.Prev))
	s.router.POST("/actions/toggle", s.action(s.slideshow.TogglePlay))
	s.router.POST("/actions/refresh", s.action(s.slideshow.Refresh))
	s.router.POST("/actions/jump/:index", s.handleJump)
	s.router.POST("/actions/interval", s.handleInterval)
	s.router.POST("/keys", s.handleKey)

	mainImg, thumbImg := placeholders()
	s.router.GET(placeholderImageURL, func(c *gin.Context) {
		c.Data(http.StatusOK, "image/jpeg", mainImg)
	})
	s.router.GET(placeholderThumbnailURL, func(c *gin.Context) {
		c.Data(http.StatusOK, "image/jpeg", thumbImg)
	})

	s.router.GET("/api/*path", gin.WrapH(s.store))
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "slideshow": s.slideshow.View().Status.String()})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return nil
}

func render(c *gin.Context, status int, component templ.Component) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		slog.Error("failed to render view", "path", c.Request.URL.Path, "error", err)
	}
}

func (s *Server) handlePage(c *gin.Context) {
	render(c, http.StatusOK, Page(s.slideshow.View()))
}

func (s *Server) handleView(c *gin.Context) {
	render(c, http.StatusOK, Slideshow(s.slideshow.View()))
}

// renderAfterAction waits for the controller to apply the request's message
// so the returned fragment reflects it.
func (s *Server) renderAfterAction(c *gin.Context) {
	if err := s.slideshow.Flush(c.Request.Context()); err != nil {
		slog.Warn("slideshow did not settle before render", "error", err)
	}
	render(c, http.StatusOK, Slideshow(s.slideshow.View()))
}

func (s *Server) action(fn func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn()
		s.renderAfterAction(c)
	}
}

func (s *Server) handleJump(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid photo index"})
		return
	}
	s.slideshow.JumpTo(index)
	s.renderAfterAction(c)
}

func (s *Server) handleInterval(c *gin.Context) {
	ms, err := strconv.Atoi(c.PostForm("interval_ms"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "interval_ms must be an integer"})
		return
	}
	if err := s.slideshow.SetInterval(time.Duration(ms) * time.Millisecond); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	s.renderAfterAction(c)
}

func (s *Server) handleKey(c *gin.Context) {
	key := c.PostForm("key")
	if !s.slideshow.HandleKey(key) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Unbound key %q", key)})
		return
	}
	s.renderAfterAction(c)
}
