package handlers

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/metrics"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/meghashyamc/deepfind/validation"
)

// QueryRequest is one edit of a view's search box. An empty query cancels the
// running search.
type QueryRequest struct {
	Path  string `json:"path" validate:"valid_path"`
	Query string `json:"query" validate:"max=1024"`
}

type ViewResponse struct {
	ViewID string `json:"view_id"`
}

type ViewStatusResponse struct {
	ViewID    string `json:"view_id"`
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state,omitempty"`
}

// Views tracks one search gateway per open view.
type Views struct {
	mu       sync.Mutex
	gateways map[string]*search.Gateway
	service  *search.Service
	lister   *listing.Lister
	debounce time.Duration
}

func NewViews(service *search.Service, lister *listing.Lister, debounce time.Duration) *Views {
	return &Views{
		gateways: make(map[string]*search.Gateway),
		service:  service,
		lister:   lister,
		debounce: debounce,
	}
}

func (v *Views) open() string {
	id := uuid.NewString()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gateways[id] = search.NewGateway(v.service, v.lister, v.debounce, 0)
	return id
}

func (v *Views) get(id string) (*search.Gateway, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	gateway, ok := v.gateways[id]
	return gateway, ok
}

func (v *Views) close(id string) bool {
	v.mu.Lock()
	gateway, ok := v.gateways[id]
	delete(v.gateways, id)
	v.mu.Unlock()

	if ok {
		gateway.Close()
	}
	return ok
}

// CloseAll cancels every open view's search.
func (v *Views) CloseAll() {
	v.mu.Lock()
	gateways := v.gateways
	v.gateways = make(map[string]*search.Gateway)
	v.mu.Unlock()

	for _, gateway := range gateways {
		gateway.Close()
	}
}

func SetupViews(router *gin.Engine, logger logger.Logger, views *Views, validator *validation.Validator) {
	router.POST("/views", handleOpenView(views, logger))
	router.GET("/views/:id", handleGetView(views))
	router.DELETE("/views/:id", handleCloseView(views, logger))
	router.PUT("/views/:id/query", handleSubmitQuery(views, logger, validator))
	router.DELETE("/views/:id/query", handleCancelQuery(views))
	router.POST("/views/:id/resume", handleResume(views, logger))
	router.GET("/views/:id/events", handleEvents(views, logger))
}

func handleOpenView(views *Views, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := views.open()
		logger.Info("opened view", "view_id", id)
		writeResponse(c, ViewResponse{ViewID: id}, http.StatusCreated, nil)
	}
}

func handleGetView(views *Views) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway, ok := findView(c, views)
		if !ok {
			return
		}

		response := ViewStatusResponse{ViewID: c.Param("id"), SessionID: gateway.Active()}
		if session := gateway.Session(); session != nil {
			response.State = session.State().String()
		}
		writeResponse(c, response, http.StatusOK, nil)
	}
}

func handleCloseView(views *Views, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !views.close(c.Param("id")) {
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"view not found"})
			return
		}
		logger.Info("closed view", "view_id", c.Param("id"))
		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func handleSubmitQuery(views *Views, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway, ok := findView(c, views)
		if !ok {
			return
		}

		request := QueryRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from query request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate query request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		gateway.Submit(request.Path, request.Query)
		writeResponse(c, nil, http.StatusAccepted, nil)
	}
}

func handleCancelQuery(views *Views) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway, ok := findView(c, views)
		if !ok {
			return
		}

		gateway.Cancel()
		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func handleResume(views *Views, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway, ok := findView(c, views)
		if !ok {
			return
		}

		if err := gateway.Resume(); err != nil {
			if errors.Is(err, search.ErrNoSession) || errors.Is(err, search.ErrNotPaused) {
				c.Abort()
				writeResponse(c, nil, http.StatusConflict, []string{err.Error()})
				return
			}
			logger.Error("failed to resume search", "view_id", c.Param("id"), "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

// handleEvents streams the view's current search as server-sent events until
// the client goes away or the view is closed. A view has one event queue, so
// concurrent streams on the same view split its events.
func handleEvents(views *Views, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway, ok := findView(c, views)
		if !ok {
			return
		}

		metrics.IncSSEConnections()
		defer metrics.DecSSEConnections()
		logger.Debug("event stream opened", "view_id", c.Param("id"))

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case <-gateway.Done():
				return false
			case event := <-gateway.Events():
				if !gateway.IsActive(event.SessionID) {
					return true
				}
				c.SSEvent(string(event.Kind), event)
				return true
			}
		})
		logger.Debug("event stream closed", "view_id", c.Param("id"))
	}
}

func findView(c *gin.Context, views *Views) (*search.Gateway, bool) {
	gateway, ok := views.get(c.Param("id"))
	if !ok {
		c.Abort()
		writeResponse(c, nil, http.StatusNotFound, []string{"view not found"})
	}
	return gateway, ok
}
