package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/deepfind/db/kvdb"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/meghashyamc/deepfind/validation"
)

const defaultSessionsPerPage = 20

const HeaderPaginationTotalCount = "X-Pagination-Total-Count"

type SessionsRequest struct {
	PerPage int `form:"per_page" json:"per_page" validate:"min=0,max=100"`
	Page    int `form:"page" json:"page" validate:"min=0"`
}

func (r *SessionsRequest) setDefaults() {
	if r.PerPage == 0 {
		r.PerPage = defaultSessionsPerPage
	}

	if r.Page == 0 {
		r.Page = 1
	}
}

type SessionsResponse struct {
	Sessions    []search.SessionStatus `json:"sessions"`
	PageDetails Pagination             `json:"page_details"`
}

func SetupSessions(router *gin.Engine, logger logger.Logger, service *search.Service, validator *validation.Validator) {
	router.GET("/sessions", handleListSessions(service, logger, validator))
	router.GET("/sessions/:id", handleGetSession(service, logger))
	router.DELETE("/sessions/:id", handleDeleteSession(service, logger))
}

func handleListSessions(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SessionsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from sessions request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate sessions request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}
		request.setDefaults()

		statuses, err := service.ListStatuses()
		if err != nil {
			logger.Error("failed to list sessions", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		limit := request.PerPage
		offset := (request.Page - 1) * request.PerPage
		start := min(offset, len(statuses))
		end := min(offset+limit, len(statuses))

		c.Header(HeaderPaginationTotalCount, strconv.Itoa(len(statuses)))
		writeResponse(c, SessionsResponse{
			Sessions:    statuses[start:end],
			PageDetails: calculatePagination(len(statuses), limit, offset),
		}, http.StatusOK, nil)
	}
}

func handleGetSession(service *search.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := service.GetStatus(c.Param("id"))
		if err != nil {
			if errors.Is(err, kvdb.ErrNotFound) || errors.Is(err, kvdb.ErrInvalidKey) {
				c.Abort()
				writeResponse(c, nil, http.StatusNotFound, []string{"session not found"})
				return
			}
			logger.Error("failed to get session status", "session_id", c.Param("id"), "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, status, http.StatusOK, nil)
	}
}

func handleDeleteSession(service *search.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.DeleteStatus(c.Param("id")); err != nil {
			if errors.Is(err, kvdb.ErrNotFound) || errors.Is(err, kvdb.ErrInvalidKey) {
				c.Abort()
				writeResponse(c, nil, http.StatusNotFound, []string{"session not found"})
				return
			}
			logger.Error("failed to delete session status", "session_id", c.Param("id"), "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}
