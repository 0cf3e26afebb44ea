package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/validation"
)

type ListRequest struct {
	Path string `form:"path" json:"path" validate:"valid_path"`
}

type ListResponse struct {
	Path    string          `json:"path"`
	Entries []listing.Entry `json:"entries"`
}

func SetupListing(router *gin.Engine, logger logger.Logger, lister *listing.Lister, validator *validation.Validator) {
	router.GET("/list", handleList(lister, logger, validator))
}

func handleList(lister *listing.Lister, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ListRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from list request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate list request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		entries := lister.List(request.Path)
		writeResponse(c, ListResponse{Path: request.Path, Entries: entries}, http.StatusOK, nil)
	}
}
