package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/deepfind/api/handlers"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/metrics"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/meghashyamc/deepfind/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, lister *listing.Lister, service *search.Service, views *handlers.Views, validator *validation.Validator) {
	router.GET("/health", health())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handlers.SetupListing(router, logger, lister, validator)
	handlers.SetupViews(router, logger, views, validator)
	handlers.SetupSessions(router, logger, service, validator)

}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
