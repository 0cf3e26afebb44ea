package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/deepfind/api/handlers"
	"github.com/meghashyamc/deepfind/config"
	"github.com/meghashyamc/deepfind/db/kvdb"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/meghashyamc/deepfind/validation"
)

type server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	kvdb       kvdb.DB
	lister     *listing.Lister
	search     *search.Service
	views      *handlers.Views
	validator  *validation.Validator
	logger     logger.Logger
}

// Run serves the HTTP API until ctx is done or the process is interrupted.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)

	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.NewWithLevel(os.Stderr, logger.ParseLevel(cfg.GetLogLevel())),
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	s.setupRouter()
	errCh := s.setupHTTPServer()

	return s.setupGracefulShutdown(ctx, errCh)
}

func (s *server) setupDependencies() error {
	var err error
	s.kvdb, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}

	s.lister = listing.New(s.logger)
	s.search = search.New(s.logger, s.lister, s.kvdb, search.Options{
		ResultCap:            s.cfg.GetResultCap(),
		Skip:                 search.SkipNamed(s.cfg.GetSystemDirectory()),
		CaseInsensitivePaths: s.cfg.GetCaseInsensitivePaths(),
		ProgressFolders:      s.cfg.GetProgressFolders(),
		ProgressFiles:        s.cfg.GetProgressFiles(),
	})
	if err := s.search.ReconcileStatuses(); err != nil {
		s.logger.Warn("could not reconcile stale session statuses", "err", err.Error())
	}
	s.views = handlers.NewViews(s.search, s.lister, s.cfg.GetDebounce())

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		s.kvdb.Close()
		return err
	}

	return nil

}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))
	router.Use(metricsMiddleware())

	setupRoutes(router, s.logger, s.lister, s.search, s.views, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() <-chan error {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "err", err.Error())
			errCh <- err
		}
	}()
	return errCh
}

func (s *server) setupGracefulShutdown(ctx context.Context, errCh <-chan error) error {

	var serveErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
		case serveErr = <-errCh:
		}
		s.logger.Info("starting to shut down http server")
		shutdownCtx := context.Background()
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer cancel()
		// Closing the views ends open event streams so Shutdown does not wait on them.
		s.views.CloseAll()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", "err", err)
		}
		if err := s.kvdb.Close(); err != nil {
			s.logger.Error("error closing kvDB", "err", err)
		}
		s.logger.Info("shut down http server successfully")
	}()

	wg.Wait()
	return serveErr
}
