package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/metrics"
	"github.com/meghashyamc/deepfind/services/listing"
)

const (
	DefaultResultCap = 20
	// Unbounded disables the result cap for a session.
	Unbounded = -1
)

type Options struct {
	// ResultCap is the default number of matches per run before a session
	// pauses.
	ResultCap            int
	Skip                 SkipPredicate
	CaseInsensitivePaths bool
	ProgressFolders      int
	ProgressFiles        int
}

type Service struct {
	logger    logger.Logger
	engine    *Engine
	resultCap int
	recorder  *statusRecorder
}

// New creates a search service. store may be nil, in which case session
// status is not recorded.
func New(logger logger.Logger, reader DirectoryReader, store StatusStore, opts Options) *Service {
	resultCap := opts.ResultCap
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}

	return &Service{
		logger: logger,
		engine: NewEngine(logger, reader, EngineOptions{
			Skip:                 opts.Skip,
			CaseInsensitivePaths: opts.CaseInsensitivePaths,
			ProgressFolders:      opts.ProgressFolders,
			ProgressFiles:        opts.ProgressFiles,
		}),
		resultCap: resultCap,
		recorder:  &statusRecorder{store: store, logger: logger},
	}
}

// ResultCap is the cap sessions get when none is requested.
func (s *Service) ResultCap() int {
	return s.resultCap
}

// Start validates the request and launches a session. resultCap 0 uses the
// service default and Unbounded disables the cap. A rejected request
// returns an error wrapping ErrNotStarted and fires no callbacks.
func (s *Service) Start(rootPath string, query string, callbacks Callbacks, resultCap int) (*Session, error) {
	session, err := s.NewSession(rootPath, query, resultCap)
	if err != nil {
		return nil, err
	}

	if err := session.Start(callbacks); err != nil {
		return nil, err
	}
	return session, nil
}

// NewSession validates the request and returns an idle session, letting
// callers learn the session ID before any callback can fire.
func (s *Service) NewSession(rootPath string, query string, resultCap int) (*Session, error) {
	root, err := s.validate(rootPath, query)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			metrics.RecordSearchRejected(rejectionReason(rejected.Reason))
		}
		s.logger.Warn("search request rejected", "root", rootPath, "err", err.Error())
		return nil, err
	}

	switch {
	case resultCap == 0:
		resultCap = s.resultCap
	case resultCap < 0:
		resultCap = 0
	}

	session := &Session{
		id:        uuid.NewString(),
		root:      root,
		query:     query,
		resultCap: resultCap,
		engine:    s.engine,
		logger:    s.logger,
		recorder:  s.recorder,
		state:     StateIdle,
	}

	metrics.RecordSearchStarted()
	s.logger.Info("search session created", "session_id", session.id, "root", root, "query", query, "result_cap", resultCap)
	return session, nil
}

// GetStatus returns the last recorded status of a session.
func (s *Service) GetStatus(sessionID string) (*SessionStatus, error) {
	return s.recorder.get(sessionID)
}

// DeleteStatus forgets a recorded session. It does not affect a live session.
func (s *Service) DeleteStatus(sessionID string) error {
	if err := s.recorder.remove(sessionID); err != nil {
		return err
	}
	s.logger.Info("deleted session status", "session_id", sessionID)
	return nil
}

// ListStatuses returns every recorded session status, newest first.
func (s *Service) ListStatuses() ([]SessionStatus, error) {
	statuses, err := s.recorder.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].UpdatedAt.After(statuses[j].UpdatedAt)
	})
	return statuses, nil
}

// ReconcileStatuses closes out sessions recorded as live by an earlier process.
func (s *Service) ReconcileStatuses() error {
	reconciled, err := s.recorder.reconcile()
	if err != nil {
		return err
	}
	if reconciled > 0 {
		s.logger.Info("marked stale sessions as cancelled", "count", reconciled)
	}
	return nil
}

func (s *Service) validate(rootPath string, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", &RejectedError{Root: rootPath, Reason: ErrEmptyQuery}
	}
	if rootPath == listing.RootPath {
		return "", &RejectedError{Reason: ErrSyntheticRoot}
	}

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return "", &RejectedError{Root: rootPath, Reason: fmt.Errorf("%w: %s", ErrRootNotFound, err)}
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", &RejectedError{Root: rootPath, Reason: fmt.Errorf("%w: %s", ErrRootNotFound, err)}
	}
	if !info.IsDir() {
		return "", &RejectedError{Root: rootPath, Reason: ErrRootNotFound}
	}

	return root, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrSyntheticRoot):
		return "synthetic_root"
	case errors.Is(err, ErrRootNotFound):
		return "root_not_found"
	default:
		return "other"
	}
}
