package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/metrics"
	"github.com/meghashyamc/deepfind/services/listing"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Callbacks receive everything a session produces. They run on the session's
// worker goroutine, for the initial run and every resume alike.
type Callbacks struct {
	OnProgress ProgressFunc
	OnMatch    MatchFunc
	// OnState is told about Running, Paused and Completed. Cancellation is
	// initiated by the caller and is not reported back.
	OnState func(state State)
}

// Session is one user-visible search over a root directory.
type Session struct {
	id        string
	root      string
	query     string
	resultCap int
	engine    *Engine
	logger    logger.Logger
	recorder  *statusRecorder

	mu        sync.Mutex
	state     State
	callbacks Callbacks
	traversal *TraversalState
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   chan struct{}

	cancelled atomic.Bool
	emitted   atomic.Int64
	folders   atomic.Int64
	files     atomic.Int64
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Root() string {
	return s.root
}

func (s *Session) Query() string {
	return s.query
}

func (s *Session) ResultCap() int {
	return s.resultCap
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the folders and files checked so far and the number of
// matches emitted across all runs.
func (s *Session) Stats() (foldersChecked int, filesChecked int, emitted int) {
	return int(s.folders.Load()), int(s.files.Load()), int(s.emitted.Load())
}

// Start launches the first run. It may be called once, on an idle session.
func (s *Session) Start(callbacks Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: session %s is %s", ErrAlreadyStarted, s.id, s.state)
	}

	s.callbacks = callbacks
	s.launch(nil)
	return nil
}

// Resume continues a paused session from where it stopped. It waits for the
// previous run to finish reporting before the next run starts.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		defer s.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s", ErrNotPaused, s.id, s.state)
	}
	previous := s.done
	s.mu.Unlock()

	if previous != nil {
		<-previous
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancelled or resumed by someone else while waiting.
	if s.state != StatePaused {
		return fmt.Errorf("%w: session %s is %s", ErrNotPaused, s.id, s.state)
	}

	state := s.traversal
	s.traversal = nil
	s.launch(state)
	return nil
}

// Cancel stops the session. It is safe to call any number of times and after
// completion, which it leaves untouched. Once Cancel returns no callback is
// started; one already executing on the worker may still finish.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}

	s.cancelled.Store(true)
	s.closeStoppedLocked()
	s.state = StateCancelled
	s.traversal = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("search cancelled", "session_id", s.id)
	s.recorder.record(s, StateCancelled)
}

// Stopped is closed once the session is cancelled. Consumers blocked on
// delivering the session's output can select on it to give up.
func (s *Session) Stopped() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped == nil {
		s.stopped = make(chan struct{})
		if s.state == StateCancelled {
			close(s.stopped)
		}
	}
	return s.stopped
}

// closeStoppedLocked closes the stopped channel. s.mu must be held.
func (s *Session) closeStoppedLocked() {
	if s.stopped == nil {
		s.stopped = make(chan struct{})
	}
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
}

// Wait blocks until the current run has stopped or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch starts a worker for one run. s.mu must be held.
func (s *Session) launch(state *TraversalState) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.state = StateRunning
	s.cancel = cancel
	s.done = done
	s.recorder.record(s, StateRunning)

	go s.run(ctx, cancel, state, done)
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, state *TraversalState, done chan struct{}) {
	defer close(done)
	defer cancel()

	started := time.Now()
	startFolders, startFiles := s.folders.Load(), s.files.Load()
	metrics.RecordRunStarted()
	s.notifyState(StateRunning)

	request := Request{
		Root:       s.root,
		Query:      s.query,
		Limit:      s.resultCap,
		OnProgress: s.deliverProgress,
		OnMatch:    s.deliverMatch,
	}
	final, outcome := s.engine.Traverse(ctx, request, state)
	if outcome != OutcomeCancelled {
		s.folders.Store(int64(final.FoldersChecked()))
		s.files.Store(int64(final.FilesChecked()))
	}

	s.mu.Lock()
	if s.state == StateRunning {
		switch outcome {
		case OutcomePaused:
			s.state = StatePaused
			s.traversal = final
		case OutcomeCompleted:
			s.state = StateCompleted
		}
	}
	current := s.state
	// Recorded before unlocking so a Cancel or Resume that follows can
	// never be overwritten by this run's outcome.
	if current != StateCancelled {
		s.recorder.record(s, current)
	}
	s.mu.Unlock()

	metrics.RecordRunFinished(outcome.String(), time.Since(started),
		int(s.folders.Load()-startFolders), int(s.files.Load()-startFiles))

	if current == StateCancelled {
		return
	}

	folders, files, emitted := s.Stats()
	s.logger.Info("search run finished", "session_id", s.id, "state", current.String(),
		"folders_checked", folders, "files_checked", files, "emitted", emitted, "duration", time.Since(started).String())
	s.notifyState(current)
}

func (s *Session) deliverMatch(entry listing.Entry) {
	if s.cancelled.Load() {
		return
	}
	s.emitted.Add(1)
	metrics.RecordMatch()
	if s.callbacks.OnMatch != nil {
		s.callbacks.OnMatch(entry)
	}
}

func (s *Session) deliverProgress(foldersChecked int, filesChecked int) {
	if s.cancelled.Load() {
		return
	}
	s.folders.Store(int64(foldersChecked))
	s.files.Store(int64(filesChecked))
	if s.callbacks.OnProgress != nil {
		s.callbacks.OnProgress(foldersChecked, filesChecked)
	}
}

func (s *Session) notifyState(state State) {
	if s.cancelled.Load() || s.callbacks.OnState == nil {
		return
	}
	s.callbacks.OnState(state)
}
