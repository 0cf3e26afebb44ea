package search

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
)

const (
	defaultProgressFolders = 10
	defaultProgressFiles   = 100
)

// Outcome is how a call to Traverse ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomePaused
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePaused:
		return "paused"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DirectoryReader is the single-directory primitive the engine expands the
// tree with.
type DirectoryReader interface {
	ReadChildren(path string) ([]listing.Child, error)
	Materialize(parentPath string, child listing.Child) (listing.Entry, error)
}

type ProgressFunc func(foldersChecked int, filesChecked int)

type MatchFunc func(entry listing.Entry)

// Request describes one traversal call.
type Request struct {
	Root  string
	Query string
	// Limit is the number of matches after which the call pauses; 0 means
	// no limit.
	Limit      int
	OnProgress ProgressFunc
	OnMatch    MatchFunc
}

type EngineOptions struct {
	Skip                 SkipPredicate
	CaseInsensitivePaths bool
	ProgressFolders      int
	ProgressFiles        int
}

// Engine walks a directory tree breadth-first and reports entries whose base
// name contains the query.
type Engine struct {
	reader          DirectoryReader
	logger          logger.Logger
	skip            SkipPredicate
	caseInsensitive bool
	progressFolders int
	progressFiles   int
}

func NewEngine(logger logger.Logger, reader DirectoryReader, opts EngineOptions) *Engine {
	engine := &Engine{
		reader:          reader,
		logger:          logger,
		skip:            opts.Skip,
		caseInsensitive: opts.CaseInsensitivePaths,
		progressFolders: opts.ProgressFolders,
		progressFiles:   opts.ProgressFiles,
	}
	if engine.skip == nil {
		engine.skip = SkipNothing
	}
	if engine.progressFolders <= 0 {
		engine.progressFolders = defaultProgressFolders
	}
	if engine.progressFiles <= 0 {
		engine.progressFiles = defaultProgressFiles
	}

	return engine
}

// Traverse runs the traversal until the tree is exhausted, ctx is cancelled
// or req.Limit matches were emitted. A nil state starts fresh at req.Root;
// otherwise the walk continues exactly where state left off. The returned
// state is only meaningful for OutcomePaused.
//
// Callbacks run synchronously on the calling goroutine and are never invoked
// once ctx is done.
func (e *Engine) Traverse(ctx context.Context, req Request, state *TraversalState) (*TraversalState, Outcome) {
	if state == nil {
		state = NewTraversalState(req.Root)
	}

	t := &traversal{
		engine:      e,
		ctx:         ctx,
		req:         req,
		state:       state,
		root:        filepath.Clean(req.Root),
		query:       strings.ToLower(req.Query),
		lastFolders: state.foldersChecked,
		lastFiles:   state.filesChecked,
	}

	return state, t.run()
}

type traversal struct {
	engine      *Engine
	ctx         context.Context
	req         Request
	state       *TraversalState
	root        string
	query       string
	emitted     int
	lastFolders int
	lastFiles   int
}

func (t *traversal) run() Outcome {
	for !t.state.Exhausted() {
		if t.ctx.Err() != nil {
			return OutcomeCancelled
		}

		if !t.state.hasPendingChildren() {
			t.state.cursor = nil
			t.expandNext()
			if t.state.cursor == nil {
				continue
			}
		}

		outcome, stopped := t.processCursor()
		if stopped {
			return outcome
		}
	}

	if t.ctx.Err() != nil {
		return OutcomeCancelled
	}
	t.state.cursor = nil
	t.reportProgress()

	return OutcomeCompleted
}

// expandNext dequeues one directory and, unless it was already visited or is
// excluded, reads its children into the cursor.
func (t *traversal) expandNext() {
	dir := t.state.dequeue()
	if !t.state.markVisited(dir.key, t.engine.caseInsensitive) {
		return
	}
	if t.engine.skip(dir.path) {
		t.engine.logger.Debug("skipping excluded directory", "path", dir.path)
		return
	}

	children, err := t.engine.reader.ReadChildren(dir.path)
	if err != nil {
		children = nil
	}
	t.state.foldersChecked++
	t.state.cursor = &dirCursor{path: dir.path, key: dir.key, children: children}

	t.maybeReportProgress()
}

// processCursor handles the remaining children of the current directory in
// enumeration order. stopped is true when the run must return outcome.
func (t *traversal) processCursor() (outcome Outcome, stopped bool) {
	cursor := t.state.cursor
	for cursor.next < len(cursor.children) {
		child := cursor.children[cursor.next]
		cursor.next++

		if child.IsDir {
			// Excluded directories can still match; they are just never descended into.
			childPath := filepath.Join(cursor.path, child.Name)
			if !t.engine.skip(childPath) {
				t.state.enqueue(pendingDir{path: childPath, key: t.childKey(cursor, child, childPath)})
			}
		} else {
			t.state.filesChecked++
			t.maybeReportProgress()
		}

		if !t.matches(child.Name) {
			continue
		}
		if t.ctx.Err() != nil {
			return OutcomeCancelled, true
		}
		if !t.emit(cursor.path, child) {
			continue
		}
		if t.req.Limit > 0 && t.emitted >= t.req.Limit && !t.state.Exhausted() {
			t.reportProgress()
			return OutcomePaused, true
		}
	}

	t.state.cursor = nil
	return OutcomeCompleted, false
}

func (t *traversal) matches(name string) bool {
	return strings.Contains(strings.ToLower(name), t.query)
}

// emit materializes and reports a match, returning false when the entry
// vanished before its metadata could be read.
func (t *traversal) emit(parentPath string, child listing.Child) bool {
	entry, err := t.engine.reader.Materialize(parentPath, child)
	if err != nil {
		return false
	}

	t.emitted++
	if t.req.OnMatch != nil {
		t.req.OnMatch(entry.WithDisplayLabel(t.root))
	}
	return true
}

// childKey locates a child directory for the visited set. Only links need
// resolving; anything else lives under its parent's resolved location.
func (t *traversal) childKey(cursor *dirCursor, child listing.Child, childPath string) string {
	if child.IsLink {
		if resolved, err := filepath.EvalSymlinks(childPath); err == nil {
			return resolved
		}
		return childPath
	}
	return filepath.Join(cursor.key, child.Name)
}

func (t *traversal) maybeReportProgress() {
	if t.state.foldersChecked-t.lastFolders >= t.engine.progressFolders ||
		t.state.filesChecked-t.lastFiles >= t.engine.progressFiles {
		t.reportProgress()
	}
}

func (t *traversal) reportProgress() {
	t.lastFolders = t.state.foldersChecked
	t.lastFiles = t.state.filesChecked
	if t.ctx.Err() != nil || t.req.OnProgress == nil {
		return
	}
	t.req.OnProgress(t.state.foldersChecked, t.state.filesChecked)
}
