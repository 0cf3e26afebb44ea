package search

import (
	"path/filepath"
	"strings"

	"github.com/meghashyamc/deepfind/services/listing"
)

// TraversalState is the suspendable cursor of one breadth-first traversal.
// It is owned by whichever run is executing it and is handed over, never
// shared, when a session pauses and resumes.
type TraversalState struct {
	frontier       []pendingDir
	visited        map[string]struct{}
	cursor         *dirCursor
	foldersChecked int
	filesChecked   int
}

// pendingDir is a frontier item. key is the symlink-resolved location of
// path and identifies the directory in the visited set.
type pendingDir struct {
	path string
	key  string
}

// dirCursor holds a directory whose children were read but not all processed.
type dirCursor struct {
	path     string
	key      string
	children []listing.Child
	next     int
}

func NewTraversalState(root string) *TraversalState {
	root = filepath.Clean(root)
	key := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		key = resolved
	}

	return &TraversalState{
		frontier: []pendingDir{{path: root, key: key}},
		visited:  make(map[string]struct{}),
	}
}

func (s *TraversalState) FoldersChecked() int {
	return s.foldersChecked
}

func (s *TraversalState) FilesChecked() int {
	return s.filesChecked
}

// Frontier returns the directories still waiting to be expanded, in order.
func (s *TraversalState) Frontier() []string {
	paths := make([]string, 0, len(s.frontier))
	for _, dir := range s.frontier {
		paths = append(paths, dir.path)
	}
	return paths
}

// VisitedCount is the number of distinct directories dequeued so far.
func (s *TraversalState) VisitedCount() int {
	return len(s.visited)
}

// Exhausted reports whether no work remains.
func (s *TraversalState) Exhausted() bool {
	return !s.hasPendingChildren() && len(s.frontier) == 0
}

func (s *TraversalState) hasPendingChildren() bool {
	return s.cursor != nil && s.cursor.next < len(s.cursor.children)
}

func (s *TraversalState) enqueue(dir pendingDir) {
	s.frontier = append(s.frontier, dir)
}

func (s *TraversalState) dequeue() pendingDir {
	dir := s.frontier[0]
	s.frontier[0] = pendingDir{}
	s.frontier = s.frontier[1:]
	return dir
}

// markVisited records key and reports whether it was new.
func (s *TraversalState) markVisited(key string, caseInsensitive bool) bool {
	if caseInsensitive {
		key = strings.ToLower(key)
	}
	if _, ok := s.visited[key]; ok {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}
