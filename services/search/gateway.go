package search

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/deepfind/services/listing"
)

type EventKind string

const (
	EventMatch    EventKind = "match"
	EventProgress EventKind = "progress"
	EventState    EventKind = "state"
	EventRejected EventKind = "rejected"
)

const defaultEventBuffer = 64

// Event is one message from the gateway to its consumer. Consumers must drop
// events whose SessionID is no longer the gateway's active session.
type Event struct {
	SessionID      string         `json:"session_id"`
	Kind           EventKind      `json:"kind"`
	Entry          *listing.Entry `json:"entry,omitempty"`
	FoldersChecked int            `json:"folders_checked"`
	FilesChecked   int            `json:"files_checked"`
	State          string         `json:"state,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Gateway turns a stream of query edits into at most one live session. Edits
// are debounced; each accepted query cancels and replaces the previous
// session. Results flow to the consumer over Events.
type Gateway struct {
	service   *Service
	lister    *listing.Lister
	delay     time.Duration
	resultCap int

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	active     *Session
	activeID   string
	closed     bool

	events chan Event
	done   chan struct{}
}

// NewGateway creates a gateway. lister serves the volume-list filter used
// when the root is the synthetic root. resultCap follows Service.Start.
func NewGateway(service *Service, lister *listing.Lister, delay time.Duration, resultCap int) *Gateway {
	return &Gateway{
		service:   service,
		lister:    lister,
		delay:     delay,
		resultCap: resultCap,
		events:    make(chan Event, defaultEventBuffer),
		done:      make(chan struct{}),
	}
}

func (g *Gateway) Events() <-chan Event {
	return g.events
}

// Done is closed when the gateway is closed.
func (g *Gateway) Done() <-chan struct{} {
	return g.done
}

// Active returns the ID of the session whose events are current, or "".
func (g *Gateway) Active() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeID
}

func (g *Gateway) IsActive(sessionID string) bool {
	return sessionID != "" && g.Active() == sessionID
}

// Session returns the live session, if any.
func (g *Gateway) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Submit records the latest query edit. The search starts once no further
// edit arrives within the debounce delay. An empty query cancels the current
// session right away.
func (g *Gateway) Submit(rootPath string, query string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}

	g.generation++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}

	if strings.TrimSpace(query) == "" {
		g.discardLocked()
		return
	}

	generation := g.generation
	g.timer = time.AfterFunc(g.delay, func() {
		g.fire(generation, rootPath, query)
	})
}

// Cancel drops any pending edit and cancels the current session.
func (g *Gateway) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.generation++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.discardLocked()
}

// Resume continues the active session after it paused at the result cap.
func (g *Gateway) Resume() error {
	session := g.Session()
	if session == nil {
		return ErrNoSession
	}
	return session.Resume()
}

// Close cancels everything and releases any worker blocked on delivery.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	g.generation++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.discardLocked()
	close(g.done)
}

func (g *Gateway) discardLocked() {
	if g.active != nil {
		g.active.Cancel()
	}
	g.active = nil
	g.activeID = ""
}

func (g *Gateway) fire(generation uint64, rootPath string, query string) {
	g.mu.Lock()
	if g.closed || generation != g.generation {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.discardLocked()

	if rootPath == listing.RootPath {
		id := uuid.NewString()
		g.activeID = id
		g.mu.Unlock()
		g.filterVolumes(id, query)
		return
	}

	session, err := g.service.NewSession(rootPath, query, g.resultCap)
	if err != nil {
		id := uuid.NewString()
		g.activeID = id
		g.mu.Unlock()
		g.send(Event{SessionID: id, Kind: EventRejected, Error: err.Error()}, nil)
		return
	}

	id := session.ID()
	g.active = session
	g.activeID = id
	// Start under the lock so a concurrent Submit cannot cancel a session
	// that has not started yet.
	startErr := session.Start(g.callbacks(session))
	g.mu.Unlock()

	if startErr != nil {
		g.send(Event{SessionID: id, Kind: EventRejected, Error: startErr.Error()}, nil)
	}
}

func (g *Gateway) callbacks(session *Session) Callbacks {
	id := session.ID()
	stopped := session.Stopped()
	return Callbacks{
		OnMatch: func(entry listing.Entry) {
			g.send(Event{SessionID: id, Kind: EventMatch, Entry: &entry}, stopped)
		},
		OnProgress: func(foldersChecked int, filesChecked int) {
			g.send(Event{SessionID: id, Kind: EventProgress, FoldersChecked: foldersChecked, FilesChecked: filesChecked}, stopped)
		},
		OnState: func(state State) {
			g.send(Event{SessionID: id, Kind: EventState, State: state.String()}, stopped)
		},
	}
}

// filterVolumes handles queries against the volume list: no traversal, just a
// name filter over the top-level entries.
func (g *Gateway) filterVolumes(id string, query string) {
	lowered := strings.ToLower(query)
	volumes := g.lister.List(listing.RootPath)
	for i := range volumes {
		volume := volumes[i]
		if strings.Contains(strings.ToLower(volume.DisplayLabel), lowered) {
			g.send(Event{SessionID: id, Kind: EventMatch, Entry: &volume}, nil)
		}
	}
	g.send(Event{SessionID: id, Kind: EventState, State: StateCompleted.String()}, nil)
}

// send delivers an event unless it is stale or the gateway is closed. It
// blocks while the consumer is behind so matches are never dropped, and gives
// up as soon as stopped is closed. A nil stopped waits on the gateway alone.
func (g *Gateway) send(event Event, stopped <-chan struct{}) {
	if !g.IsActive(event.SessionID) {
		return
	}

	select {
	case g.events <- event:
	case <-stopped:
	case <-g.done:
	}
}
