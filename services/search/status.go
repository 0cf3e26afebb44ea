package search

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meghashyamc/deepfind/db/kvdb"
	"github.com/meghashyamc/deepfind/logger"
)

// StatusStore is where session status snapshots are kept.
type StatusStore interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	GetAllKeys(bucket string) ([]string, error)
	Delete(bucket string, key string) error
}

// SessionStatus is the recorded snapshot of a session at its last transition.
type SessionStatus struct {
	ID             string    `json:"id"`
	Root           string    `json:"root"`
	Query          string    `json:"query"`
	State          string    `json:"state"`
	ResultCap      int       `json:"result_cap"`
	FoldersChecked int       `json:"folders_checked"`
	FilesChecked   int       `json:"files_checked"`
	Emitted        int       `json:"emitted"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type statusRecorder struct {
	store  StatusStore
	logger logger.Logger
}

func (r *statusRecorder) record(session *Session, state State) {
	if r.store == nil {
		return
	}

	folders, files, emitted := session.Stats()
	status := SessionStatus{
		ID:             session.id,
		Root:           session.root,
		Query:          session.query,
		State:          state.String(),
		ResultCap:      session.resultCap,
		FoldersChecked: folders,
		FilesChecked:   files,
		Emitted:        emitted,
		UpdatedAt:      time.Now().UTC(),
	}

	data, err := json.Marshal(status)
	if err != nil {
		r.logger.Error("failed to marshal session status", "session_id", session.id, "err", err.Error())
		return
	}

	if err := r.store.Set(kvdb.SessionsBucket, session.id, string(data)); err != nil {
		r.logger.Error("failed to record session status", "session_id", session.id, "state", state.String(), "err", err.Error())
	}
}

func (r *statusRecorder) get(sessionID string) (*SessionStatus, error) {
	if r.store == nil {
		return nil, &kvdb.NotFoundError{Key: sessionID}
	}

	value, err := r.store.Get(kvdb.SessionsBucket, sessionID)
	if err != nil {
		return nil, err
	}

	var status SessionStatus
	if err := json.Unmarshal([]byte(value), &status); err != nil {
		r.logger.Error("failed to unmarshal session status", "session_id", sessionID, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal status for %s: %w", sessionID, err)
	}

	return &status, nil
}

func (r *statusRecorder) remove(sessionID string) error {
	if r.store == nil {
		return &kvdb.NotFoundError{Key: sessionID}
	}

	if _, err := r.store.Get(kvdb.SessionsBucket, sessionID); err != nil {
		return err
	}
	return r.store.Delete(kvdb.SessionsBucket, sessionID)
}

func (r *statusRecorder) list() ([]SessionStatus, error) {
	if r.store == nil {
		return []SessionStatus{}, nil
	}

	keys, err := r.store.GetAllKeys(kvdb.SessionsBucket)
	if err != nil {
		r.logger.Error("failed to list recorded sessions", "err", err.Error())
		return nil, fmt.Errorf("failed to list recorded sessions: %w", err)
	}

	statuses := make([]SessionStatus, 0, len(keys))
	for _, key := range keys {
		status, err := r.get(key)
		if err != nil {
			continue
		}
		statuses = append(statuses, *status)
	}

	return statuses, nil
}

// reconcile marks sessions left running or paused by a previous process as
// cancelled, since their workers and frontiers no longer exist.
func (r *statusRecorder) reconcile() (int, error) {
	statuses, err := r.list()
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, status := range statuses {
		if status.State != StateRunning.String() && status.State != StatePaused.String() && status.State != StateIdle.String() {
			continue
		}

		status.State = StateCancelled.String()
		status.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(status)
		if err != nil {
			continue
		}
		if err := r.store.Set(kvdb.SessionsBucket, status.ID, string(data)); err != nil {
			r.logger.Error("failed to reconcile session status", "session_id", status.ID, "err", err.Error())
			continue
		}
		reconciled++
	}

	return reconciled, nil
}
