package tracker

import (
	"errors"
	"fmt"
)

// PersistenceWriteError reports a failed write to the device-local store.
// In-memory state remains authoritative for the current session.
type PersistenceWriteError struct {
	Key string
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error {
	return e.Err
}

// RemoteSyncError reports a remote call that failed after every retry.
type RemoteSyncError struct {
	Op       string // "upsert_completion", "reconcile", ...
	Identity string
	Err      error
}

func (e *RemoteSyncError) Error() string {
	return fmt.Sprintf("remote %s for %s: %v", e.Op, e.Identity, e.Err)
}

func (e *RemoteSyncError) Unwrap() error {
	return e.Err
}

// IsPersistenceWriteError returns true if err is or wraps a *PersistenceWriteError.
func IsPersistenceWriteError(err error) bool {
	var pe *PersistenceWriteError
	return errors.As(err, &pe)
}

// IsRemoteSyncError returns true if err is or wraps a *RemoteSyncError.
func IsRemoteSyncError(err error) bool {
	var re *RemoteSyncError
	return errors.As(err, &re)
}

// ErrNoRemote is returned by SignIn when the session has no remote service.
var ErrNoRemote = errors.New("tracker: no remote service configured")
