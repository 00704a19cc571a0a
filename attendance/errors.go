package attendance

import (
	"fmt"

	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
)

var (
	ErrEmptyRoster    = ierrors.ErrEmptyRoster
	ErrRosterClosed   = ierrors.ErrRosterClosed
	ErrUnknownStudent = ierrors.ErrUnknownStudent
	ErrStatusPending  = ierrors.ErrStatusPending
)

// StatusPendingError reports a commit whose records were stored but whose
// session could not be marked delivered. The records stay committed; use
// Workflow.MarkDelivered to retry the transition.
type StatusPendingError struct {
	SessionID string
	Records   []Record
	Err       error
}

func (e *StatusPendingError) Error() string {
	return fmt.Sprintf("session %s: %d records stored, status update failed: %v", e.SessionID, len(e.Records), e.Err)
}

func (e *StatusPendingError) Unwrap() []error {
	return []error{ierrors.ErrStatusPending, e.Err}
}
