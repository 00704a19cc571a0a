package attendance

import (
	"sort"
	"strings"
	"sync"

	"github.com/lemussistemas/salsa-hn-frontend/academy"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/pkg/errors"
)

// Student is one roster member.
type Student struct {
	ID     string
	Nombre string
}

// Roster is the in-memory attendance sheet of one class session. Presence
// changes are local until the roster is committed. A committed or discarded
// roster rejects further changes.
type Roster struct {
	Session academy.Sesion

	mu       sync.Mutex
	students []Student
	index    map[string]struct{}
	present  map[string]struct{}
	closed   bool
}

func newRoster(session academy.Sesion, students []Student) *Roster {
	r := &Roster{
		Session: session,
		index:   make(map[string]struct{}, len(students)),
		present: make(map[string]struct{}),
	}
	for _, s := range students {
		if _, dup := r.index[s.ID]; dup {
			continue
		}
		r.index[s.ID] = struct{}{}
		r.students = append(r.students, s)
	}
	sort.SliceStable(r.students, func(i, j int) bool {
		a, b := strings.ToLower(r.students[i].Nombre), strings.ToLower(r.students[j].Nombre)
		if a != b {
			return a < b
		}
		return r.students[i].ID < r.students[j].ID
	})
	return r
}

func (r *Roster) SessionID() string {
	return r.Session.ID
}

// Students returns the roster in display order.
func (r *Roster) Students() []Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Student(nil), r.students...)
}

func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.students)
}

func (r *Roster) IsPresent(studentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.present[studentID]
	return ok
}

// Present returns the ids marked present, in roster order.
func (r *Roster) Present() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, s := range r.students {
		if _, ok := r.present[s.ID]; ok {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Toggle flips the presence of studentID and returns the new value.
func (r *Roster) Toggle(studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ierrors.ErrRosterClosed
	}
	if _, ok := r.index[studentID]; !ok {
		return false, errors.Wrapf(ierrors.ErrUnknownStudent, "[Roster.Toggle] %s", studentID)
	}
	if _, ok := r.present[studentID]; ok {
		delete(r.present, studentID)
		return false, nil
	}
	r.present[studentID] = struct{}{}
	return true, nil
}

// MarkPresent marks studentID present. Marking a present student again is a
// no-op.
func (r *Roster) MarkPresent(studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ierrors.ErrRosterClosed
	}
	if _, ok := r.index[studentID]; !ok {
		return errors.Wrapf(ierrors.ErrUnknownStudent, "[Roster.MarkPresent] %s", studentID)
	}
	r.present[studentID] = struct{}{}
	return nil
}

// MarkAll marks every student present.
func (r *Roster) MarkAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ierrors.ErrRosterClosed
	}
	for id := range r.index {
		r.present[id] = struct{}{}
	}
	return nil
}

// ClearAll marks every student absent.
func (r *Roster) ClearAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ierrors.ErrRosterClosed
	}
	r.present = make(map[string]struct{})
	return nil
}

// Discard abandons the roster without any I/O.
func (r *Roster) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Roster) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// records snapshots one Record per student.
func (r *Roster) records() []Record {
	out := make([]Record, 0, len(r.students))
	for _, s := range r.students {
		_, ok := r.present[s.ID]
		out = append(out, Record{SessionID: r.Session.ID, StudentID: s.ID, Present: ok})
	}
	return out
}
