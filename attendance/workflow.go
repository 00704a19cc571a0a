// Package attendance loads a class session's roster, collects presence
// toggles in memory and commits them as one batch followed by the session's
// transition to delivered.
package attendance

import (
	"context"

	"github.com/lemussistemas/salsa-hn-frontend/academy"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend is the slice of the academy API the workflow needs.
type Backend interface {
	GetSesion(ctx context.Context, id string) (*academy.Sesion, error)
	ListMatriculasVigentes(ctx context.Context, grupoID string) ([]academy.Matricula, error)
	ListAsistencias(ctx context.Context, sesionID string) ([]academy.Asistencia, error)
	BatchAsistencias(ctx context.Context, batch academy.AsistenciaBatch) ([]academy.Asistencia, error)
	UpdateSesionEstado(ctx context.Context, id string, estado academy.EstadoSesion) (*academy.Sesion, error)
}

// Record is one student's attendance for one class session.
type Record struct {
	SessionID string
	StudentID string
	Present   bool
}

type CommitResult struct {
	SessionID string
	Records   []Record
	Stored    []academy.Asistencia
	Status    academy.EstadoSesion
}

type Workflow struct {
	backend        Backend
	statusAttempts int
	logger         zerolog.Logger
}

// WorkflowOption defines a function type to modify the Workflow instance.
type WorkflowOption func(*Workflow)

// WithStatusAttempts sets how many times the delivered transition is tried
// after a successful batch write. Values below 1 are ignored.
func WithStatusAttempts(n int) WorkflowOption {
	return func(w *Workflow) {
		if n >= 1 {
			w.statusAttempts = n
		}
	}
}

func WithLogger(logger zerolog.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func NewWorkflow(backend Backend, options ...WorkflowOption) (*Workflow, error) {
	if backend == nil {
		return nil, errors.New("[NewWorkflow] backend is required")
	}
	w := &Workflow{
		backend:        backend,
		statusAttempts: 1,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// LoadRoster resolves the session, its group's current enrollments and any
// attendance already stored for it. Stored presences pre-populate the roster.
func (w *Workflow) LoadRoster(ctx context.Context, sessionID string) (*Roster, error) {
	sesion, err := w.backend.GetSesion(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Workflow.LoadRoster] session %s", sessionID)
	}

	matriculas, err := w.backend.ListMatriculasVigentes(ctx, sesion.Grupo)
	if err != nil {
		return nil, errors.Wrapf(err, "[Workflow.LoadRoster] enrollments of group %s", sesion.Grupo)
	}
	students := make([]Student, 0, len(matriculas))
	for _, m := range matriculas {
		// Re-applied locally: the endpoint may ignore the grupo filter.
		if m.Grupo != sesion.Grupo || !m.Vigente() {
			continue
		}
		nombre := m.Alumno
		if m.AlumnoDetalle != nil {
			if n := m.AlumnoDetalle.NombreCompleto(); n != "" {
				nombre = n
			}
		}
		students = append(students, Student{ID: m.Alumno, Nombre: nombre})
	}
	roster := newRoster(*sesion, students)

	prior, err := w.backend.ListAsistencias(ctx, sesion.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Workflow.LoadRoster] prior attendance of %s", sesion.ID)
	}
	for _, a := range prior {
		if a.Sesion != sesion.ID || !a.Presente {
			continue
		}
		if _, ok := roster.index[a.Alumno]; ok {
			roster.present[a.Alumno] = struct{}{}
		}
	}

	w.logger.Debug().
		Str("session", sesion.ID).
		Str("group", sesion.Grupo).
		Int("students", len(roster.students)).
		Int("present", len(roster.present)).
		Msg("roster loaded")
	return roster, nil
}

// Commit writes one record per roster student as a single batch and, only
// once the batch is confirmed, marks the session delivered. A failed batch
// leaves the roster open for another attempt. A failed transition returns a
// *StatusPendingError with the roster closed, since the records are stored.
func (w *Workflow) Commit(ctx context.Context, r *Roster) (*CommitResult, error) {
	if r == nil {
		return nil, errors.New("[Workflow.Commit] roster is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ierrors.ErrRosterClosed
	}
	if len(r.students) == 0 {
		return nil, errors.Wrapf(ierrors.ErrEmptyRoster, "[Workflow.Commit] session %s", r.Session.ID)
	}

	records := r.records()
	batch := academy.AsistenciaBatch{
		Sesion:      r.Session.ID,
		Asistencias: make([]academy.AsistenciaItem, 0, len(records)),
	}
	for _, rec := range records {
		batch.Asistencias = append(batch.Asistencias, academy.AsistenciaItem{Alumno: rec.StudentID, Presente: rec.Present})
	}

	stored, err := w.backend.BatchAsistencias(ctx, batch)
	if err != nil {
		w.logger.Warn().Err(err).Str("session", r.Session.ID).Msg("attendance batch rejected")
		return nil, errors.Wrapf(err, "[Workflow.Commit] batch for session %s", r.Session.ID)
	}

	if err := w.markDelivered(ctx, r.Session.ID); err != nil {
		r.closed = true
		w.logger.Error().Err(err).
			Str("session", r.Session.ID).
			Int("records", len(records)).
			Msg("attendance stored but session status pending")
		return nil, &StatusPendingError{SessionID: r.Session.ID, Records: records, Err: err}
	}

	r.closed = true
	r.Session.Estado = academy.SesionDictada
	w.logger.Info().
		Str("session", r.Session.ID).
		Int("records", len(records)).
		Int("present", len(r.present)).
		Msg("attendance committed")
	return &CommitResult{
		SessionID: r.Session.ID,
		Records:   records,
		Stored:    stored,
		Status:    academy.SesionDictada,
	}, nil
}

// MarkDelivered retries the delivered transition after a StatusPendingError.
func (w *Workflow) MarkDelivered(ctx context.Context, sessionID string) error {
	if err := w.markDelivered(ctx, sessionID); err != nil {
		return errors.Wrapf(err, "[Workflow.MarkDelivered] session %s", sessionID)
	}
	w.logger.Info().Str("session", sessionID).Msg("session marked delivered")
	return nil
}

func (w *Workflow) markDelivered(ctx context.Context, sessionID string) error {
	var err error
	for attempt := 1; attempt <= w.statusAttempts; attempt++ {
		if _, err = w.backend.UpdateSesionEstado(ctx, sessionID, academy.SesionDictada); err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Str("session", sessionID).Int("attempt", attempt).Msg("status update failed")
		if ctx.Err() != nil {
			break
		}
	}
	return err
}
