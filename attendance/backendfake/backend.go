package backendfake

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lemussistemas/salsa-hn-frontend/academy"
	"github.com/lemussistemas/salsa-hn-frontend/attendance"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/pkg/errors"
)

var _ attendance.Backend = (*FakeBackend)(nil)

const (
	OpGetSesion    = "GetSesion"
	OpListVigentes = "ListMatriculasVigentes"
	OpListPrevias  = "ListAsistencias"
	OpBatch        = "BatchAsistencias"
	OpUpdateEstado = "UpdateSesionEstado"
)

// FakeBackend keeps sessions, enrollments and attendance in memory and
// records every call in order. Failures are injected per operation.
type FakeBackend struct {
	lock        sync.RWMutex
	sesiones    map[string]*academy.Sesion
	matriculas  []academy.Matricula
	asistencias map[string]map[string]academy.Asistencia // sesion -> alumno -> record
	failures    map[string][]error
	calls       []string
	batches     []academy.AsistenciaBatch
}

func New() *FakeBackend {
	return &FakeBackend{
		sesiones:    make(map[string]*academy.Sesion),
		asistencias: make(map[string]map[string]academy.Asistencia),
		failures:    make(map[string][]error),
	}
}

func (f *FakeBackend) AddSesion(s academy.Sesion) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.sesiones[s.ID] = &s
}

func (f *FakeBackend) AddMatricula(m academy.Matricula) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	f.matriculas = append(f.matriculas, m)
}

func (f *FakeBackend) AddAsistencia(a academy.Asistencia) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.store(a)
}

// FailNext makes the next calls of op return errs, one per call.
func (f *FakeBackend) FailNext(op string, errs ...error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// Calls returns the operations issued so far, in order.
func (f *FakeBackend) Calls() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeBackend) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// Batches returns every batch that was accepted.
func (f *FakeBackend) Batches() []academy.AsistenciaBatch {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]academy.AsistenciaBatch(nil), f.batches...)
}

func (f *FakeBackend) Sesion(id string) academy.Sesion {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if s, ok := f.sesiones[id]; ok {
		return *s
	}
	return academy.Sesion{}
}

func (f *FakeBackend) GetSesion(_ context.Context, id string) (*academy.Sesion, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.begin(OpGetSesion); err != nil {
		return nil, err
	}
	s, ok := f.sesiones[id]
	if !ok {
		return nil, errors.Wrapf(ierrors.ErrNotFound, "sesion %s", id)
	}
	cp := *s
	return &cp, nil
}

// ListMatriculasVigentes deliberately returns every enrollment: filtering
// is the caller's job.
func (f *FakeBackend) ListMatriculasVigentes(_ context.Context, _ string) ([]academy.Matricula, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.begin(OpListVigentes); err != nil {
		return nil, err
	}
	return append([]academy.Matricula(nil), f.matriculas...), nil
}

func (f *FakeBackend) ListAsistencias(_ context.Context, sesionID string) ([]academy.Asistencia, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.begin(OpListPrevias); err != nil {
		return nil, err
	}
	out := make([]academy.Asistencia, 0, len(f.asistencias[sesionID]))
	for _, a := range f.asistencias[sesionID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alumno < out[j].Alumno })
	return out, nil
}

func (f *FakeBackend) BatchAsistencias(_ context.Context, batch academy.AsistenciaBatch) ([]academy.Asistencia, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.begin(OpBatch); err != nil {
		return nil, err
	}
	f.batches = append(f.batches, batch)
	out := make([]academy.Asistencia, 0, len(batch.Asistencias))
	for _, item := range batch.Asistencias {
		a := academy.Asistencia{ID: uuid.New().String(), Sesion: batch.Sesion, Alumno: item.Alumno, Presente: item.Presente}
		f.store(a)
		out = append(out, a)
	}
	return out, nil
}

func (f *FakeBackend) UpdateSesionEstado(_ context.Context, id string, estado academy.EstadoSesion) (*academy.Sesion, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.begin(OpUpdateEstado); err != nil {
		return nil, err
	}
	s, ok := f.sesiones[id]
	if !ok {
		return nil, errors.Wrapf(ierrors.ErrNotFound, "sesion %s", id)
	}
	s.Estado = estado
	cp := *s
	return &cp, nil
}

// begin records op and pops its next injected failure. Callers hold the lock.
func (f *FakeBackend) begin(op string) error {
	f.calls = append(f.calls, op)
	errs := f.failures[op]
	if len(errs) == 0 {
		return nil
	}
	f.failures[op] = errs[1:]
	return errs[0]
}

func (f *FakeBackend) store(a academy.Asistencia) {
	if f.asistencias[a.Sesion] == nil {
		f.asistencias[a.Sesion] = make(map[string]academy.Asistencia)
	}
	f.asistencias[a.Sesion][a.Alumno] = a
}
