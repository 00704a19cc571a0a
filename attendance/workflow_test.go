package attendance_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lemussistemas/salsa-hn-frontend/academy"
	"github.com/lemussistemas/salsa-hn-frontend/api"
	"github.com/lemussistemas/salsa-hn-frontend/attendance"
	"github.com/lemussistemas/salsa-hn-frontend/attendance/backendfake"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/internal/fakebackend"
	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend  *backendfake.FakeBackend
	workflow *attendance.Workflow
}

func setupTestFixture(t *testing.T, students ...string) *testFixture {
	t.Helper()

	backend := backendfake.New()
	backend.AddSesion(academy.Sesion{ID: "s1", Grupo: "g1", Fecha: "2024-05-06", Estado: academy.SesionProgramada})
	for _, id := range students {
		backend.AddMatricula(academy.Matricula{
			Alumno:        id,
			Grupo:         "g1",
			Estado:        academy.MatriculaVigente,
			AlumnoDetalle: &academy.Alumno{ID: id, Nombres: "Alumno", Apellidos: id},
		})
	}

	workflow, err := attendance.NewWorkflow(backend, attendance.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return &testFixture{backend: backend, workflow: workflow}
}

func presence(records []attendance.Record) map[string]bool {
	out := make(map[string]bool, len(records))
	for _, r := range records {
		out[r.StudentID] = r.Present
	}
	return out
}

func TestNewWorkflow(t *testing.T) {
	_, err := attendance.NewWorkflow(nil)
	require.Error(t, err)
}

func TestWorkflow_LoadRoster(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		f := setupTestFixture(t, "A")
		_, err := f.workflow.LoadRoster(ctx, "nope")
		require.ErrorIs(t, err, ierrors.ErrNotFound)
	})

	t.Run("only current enrollments of the session group", func(t *testing.T) {
		f := setupTestFixture(t, "A", "B")
		f.backend.AddMatricula(academy.Matricula{Alumno: "C", Grupo: "g2", Estado: academy.MatriculaVigente})
		f.backend.AddMatricula(academy.Matricula{Alumno: "D", Grupo: "g1", Estado: "retirada"})
		f.backend.AddMatricula(academy.Matricula{Alumno: "A", Grupo: "g1", Estado: academy.MatriculaVigente})

		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, []attendance.Student{
			{ID: "A", Nombre: "Alumno A"},
			{ID: "B", Nombre: "Alumno B"},
		}, r.Students())
		require.Equal(t, "s1", r.SessionID())
	})

	t.Run("prior attendance pre-populates presence", func(t *testing.T) {
		f := setupTestFixture(t, "A", "B", "C")
		f.backend.AddAsistencia(academy.Asistencia{Sesion: "s1", Alumno: "B", Presente: true})
		f.backend.AddAsistencia(academy.Asistencia{Sesion: "s1", Alumno: "C", Presente: false})
		f.backend.AddAsistencia(academy.Asistencia{Sesion: "s1", Alumno: "Z", Presente: true})

		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, []string{"B"}, r.Present())
	})

	t.Run("enrollment failure", func(t *testing.T) {
		f := setupTestFixture(t, "A")
		f.backend.FailNext(backendfake.OpListVigentes, ierrors.ErrForbidden)
		_, err := f.workflow.LoadRoster(ctx, "s1")
		require.ErrorIs(t, err, ierrors.ErrForbidden)
	})
}

func TestRoster_Toggle(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, "A", "B", "C")
	r, err := f.workflow.LoadRoster(ctx, "s1")
	require.NoError(t, err)

	for _, id := range []string{"A", "B", "C"} {
		before := r.IsPresent(id)
		_, err := r.Toggle(id)
		require.NoError(t, err)
		_, err = r.Toggle(id)
		require.NoError(t, err)
		require.Equal(t, before, r.IsPresent(id), "double toggle of %s", id)
	}

	present, err := r.Toggle("A")
	require.NoError(t, err)
	require.True(t, present)

	_, err = r.Toggle("Z")
	require.ErrorIs(t, err, ierrors.ErrUnknownStudent)

	require.NoError(t, r.MarkAll())
	require.Equal(t, []string{"A", "B", "C"}, r.Present())
	require.NoError(t, r.ClearAll())
	require.Empty(t, r.Present())

	r.Discard()
	require.True(t, r.Closed())
	_, err = r.Toggle("A")
	require.ErrorIs(t, err, ierrors.ErrRosterClosed)
	require.ErrorIs(t, r.MarkAll(), attendance.ErrRosterClosed)
	require.ErrorIs(t, r.ClearAll(), attendance.ErrRosterClosed)

	_, err = f.workflow.Commit(ctx, r)
	require.ErrorIs(t, err, ierrors.ErrRosterClosed)
}

func TestRoster_MarkPresent(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, "A", "B")
	r, err := f.workflow.LoadRoster(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, r.MarkPresent("A"))
	require.NoError(t, r.MarkPresent("A"))
	require.Equal(t, []string{"A"}, r.Present())

	require.ErrorIs(t, r.MarkPresent("Z"), ierrors.ErrUnknownStudent)

	r.Discard()
	require.ErrorIs(t, r.MarkPresent("B"), attendance.ErrRosterClosed)
}

func TestWorkflow_Commit(t *testing.T) {
	ctx := context.Background()
	students := []string{"A", "B", "C"}

	t.Run("one record per student for every subset", func(t *testing.T) {
		for mask := 0; mask < 1<<len(students); mask++ {
			t.Run(fmt.Sprintf("subset %03b", mask), func(t *testing.T) {
				f := setupTestFixture(t, students...)
				r, err := f.workflow.LoadRoster(ctx, "s1")
				require.NoError(t, err)

				want := make(map[string]bool)
				for i, id := range students {
					want[id] = mask&(1<<i) != 0
					if want[id] {
						_, err := r.Toggle(id)
						require.NoError(t, err)
					}
				}

				res, err := f.workflow.Commit(ctx, r)
				require.NoError(t, err)
				require.Len(t, res.Records, len(students))
				require.Equal(t, want, presence(res.Records))
				require.Equal(t, academy.SesionDictada, res.Status)

				batches := f.backend.Batches()
				require.Len(t, batches, 1)
				require.Len(t, batches[0].Asistencias, len(students))
			})
		}
	})

	t.Run("status transition follows the batch", func(t *testing.T) {
		f := setupTestFixture(t, students...)
		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)

		_, err = f.workflow.Commit(ctx, r)
		require.NoError(t, err)
		require.Equal(t, []string{
			backendfake.OpGetSesion,
			backendfake.OpListVigentes,
			backendfake.OpListPrevias,
			backendfake.OpBatch,
			backendfake.OpUpdateEstado,
		}, f.backend.Calls())
		require.Equal(t, academy.SesionDictada, f.backend.Sesion("s1").Estado)
		require.True(t, r.Closed())

		_, err = f.workflow.Commit(ctx, r)
		require.ErrorIs(t, err, ierrors.ErrRosterClosed)
	})

	t.Run("failed batch never advances the session", func(t *testing.T) {
		f := setupTestFixture(t, students...)
		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		f.backend.FailNext(backendfake.OpBatch, ierrors.ErrNetwork)

		_, err = f.workflow.Commit(ctx, r)
		require.ErrorIs(t, err, ierrors.ErrNetwork)
		require.Zero(t, f.backend.CallCount(backendfake.OpUpdateEstado))
		require.Equal(t, academy.SesionProgramada, f.backend.Sesion("s1").Estado)
		require.False(t, r.Closed())

		// The roster stays usable and a second commit goes through.
		_, err = f.workflow.Commit(ctx, r)
		require.NoError(t, err)
		require.Equal(t, 1, f.backend.CallCount(backendfake.OpUpdateEstado))
	})

	t.Run("empty roster issues no calls", func(t *testing.T) {
		f := setupTestFixture(t)
		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		require.Zero(t, r.Len())
		calls := len(f.backend.Calls())

		_, err = f.workflow.Commit(ctx, r)
		require.ErrorIs(t, err, attendance.ErrEmptyRoster)
		require.Len(t, f.backend.Calls(), calls)
		require.Equal(t, academy.SesionProgramada, f.backend.Sesion("s1").Estado)
	})

	t.Run("status failure keeps records and reports pending", func(t *testing.T) {
		f := setupTestFixture(t, students...)
		r, err := f.workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		f.backend.FailNext(backendfake.OpUpdateEstado, ierrors.ErrHTTP)

		_, err = f.workflow.Commit(ctx, r)
		require.ErrorIs(t, err, attendance.ErrStatusPending)
		require.ErrorIs(t, err, ierrors.ErrHTTP)
		var pending *attendance.StatusPendingError
		require.True(t, errors.As(err, &pending))
		require.Equal(t, "s1", pending.SessionID)
		require.Len(t, pending.Records, len(students))
		require.Len(t, f.backend.Batches(), 1)
		require.True(t, r.Closed())

		require.NoError(t, f.workflow.MarkDelivered(ctx, "s1"))
		require.Equal(t, academy.SesionDictada, f.backend.Sesion("s1").Estado)
	})

	t.Run("status attempts", func(t *testing.T) {
		f := setupTestFixture(t, students...)
		workflow, err := attendance.NewWorkflow(f.backend, attendance.WithStatusAttempts(3), attendance.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		r, err := workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		f.backend.FailNext(backendfake.OpUpdateEstado, ierrors.ErrHTTP, ierrors.ErrHTTP)

		_, err = workflow.Commit(ctx, r)
		require.NoError(t, err)
		require.Equal(t, 3, f.backend.CallCount(backendfake.OpUpdateEstado))
	})
}

func TestWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()

	backend := fakebackend.New(t)
	backend.AddUser("profe", "profe@salsa.hn", "profeprofe")
	backend.Seed("sesiones", map[string]any{"id": "s1", "grupo": "g1", "fecha": "2024-05-06", "estado": "programada"})
	for _, id := range []string{"A", "B", "C"} {
		backend.Seed("matriculas", map[string]any{
			"id":             "m-" + id,
			"alumno":         id,
			"grupo":          "g1",
			"estado":         "vigente",
			"alumno_detalle": map[string]any{"id": id, "nombres": id, "apellidos": "Díaz"},
		})
	}

	store := token.NewInMemoryStore()
	require.NoError(t, store.SetTokens(backend.IssueTokens("profe")))
	client, err := api.New(backend.URL(), store, api.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	workflow, err := attendance.NewWorkflow(academy.New(client), attendance.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	r, err := workflow.LoadRoster(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())
	require.Empty(t, r.Present())

	_, err = r.Toggle("A")
	require.NoError(t, err)
	_, err = r.Toggle("C")
	require.NoError(t, err)

	res, err := workflow.Commit(ctx, r)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"A": true, "B": false, "C": true}, presence(res.Records))
	require.Len(t, res.Stored, 3)

	calls := backend.Calls()
	var batchAt, patchAt int
	for i, c := range calls {
		switch {
		case c.Method == http.MethodPost && c.Path == api.RouteAsistenciasBatch:
			batchAt = i
			require.JSONEq(t, `{"sesion":"s1","asistencias":[
				{"alumno":"A","presente":true},
				{"alumno":"B","presente":false},
				{"alumno":"C","presente":true}]}`, c.Body)
		case c.Method == http.MethodPatch && c.Path == api.Detail(api.RouteSesiones, "s1"):
			patchAt = i
			require.JSONEq(t, `{"estado":"dictada"}`, c.Body)
		}
	}
	require.NotZero(t, batchAt)
	require.Greater(t, patchAt, batchAt)
	require.Equal(t, "dictada", backend.Item("sesiones", "s1")["estado"])

	t.Run("reload shows stored presences", func(t *testing.T) {
		again, err := workflow.LoadRoster(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, []string{"A", "C"}, again.Present())
	})
}
