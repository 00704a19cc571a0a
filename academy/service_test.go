package academy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/lemussistemas/salsa-hn-frontend/academy"
	"github.com/lemussistemas/salsa-hn-frontend/api"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/internal/fakebackend"
	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *fakebackend.Backend
	service *academy.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := fakebackend.New(t)
	backend.AddUser("admin", "admin@salsa.hn", "adminadmin")
	store := token.NewInMemoryStore()
	require.NoError(t, store.SetTokens(backend.IssueTokens("admin")))

	client, err := api.New(backend.URL(), store, api.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return &testFixture{backend: backend, service: academy.New(client)}
}

func TestService_Alumnos(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	created, err := f.service.CreateAlumno(ctx, &academy.Alumno{Nombres: "Ana", Apellidos: "Martínez", Email: "ana@salsa.hn"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Ana Martínez", created.NombreCompleto())

	updated, err := f.service.UpdateAlumno(ctx, created.ID, academy.Changes{"telefono": "9999-0000"})
	require.NoError(t, err)
	require.Equal(t, "9999-0000", updated.Telefono)
	require.Equal(t, "Ana", updated.Nombres)

	all, err := f.service.ListAlumnos(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, f.service.DeleteAlumno(ctx, created.ID))
	all, err = f.service.ListAlumnos(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	err = f.service.DeleteAlumno(ctx, created.ID)
	require.ErrorIs(t, err, ierrors.ErrNotFound)
}

func TestService_DerivedFields(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.backend.Seed("alumnos", map[string]any{"id": "a1", "nombres": "Ana", "apellidos": "Martínez", "nombre": "Ana Martínez", "correo": "ana@salsa.hn"})
	f.backend.Seed("instructores", map[string]any{"id": "i1", "nombres": "Luis", "apellidos": "Reyes", "nombre": "Luis Reyes", "correo": "luis@salsa.hn"})

	alumnos, err := f.service.ListAlumnos(ctx)
	require.NoError(t, err)
	require.Len(t, alumnos, 1)
	require.Equal(t, "Ana Martínez", alumnos[0].Nombre)
	require.Equal(t, "ana@salsa.hn", alumnos[0].Correo)

	instructores, err := f.service.ListInstructores(ctx)
	require.NoError(t, err)
	require.Len(t, instructores, 1)
	require.Equal(t, "Luis Reyes", instructores[0].Nombre)
	require.Equal(t, "luis@salsa.hn", instructores[0].Correo)
}

func TestService_CatalogueAndStaff(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	curso, err := f.service.CreateCurso(ctx, &academy.Curso{Nombre: "Salsa en línea", Nivel: academy.NivelBasico, PrecioBase: "1200.00"})
	require.NoError(t, err)

	grupo, err := f.service.CreateGrupo(ctx, &academy.Grupo{
		Curso:       curso.ID,
		NombreGrupo: "Lunes noche",
		Cupo:        2,
		DiaSemana:   "lunes",
		HoraInicio:  "19:00",
		HoraFin:     "20:30",
	})
	require.NoError(t, err)
	require.Equal(t, curso.ID, grupo.Curso)

	grupos, err := f.service.ListGrupos(ctx)
	require.NoError(t, err)
	require.Len(t, grupos, 1)
	require.False(t, grupos[0].Lleno())

	_, err = f.service.UpdateCurso(ctx, curso.ID, academy.Changes{"estado": academy.EstadoInactivo})
	require.NoError(t, err)
	cursos, err := f.service.ListCursos(ctx)
	require.NoError(t, err)
	require.Equal(t, academy.EstadoInactivo, cursos[0].Estado)

	require.NoError(t, f.service.DeleteGrupo(ctx, grupo.ID))
	require.NoError(t, f.service.DeleteCurso(ctx, curso.ID))

	inst, err := f.service.CreateInstructor(ctx, &academy.Instructor{Nombres: "Luis", Apellidos: "Paz", TipoPago: academy.TipoPagoPorClase, TarifaClase: "350.00", Activo: true})
	require.NoError(t, err)
	_, err = f.service.UpdateInstructor(ctx, inst.ID, academy.Changes{"activo": false})
	require.NoError(t, err)
	staff, err := f.service.ListInstructores(ctx)
	require.NoError(t, err)
	require.False(t, staff[0].Activo)
	require.NoError(t, f.service.DeleteInstructor(ctx, inst.ID))
}

func TestService_Matriculas(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.backend.Seed("matriculas",
		map[string]any{"id": "m1", "alumno": "a1", "grupo": "g1", "estado": "vigente", "saldo": "500.00"},
		map[string]any{"id": "m2", "alumno": "a2", "grupo": "g1", "estado": "retirada", "saldo": "0.00"},
		map[string]any{"id": "m3", "alumno": "a3", "grupo": "g2", "estado": "vigente", "saldo": "0.00"},
	)
	f.backend.Seed("pagos", map[string]any{"id": "p1", "matricula": "m1", "monto": "700.00"})

	vigentes, err := f.service.ListMatriculasVigentes(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, vigentes, 1)
	require.True(t, vigentes[0].Vigente())
	require.Equal(t, 1, f.backend.Count(http.MethodGet, api.RouteMatriculasVigentes))
	require.Equal(t, "/matriculas/vigentes/?grupo=g1", f.backend.Calls()[0].Path)

	todas, err := f.service.ListMatriculas(ctx)
	require.NoError(t, err)
	require.Len(t, todas, 3)

	deuda, err := f.service.ListMatriculasConDeuda(ctx)
	require.NoError(t, err)
	require.Len(t, deuda, 1)
	require.Equal(t, "m1", deuda[0].ID)

	raw, err := f.service.EstadoCuenta(ctx, "m1")
	require.NoError(t, err)
	var estado map[string]any
	require.NoError(t, json.Unmarshal(raw, &estado))
	require.Equal(t, "500.00", estado["saldo"])

	_, err = f.service.EstadoCuenta(ctx, "nope")
	require.ErrorIs(t, err, ierrors.ErrNotFound)

	pagos, err := f.service.ListPagos(ctx)
	require.NoError(t, err)
	require.Equal(t, "700.00", pagos[0].Monto)

	_, err = f.service.CreatePago(ctx, &academy.Pago{Matricula: "m1", Monto: "100.00"})
	require.NoError(t, err)

	facturas, err := f.service.ListFacturas(ctx)
	require.NoError(t, err)
	require.Empty(t, facturas)
}

func TestService_SesionesAndAsistencias(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.backend.Seed("sesiones", map[string]any{"id": "s1", "grupo": "g1", "fecha": "2024-05-06", "estado": "programada"})

	sesion, err := f.service.GetSesion(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, academy.SesionProgramada, sesion.Estado)

	_, err = f.service.GetSesion(ctx, "s404")
	require.ErrorIs(t, err, ierrors.ErrNotFound)

	stored, err := f.service.BatchAsistencias(ctx, academy.AsistenciaBatch{
		Sesion: "s1",
		Asistencias: []academy.AsistenciaItem{
			{Alumno: "a1", Presente: true},
			{Alumno: "a2", Presente: false},
		},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "admin", stored[0].RegistradoPor)
	require.NotNil(t, stored[0].FechaRegistro)

	asistencias, err := f.service.ListAsistencias(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, asistencias, 2)

	sesion, err = f.service.UpdateSesionEstado(ctx, "s1", academy.SesionDictada)
	require.NoError(t, err)
	require.Equal(t, academy.SesionDictada, sesion.Estado)

	sesiones, err := f.service.ListSesiones(ctx)
	require.NoError(t, err)
	require.Len(t, sesiones, 1)

	t.Run("batch for unknown session is a validation error", func(t *testing.T) {
		_, err := f.service.BatchAsistencias(ctx, academy.AsistenciaBatch{Sesion: "s404", Asistencias: []academy.AsistenciaItem{{Alumno: "a1"}}})
		var ve *ierrors.ValidationError
		require.True(t, errors.As(err, &ve))
		require.Equal(t, []string{"Sesión inválida."}, ve.Field("sesion"))
	})
}

func TestService_EventosAndMenus(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.backend.Seed("menus",
		map[string]any{"id": 1, "nombre": "Alumnos", "ruta": "/dashboard/alumnos"},
		map[string]any{"id": 2, "nombre": "Pagos", "ruta": "/dashboard/pagos"},
	)

	menus, err := f.service.ListMenus(ctx)
	require.NoError(t, err)
	require.Equal(t, []academy.Menu{
		{ID: 1, Nombre: "Alumnos", Ruta: "/dashboard/alumnos"},
		{ID: 2, Nombre: "Pagos", Ruta: "/dashboard/pagos"},
	}, menus)

	evento, err := f.service.CreateEvento(ctx, &academy.Evento{Nombre: "Social de salsa", Fecha: "2024-06-01", Cupo: 80})
	require.NoError(t, err)
	_, err = f.service.CreateTicket(ctx, &academy.Ticket{Evento: evento.ID, Comprador: "Rosa", Cantidad: 2})
	require.NoError(t, err)
	_, err = f.service.CreateTicket(ctx, &academy.Ticket{Evento: "otro", Comprador: "Juan", Cantidad: 1})
	require.NoError(t, err)

	tickets, err := f.service.ListTickets(ctx, evento.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Equal(t, "Rosa", tickets[0].Comprador)

	eventos, err := f.service.ListEventos(ctx)
	require.NoError(t, err)
	require.Len(t, eventos, 1)
}

func TestService_Unauthenticated(t *testing.T) {
	backend := fakebackend.New(t)
	client, err := api.New(backend.URL(), token.NewInMemoryStore(), api.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = academy.New(client).ListAlumnos(context.Background())
	require.ErrorIs(t, err, ierrors.ErrUnauthenticated)
}
