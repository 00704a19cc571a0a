// Package academy wraps the backend's REST resources in typed calls. It adds
// no business rules of its own: balances, invoices and enrollment checks are
// computed by the backend.
package academy

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/lemussistemas/salsa-hn-frontend/api"
	"github.com/pkg/errors"
)

// Changes is a partial update sent with PATCH.
type Changes map[string]any

type Service struct {
	client *api.Client
}

func New(client *api.Client) *Service {
	return &Service{client: client}
}

func list[T any](ctx context.Context, c *api.Client, path string, query url.Values) ([]T, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	items := make([]T, 0)
	if err := c.Get(ctx, path, &items); err != nil {
		return nil, errors.Wrapf(err, "list %s", path)
	}
	return items, nil
}

func create[T any](ctx context.Context, c *api.Client, path string, item *T) (*T, error) {
	var out T
	if err := c.Post(ctx, path, item, &out); err != nil {
		return nil, errors.Wrapf(api.AsValidationError(err), "create %s", path)
	}
	return &out, nil
}

func get[T any](ctx context.Context, c *api.Client, collection, id string) (*T, error) {
	var out T
	if err := c.Get(ctx, api.Detail(collection, url.PathEscape(id)), &out); err != nil {
		return nil, errors.Wrapf(err, "get %s%s", collection, id)
	}
	return &out, nil
}

func update[T any](ctx context.Context, c *api.Client, collection, id string, changes any) (*T, error) {
	var out T
	if err := c.Patch(ctx, api.Detail(collection, url.PathEscape(id)), changes, &out); err != nil {
		return nil, errors.Wrapf(api.AsValidationError(err), "update %s%s", collection, id)
	}
	return &out, nil
}

func remove(ctx context.Context, c *api.Client, collection, id string) error {
	return errors.Wrapf(c.Delete(ctx, api.Detail(collection, url.PathEscape(id))), "delete %s%s", collection, id)
}

// Alumnos

func (s *Service) ListAlumnos(ctx context.Context) ([]Alumno, error) {
	return list[Alumno](ctx, s.client, api.RouteAlumnos, nil)
}

func (s *Service) CreateAlumno(ctx context.Context, a *Alumno) (*Alumno, error) {
	return create(ctx, s.client, api.RouteAlumnos, a)
}

func (s *Service) UpdateAlumno(ctx context.Context, id string, changes Changes) (*Alumno, error) {
	return update[Alumno](ctx, s.client, api.RouteAlumnos, id, changes)
}

func (s *Service) DeleteAlumno(ctx context.Context, id string) error {
	return remove(ctx, s.client, api.RouteAlumnos, id)
}

// Instructores

func (s *Service) ListInstructores(ctx context.Context) ([]Instructor, error) {
	return list[Instructor](ctx, s.client, api.RouteInstructores, nil)
}

func (s *Service) CreateInstructor(ctx context.Context, i *Instructor) (*Instructor, error) {
	return create(ctx, s.client, api.RouteInstructores, i)
}

func (s *Service) UpdateInstructor(ctx context.Context, id string, changes Changes) (*Instructor, error) {
	return update[Instructor](ctx, s.client, api.RouteInstructores, id, changes)
}

func (s *Service) DeleteInstructor(ctx context.Context, id string) error {
	return remove(ctx, s.client, api.RouteInstructores, id)
}

// Cursos and grupos

func (s *Service) ListCursos(ctx context.Context) ([]Curso, error) {
	return list[Curso](ctx, s.client, api.RouteCursos, nil)
}

func (s *Service) CreateCurso(ctx context.Context, c *Curso) (*Curso, error) {
	return create(ctx, s.client, api.RouteCursos, c)
}

func (s *Service) UpdateCurso(ctx context.Context, id string, changes Changes) (*Curso, error) {
	return update[Curso](ctx, s.client, api.RouteCursos, id, changes)
}

func (s *Service) DeleteCurso(ctx context.Context, id string) error {
	return remove(ctx, s.client, api.RouteCursos, id)
}

func (s *Service) ListGrupos(ctx context.Context) ([]Grupo, error) {
	return list[Grupo](ctx, s.client, api.RouteGrupos, nil)
}

func (s *Service) CreateGrupo(ctx context.Context, g *Grupo) (*Grupo, error) {
	return create(ctx, s.client, api.RouteGrupos, g)
}

func (s *Service) UpdateGrupo(ctx context.Context, id string, changes Changes) (*Grupo, error) {
	return update[Grupo](ctx, s.client, api.RouteGrupos, id, changes)
}

func (s *Service) DeleteGrupo(ctx context.Context, id string) error {
	return remove(ctx, s.client, api.RouteGrupos, id)
}

// Matrículas

func (s *Service) ListMatriculas(ctx context.Context) ([]Matricula, error) {
	return list[Matricula](ctx, s.client, api.RouteMatriculas, nil)
}

// ListMatriculasVigentes lists the active enrollments, optionally restricted
// to one grupo.
func (s *Service) ListMatriculasVigentes(ctx context.Context, grupoID string) ([]Matricula, error) {
	var q url.Values
	if grupoID != "" {
		q = url.Values{"grupo": {grupoID}}
	}
	return list[Matricula](ctx, s.client, api.RouteMatriculasVigentes, q)
}

func (s *Service) ListMatriculasConDeuda(ctx context.Context) ([]Matricula, error) {
	return list[Matricula](ctx, s.client, api.RouteMatriculasConDeuda, nil)
}

// EstadoCuenta returns the backend's account statement for an enrollment
// untouched.
func (s *Service) EstadoCuenta(ctx context.Context, matriculaID string) (json.RawMessage, error) {
	var out json.RawMessage
	path := api.Detail(api.RouteMatriculas, url.PathEscape(matriculaID)) + api.RouteMatriculaEstadoPath
	if err := s.client.Get(ctx, path, &out); err != nil {
		return nil, errors.Wrapf(err, "estado de cuenta %s", matriculaID)
	}
	return out, nil
}

// Pagos and facturas

func (s *Service) ListPagos(ctx context.Context) ([]Pago, error) {
	return list[Pago](ctx, s.client, api.RoutePagos, nil)
}

func (s *Service) CreatePago(ctx context.Context, p *Pago) (*Pago, error) {
	return create(ctx, s.client, api.RoutePagos, p)
}

func (s *Service) ListFacturas(ctx context.Context) ([]Factura, error) {
	return list[Factura](ctx, s.client, api.RouteFacturas, nil)
}

// Sesiones and asistencias

func (s *Service) ListSesiones(ctx context.Context) ([]Sesion, error) {
	return list[Sesion](ctx, s.client, api.RouteSesiones, nil)
}

func (s *Service) GetSesion(ctx context.Context, id string) (*Sesion, error) {
	return get[Sesion](ctx, s.client, api.RouteSesiones, id)
}

func (s *Service) UpdateSesionEstado(ctx context.Context, id string, estado EstadoSesion) (*Sesion, error) {
	return update[Sesion](ctx, s.client, api.RouteSesiones, id, sesionEstadoUpdate{Estado: estado})
}

// ListAsistencias lists stored attendance, optionally for one session.
func (s *Service) ListAsistencias(ctx context.Context, sesionID string) ([]Asistencia, error) {
	var q url.Values
	if sesionID != "" {
		q = url.Values{"sesion": {sesionID}}
	}
	return list[Asistencia](ctx, s.client, api.RouteAsistencias, q)
}

// BatchAsistencias stores the attendance of a whole session in one request.
func (s *Service) BatchAsistencias(ctx context.Context, batch AsistenciaBatch) ([]Asistencia, error) {
	out := make([]Asistencia, 0, len(batch.Asistencias))
	if err := s.client.Post(ctx, api.RouteAsistenciasBatch, batch, &out); err != nil {
		return nil, errors.Wrapf(api.AsValidationError(err), "batch asistencias %s", batch.Sesion)
	}
	return out, nil
}

// Eventos and tickets

func (s *Service) ListEventos(ctx context.Context) ([]Evento, error) {
	return list[Evento](ctx, s.client, api.RouteEventos, nil)
}

func (s *Service) CreateEvento(ctx context.Context, e *Evento) (*Evento, error) {
	return create(ctx, s.client, api.RouteEventos, e)
}

func (s *Service) ListTickets(ctx context.Context, eventoID string) ([]Ticket, error) {
	var q url.Values
	if eventoID != "" {
		q = url.Values{"evento": {eventoID}}
	}
	return list[Ticket](ctx, s.client, api.RouteTickets, q)
}

func (s *Service) CreateTicket(ctx context.Context, t *Ticket) (*Ticket, error) {
	return create(ctx, s.client, api.RouteTickets, t)
}

// ListMenus returns the navigation entries the current user may see.
func (s *Service) ListMenus(ctx context.Context) ([]Menu, error) {
	return list[Menu](ctx, s.client, api.RouteAuthMenus, nil)
}
