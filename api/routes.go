package api

// Backend route constants. Paths are relative to the configured base URL and
// keep the backend's trailing slashes.
const (
	// Auth
	RouteAuthRegister       = "/auth/register/"
	RouteAuthLogin          = "/auth/login/"
	RouteAuthLogout         = "/auth/logout/"
	RouteAuthRefresh        = "/auth/refresh/"
	RouteAuthMe             = "/auth/me/"
	RouteAuthMeUpdate       = "/auth/me/update/"
	RouteAuthChangePassword = "/auth/me/change-password/"
	RouteAuthMenus          = "/auth/menus/"

	// People
	RouteAlumnos      = "/alumnos/"
	RouteInstructores = "/instructores/"

	// Catalogue
	RouteCursos = "/cursos/"
	RouteGrupos = "/grupos/"

	// Enrollment and billing
	RouteMatriculas          = "/matriculas/"
	RouteMatriculasVigentes  = "/matriculas/vigentes/"
	RouteMatriculasConDeuda  = "/matriculas/con_deuda/"
	RouteMatriculaEstadoPath = "estado_cuenta/"
	RoutePagos               = "/pagos/"
	RouteFacturas            = "/facturas/"

	// Scheduling and attendance
	RouteSesiones         = "/sesiones/"
	RouteAsistencias      = "/asistencias/"
	RouteAsistenciasBatch = "/asistencias/batch/"

	// Events
	RouteEventos = "/eventos/"
	RouteTickets = "/tickets/"
)

// Detail joins a collection route and an id into "<collection><id>/".
func Detail(collection, id string) string {
	return collection + id + "/"
}
