package academy

import "time"

type EstadoSesion string

const (
	SesionProgramada EstadoSesion = "programada"
	SesionDictada    EstadoSesion = "dictada" // delivered
	SesionCancelada  EstadoSesion = "cancelada"
)

// Sesion is one dated meeting of a Grupo.
type Sesion struct {
	ID         string       `json:"id,omitempty"`
	Grupo      string       `json:"grupo"`
	Fecha      string       `json:"fecha"`
	HoraInicio string       `json:"hora_inicio,omitempty"`
	HoraFin    string       `json:"hora_fin,omitempty"`
	Instructor string       `json:"instructor,omitempty"`
	Estado     EstadoSesion `json:"estado,omitempty"`
}

// Asistencia is a stored attendance record. RegistradoPor and FechaRegistro
// are assigned by the backend.
type Asistencia struct {
	ID            string     `json:"id,omitempty"`
	Sesion        string     `json:"sesion"`
	Alumno        string     `json:"alumno"`
	Presente      bool       `json:"presente"`
	RegistradoPor string     `json:"registrado_por,omitempty"`
	FechaRegistro *time.Time `json:"fecha_registro,omitempty"`
}

type AsistenciaItem struct {
	Alumno   string `json:"alumno"`
	Presente bool   `json:"presente"`
}

// AsistenciaBatch is the body of POST /asistencias/batch/.
type AsistenciaBatch struct {
	Sesion      string           `json:"sesion"`
	Asistencias []AsistenciaItem `json:"asistencias"`
}

type sesionEstadoUpdate struct {
	Estado EstadoSesion `json:"estado"`
}
