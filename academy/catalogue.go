package academy

type Nivel string

const (
	NivelBasico     Nivel = "básico"
	NivelIntermedio Nivel = "intermedio"
	NivelAvanzado   Nivel = "avanzado"
)

const (
	EstadoActivo   = "activo"
	EstadoInactivo = "inactivo"
)

type Curso struct {
	ID         string `json:"id,omitempty"`
	Nombre     string `json:"nombre"`
	Nivel      Nivel  `json:"nivel"`
	PrecioBase string `json:"precio_base"`
	Estado     string `json:"estado,omitempty"`
}

// Grupo is a scheduled instance of a course. Inscritos and Disponibles are
// computed by the backend.
type Grupo struct {
	ID           string `json:"id,omitempty"`
	Curso        string `json:"curso"`
	NombreGrupo  string `json:"nombre_grupo"`
	Cupo         int    `json:"cupo"`
	DiaSemana    string `json:"dia_semana"`
	HoraInicio   string `json:"hora_inicio"`
	HoraFin      string `json:"hora_fin"`
	Sede         string `json:"sede,omitempty"`
	Estado       string `json:"estado,omitempty"`
	CursoDetalle *Curso `json:"curso_detalle,omitempty"`
	Inscritos    int    `json:"inscritos,omitempty"`
	Disponibles  int    `json:"disponibles,omitempty"`
}

// Lleno reports whether the group has no seats left.
func (g *Grupo) Lleno() bool {
	return g.Cupo > 0 && g.Inscritos >= g.Cupo
}
