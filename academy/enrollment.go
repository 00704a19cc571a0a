package academy

// MatriculaVigente is the estado of an active enrollment.
const MatriculaVigente = "vigente"

type Matricula struct {
	ID             string  `json:"id,omitempty"`
	Alumno         string  `json:"alumno"`
	Grupo          string  `json:"grupo"`
	FechaMatricula string  `json:"fecha_matricula,omitempty"`
	Estado         string  `json:"estado,omitempty"`
	Saldo          string  `json:"saldo,omitempty"`
	AlumnoDetalle  *Alumno `json:"alumno_detalle,omitempty"`
}

// Vigente reports whether the enrollment is active.
func (m *Matricula) Vigente() bool {
	return m.Estado == MatriculaVigente
}

type Pago struct {
	ID         string `json:"id,omitempty"`
	Matricula  string `json:"matricula"`
	Monto      string `json:"monto"`
	Fecha      string `json:"fecha,omitempty"`
	Metodo     string `json:"metodo,omitempty"`
	Referencia string `json:"referencia,omitempty"`
}

type Factura struct {
	ID        string `json:"id,omitempty"`
	Numero    string `json:"numero,omitempty"`
	Matricula string `json:"matricula,omitempty"`
	Pago      string `json:"pago,omitempty"`
	Total     string `json:"total,omitempty"`
	Fecha     string `json:"fecha,omitempty"`
	Estado    string `json:"estado,omitempty"`
}
