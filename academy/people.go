package academy

import "strings"

type Alumno struct {
	ID              string  `json:"id,omitempty"`
	Nombres         string  `json:"nombres"`
	Apellidos       string  `json:"apellidos"`
	Email           string  `json:"email,omitempty"`
	Telefono        string  `json:"telefono,omitempty"`
	Estado          string  `json:"estado,omitempty"`
	FechaNacimiento *string `json:"fecha_nacimiento,omitempty"` // "2000-01-01"

	// Derived by the serializer when present.
	Nombre string `json:"nombre,omitempty"`
	Correo string `json:"correo,omitempty"`
}

// NombreCompleto joins nombres and apellidos.
func (a *Alumno) NombreCompleto() string {
	return strings.TrimSpace(a.Nombres + " " + a.Apellidos)
}

type TipoPago string

const (
	TipoPagoPorClase TipoPago = "por_clase"
	TipoPagoFijo     TipoPago = "fijo"
)

type Instructor struct {
	ID          string   `json:"id,omitempty"`
	Nombres     string   `json:"nombres"`
	Apellidos   string   `json:"apellidos"`
	Email       string   `json:"email,omitempty"`
	Telefono    string   `json:"telefono,omitempty"`
	TipoPago    TipoPago `json:"tipo_pago,omitempty"`
	TarifaClase string   `json:"tarifa_clase,omitempty"` // decimal as text
	SalarioBase string   `json:"salario_base,omitempty"`
	Activo      bool     `json:"activo"`
	Nombre      string   `json:"nombre,omitempty"`
	Correo      string   `json:"correo,omitempty"`
}

func (i *Instructor) NombreCompleto() string {
	return strings.TrimSpace(i.Nombres + " " + i.Apellidos)
}
