package academy

type Evento struct {
	ID     string `json:"id,omitempty"`
	Nombre string `json:"nombre"`
	Fecha  string `json:"fecha"`
	Lugar  string `json:"lugar,omitempty"`
	Precio string `json:"precio,omitempty"`
	Cupo   int    `json:"cupo,omitempty"`
}

type Ticket struct {
	ID        string `json:"id,omitempty"`
	Evento    string `json:"evento"`
	Comprador string `json:"comprador"`
	Email     string `json:"email,omitempty"`
	Cantidad  int    `json:"cantidad"`
	Total     string `json:"total,omitempty"`
	Estado    string `json:"estado,omitempty"`
}

// Menu is one dashboard navigation entry allowed for the current user.
type Menu struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
	Ruta   string `json:"ruta"`
}
