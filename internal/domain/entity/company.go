package entity

import "time"

// Company representa una empresa emisora (enfoque España, Veri*FACTU AEAT).
type Company struct {
	ID                string
	Name              string
	NIF               string // NIF/CIF español del emisor (con prefijo de país o sin él)
	Address           string
	Email             string
	VerifactuEnabled  bool   // Veri*FACTU activado para la empresa
	AEATEnvironment   string // "1" = Producción, "2" = Pruebas (habilitación)
	Status            string // active, suspended, inactive
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
