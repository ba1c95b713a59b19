package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiscalRecord es el registro fiscal inmutable de una factura (Veri*FACTU).
// Una vez creado no se modifica: una corrección exige un nuevo registro
// encadenado, nunca una edición. La huella es función pura de la cadena
// canónica, y la cadena lo es de los demás campos en orden fijo.
type FiscalRecord struct {
	ID                  string
	InvoiceID           string
	CompanyID           string
	ChainIndex          int64  // posición en la cadena de la empresa (1 = primero)
	IssuerID            string // NIF del emisor
	SerialNumber        string // número de serie+factura, truncado a 60
	ExpeditionDate      time.Time
	DocumentType        string // F1..F3, R1..R5
	AmountTax           decimal.Decimal
	AmountTotal         decimal.Decimal
	PreviousFingerprint string // huella del registro anterior; vacía en el primero
	RegisteredAt        time.Time
	CanonicalString     string // cadena de huella completa (auditable)
	Fingerprint         string // SHA-256 hex, 64 caracteres
	Reference           string // código de referencia VF-YYYYMMDD-...
	CreatedAt           time.Time
}
