package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados contables de la factura.
const (
	InvoiceStateDraft     = "draft"
	InvoiceStatePosted    = "posted"
	InvoiceStateCancelled = "cancelled"
)

// Tipos de movimiento. Solo las facturas de venta (out_*) se reportan a Veri*FACTU.
const (
	MoveTypeOutInvoice = "out_invoice" // factura de cliente
	MoveTypeOutRefund  = "out_refund"  // rectificativa / abono de cliente
	MoveTypeInInvoice  = "in_invoice"  // factura de proveedor (no reportable)
)

// Estados de reporte Veri*FACTU de la factura. Es un resumen derivado de las
// transiciones del elemento de cola, no una fuente de verdad independiente.
const (
	ReportingStatusNone    = ""
	ReportingStatusPending = "pending"
	ReportingStatusSent    = "sent"
	ReportingStatusError   = "error"
)

// Invoice representa la cabecera de una factura ya contabilizada.
type Invoice struct {
	ID               string
	CompanyID        string
	Serial           string // Número de serie+factura (ej: INV/2024/001)
	ThirdPartySerial string // Número del tercero si la factura es emitida por terceros
	MoveType         string // ver constantes MoveType*
	State            string // ver constantes InvoiceState*
	DocumentType     string // Código AEAT F1..F3, R1..R5 (vacío = derivar por variante)
	InvoiceDate      time.Time
	TaxTotal         decimal.Decimal
	GrandTotal       decimal.Decimal
	VerifactuEnabled bool      // calculado al contabilizar (empresa + posición fiscal)
	RegisteredAt     time.Time // alta del registro contable (UTC, base del timestamp fiscal)
	ReportingStatus  string    // ver constantes ReportingStatus*
	ReportingError   string    // detalle del último fallo terminal (visible al operador)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsCustomerInvoice indica si el movimiento es de venta (reportable).
func (i *Invoice) IsCustomerInvoice() bool {
	return i.MoveType == MoveTypeOutInvoice || i.MoveType == MoveTypeOutRefund
}
