package entity

import "time"

// Estados de un elemento de la cola de envío Veri*FACTU.
const (
	QueueStatePending    = "pending"
	QueueStateProcessing = "processing"
	QueueStateSent       = "sent"
	QueueStateError      = "error"
	QueueStateCancelled  = "cancelled"
)

// Prioridades por origen del encolado.
const (
	PriorityAutoPost   = 10 // encolado automático al contabilizar
	PriorityManualSend = 5  // reenvío manual del operador
)

// DefaultMaxRetries intentos máximos antes de pasar a error terminal.
const DefaultMaxRetries = 3

// QueueItem es un elemento de la cola persistente de envío a la AEAT.
// Invariante: como máximo un elemento activo (pending o processing) por
// factura; se garantiza en el encolado, no solo por constraint.
type QueueItem struct {
	ID                string
	Name              string // descripción legible (ej: "Envío Veri*FACTU - INV/2024/001")
	InvoiceID         string
	CompanyID         string
	State             string // ver constantes QueueState*
	Priority          int    // mayor = más urgente
	RetryCount        int
	MaxRetries        int
	ScheduledAt       time.Time // siguiente momento elegible de proceso
	ProcessedAt       *time.Time
	LastError         string
	AuthorityResponse string // respuesta de la AEAT (CSV / detalle)
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive indica si el elemento cuenta para el invariante de unicidad.
func (q *QueueItem) IsActive() bool {
	return q.State == QueueStatePending || q.State == QueueStateProcessing
}

// IsTerminal indica si el elemento ya no admite transiciones automáticas.
func (q *QueueItem) IsTerminal() bool {
	return q.State == QueueStateSent || q.State == QueueStateError || q.State == QueueStateCancelled
}

// CanCancel solo se permite cancelar desde pending/processing.
func (q *QueueItem) CanCancel() bool { return q.IsActive() }

// CanRetry el reintento manual solo aplica a error/cancelled.
func (q *QueueItem) CanRetry() bool {
	return q.State == QueueStateError || q.State == QueueStateCancelled
}
