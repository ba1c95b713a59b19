package repository

import (
	"context"
	"time"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// QueueRepository puerto de persistencia de la cola de envío Veri*FACTU.
type QueueRepository interface {
	Create(ctx context.Context, item *entity.QueueItem) error
	GetByID(ctx context.Context, id string) (*entity.QueueItem, error)
	// GetActiveByInvoice devuelve el elemento pending/processing de la
	// factura, o nil si no existe (como máximo hay uno).
	GetActiveByInvoice(ctx context.Context, invoiceID string) (*entity.QueueItem, error)
	Update(ctx context.Context, item *entity.QueueItem) error
	// DequeueDue selecciona elementos pending con scheduled_at <= now,
	// ordenados por prioridad descendente y scheduled_at ascendente,
	// limitados a limit. No retiene estado entre llamadas.
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]*entity.QueueItem, error)
	// RecoverStuck devuelve a pending los elementos atascados en processing
	// desde antes de olderThan (caída del worker). Retorna cuántos recuperó.
	RecoverStuck(ctx context.Context, olderThan time.Time) (int, error)
	List(ctx context.Context, state string, limit int) ([]*entity.QueueItem, error)
}
