package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// QueueService acciones sobre la cola de envío: encolado idempotente y
// operaciones manuales de operador (reintento, cancelación).
type QueueService struct {
	queueRepo   repository.QueueRepository
	invoiceRepo repository.InvoiceRepository
	recordRepo  repository.FiscalRecordRepository
	maxRetries  int

	// Now inyectable en tests; por defecto time.Now.
	Now func() time.Time
}

// NewQueueService construye el servicio de cola. maxRetries <= 0 usa el
// valor por defecto.
func NewQueueService(
	queueRepo repository.QueueRepository,
	invoiceRepo repository.InvoiceRepository,
	recordRepo repository.FiscalRecordRepository,
	maxRetries int,
) *QueueService {
	if maxRetries <= 0 {
		maxRetries = entity.DefaultMaxRetries
	}
	return &QueueService{
		queueRepo:   queueRepo,
		invoiceRepo: invoiceRepo,
		recordRepo:  recordRepo,
		maxRetries:  maxRetries,
		Now:         time.Now,
	}
}

// Enqueue encola la factura para envío. Idempotente: si ya existe un elemento
// activo (pending/processing) lo devuelve sin cambios, conservando su
// prioridad original. La factura debe tener registro fiscal finalizado.
func (s *QueueService) Enqueue(ctx context.Context, invoiceID string, priority int) (*entity.QueueItem, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	record, err := s.recordRepo.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene registro fiscal finalizado", domain.ErrInvalidState, invoiceID)
	}

	existing, err := s.queueRepo.GetActiveByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.Now()
	item := &entity.QueueItem{
		ID:          uuid.New().String(),
		Name:        "Envío Veri*FACTU - " + invoice.Serial,
		InvoiceID:   invoice.ID,
		CompanyID:   invoice.CompanyID,
		State:       entity.QueueStatePending,
		Priority:    priority,
		MaxRetries:  s.maxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.queueRepo.Create(ctx, item); err != nil {
		// Dos encolados simultáneos pueden pasar ambos la comprobación de
		// arriba; el índice único de la cola deja ganar a uno solo. El
		// perdedor devuelve el elemento activo existente.
		if errors.Is(err, domain.ErrDuplicate) {
			active, activeErr := s.queueRepo.GetActiveByInvoice(ctx, invoiceID)
			if activeErr == nil && active != nil {
				return active, nil
			}
		}
		return nil, err
	}
	if err := s.invoiceRepo.UpdateReportingStatus(ctx, invoice.ID, entity.ReportingStatusPending, ""); err != nil {
		return nil, err
	}
	return item, nil
}

// Cancel cancela un elemento. Solo permitido desde pending/processing; la
// cancelación es cooperativa: no aborta un envío en vuelo, solo evita
// reintentos futuros.
func (s *QueueService) Cancel(ctx context.Context, itemID string) (*entity.QueueItem, error) {
	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.CanCancel() {
		return nil, fmt.Errorf("%w: no se puede cancelar un elemento en estado %q", domain.ErrInvalidState, item.State)
	}
	item.State = entity.QueueStateCancelled
	item.UpdatedAt = s.Now()
	if err := s.queueRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RetryNow reencola manualmente un elemento en error/cancelled: reinicia el
// contador de intentos, limpia el último error y lo programa para ya,
// saltándose el backoff. Acción de operador.
func (s *QueueService) RetryNow(ctx context.Context, itemID string) (*entity.QueueItem, error) {
	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.CanRetry() {
		return nil, fmt.Errorf("%w: el reintento manual solo aplica a error/cancelled (estado %q)", domain.ErrInvalidState, item.State)
	}
	now := s.Now()
	item.State = entity.QueueStatePending
	item.RetryCount = 0
	item.LastError = ""
	item.ScheduledAt = now
	item.ProcessedAt = nil
	item.UpdatedAt = now
	if err := s.queueRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.UpdateReportingStatus(ctx, item.InvoiceID, entity.ReportingStatusPending, ""); err != nil {
		return nil, err
	}
	return item, nil
}

// List lista elementos de cola, opcionalmente filtrados por estado.
func (s *QueueService) List(ctx context.Context, state string, limit int) ([]*entity.QueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queueRepo.List(ctx, state, limit)
}

func (s *QueueService) getItem(ctx context.Context, itemID string) (*entity.QueueItem, error) {
	item, err := s.queueRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: elemento de cola %s", domain.ErrNotFound, itemID)
	}
	return item, nil
}
