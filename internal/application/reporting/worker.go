package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
	"github.com/aurestic/verifactu-api/internal/infrastructure/aeat"
	"github.com/aurestic/verifactu-api/pkg/logger"
)

// WorkerConfig parámetros del worker de cola.
type WorkerConfig struct {
	BatchLimit    int           // elementos por lote (10 por defecto)
	BaseDelay     time.Duration // unidad base del backoff lineal (5 min por defecto)
	SubmitTimeout time.Duration // timeout por envío a la AEAT (30 s por defecto)
	StuckGrace    time.Duration // gracia antes de recuperar processing atascados (10 min por defecto)
}

func (c *WorkerConfig) applyDefaults() {
	if c.BatchLimit <= 0 {
		c.BatchLimit = 10
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 5 * time.Minute
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.StuckGrace <= 0 {
		c.StuckGrace = 10 * time.Minute
	}
}

// Worker procesa la cola de envío: toma los elementos vencidos por prioridad,
// invoca al Submitter y aplica la política de reintentos con backoff lineal.
// El fallo de un elemento nunca aborta el resto del lote.
type Worker struct {
	queueRepo   repository.QueueRepository
	invoiceRepo repository.InvoiceRepository
	recordRepo  repository.FiscalRecordRepository
	companyRepo repository.CompanyRepository
	submitter   aeat.Submitter
	log         *logger.Logger
	cfg         WorkerConfig

	// Now inyectable en tests; por defecto time.Now.
	Now func() time.Time

	// batchMu serializa los lotes: el planificador y el disparo manual
	// comparten el mismo worker y dos lotes solapados seleccionarían los
	// mismos elementos pendientes.
	batchMu sync.Mutex

	// invoiceLocks evita que dos elementos de la misma factura se procesen
	// en paralelo si algún día el lote se paraleliza.
	invoiceLocks sync.Map // invoiceID -> *sync.Mutex
}

// NewWorker construye el worker.
func NewWorker(
	queueRepo repository.QueueRepository,
	invoiceRepo repository.InvoiceRepository,
	recordRepo repository.FiscalRecordRepository,
	companyRepo repository.CompanyRepository,
	submitter aeat.Submitter,
	log *logger.Logger,
	cfg WorkerConfig,
) *Worker {
	cfg.applyDefaults()
	return &Worker{
		queueRepo:   queueRepo,
		invoiceRepo: invoiceRepo,
		recordRepo:  recordRepo,
		companyRepo: companyRepo,
		submitter:   submitter,
		log:         log,
		cfg:         cfg,
		Now:         time.Now,
	}
}

// ProcessPendingBatch procesa un lote de elementos vencidos y devuelve
// cuántos procesó. Antes del lote recupera a pending los elementos que
// quedaron atascados en processing por una caída del proceso: un elemento
// nunca se pierde en silencio.
func (w *Worker) ProcessPendingBatch(ctx context.Context) (int, error) {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	now := w.Now()

	recovered, err := w.queueRepo.RecoverStuck(ctx, now.Add(-w.cfg.StuckGrace))
	if err != nil {
		return 0, fmt.Errorf("recuperar elementos atascados: %w", err)
	}
	if recovered > 0 {
		w.log.Warn().Int("recuperados", recovered).Msg("elementos processing devueltos a pending")
	}

	items, err := w.queueRepo.DequeueDue(ctx, now, w.cfg.BatchLimit)
	if err != nil {
		return 0, fmt.Errorf("seleccionar elementos vencidos: %w", err)
	}

	for _, item := range items {
		// Dominio de fallo aislado: el error de un elemento se registra en
		// el propio elemento, nunca se propaga fuera del lote.
		w.processItem(ctx, item)
	}
	return len(items), nil
}

// processItem procesa un elemento: pending → processing → {sent | pending | error}.
// Un pánico durante el envío se trata como fallo del elemento.
func (w *Worker) processItem(ctx context.Context, dequeued *entity.QueueItem) {
	lock := w.lockFor(dequeued.InvoiceID)
	lock.Lock()
	defer lock.Unlock()

	// Relee el elemento bajo el candado: la copia seleccionada puede estar
	// obsoleta si otro lote lo procesó entre la selección y este punto.
	item, err := w.queueRepo.GetByID(ctx, dequeued.ID)
	if err != nil {
		w.log.Error().Err(err).Str("item", dequeued.ID).Msg("no se pudo releer el elemento de cola")
		return
	}
	if item == nil || item.State != entity.QueueStatePending {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Str("item", item.ID).Interface("panic", r).Msg("pánico procesando elemento de cola")
			w.handleFailure(ctx, item, fmt.Sprintf("pánico durante el envío: %v", r))
		}
	}()

	item.State = entity.QueueStateProcessing
	item.UpdatedAt = w.Now()
	if err := w.queueRepo.Update(ctx, item); err != nil {
		w.log.Error().Err(err).Str("item", item.ID).Msg("no se pudo marcar processing")
		return
	}

	record, err := w.recordRepo.GetByInvoice(ctx, item.InvoiceID)
	if err != nil || record == nil {
		w.handleFailure(ctx, item, fmt.Sprintf("registro fiscal no disponible: %v", err))
		return
	}
	company, err := w.companyRepo.GetByID(ctx, item.CompanyID)
	if err != nil || company == nil {
		w.handleFailure(ctx, item, fmt.Sprintf("empresa no disponible: %v", err))
		return
	}

	// Único punto de bloqueo por red: acotado siempre por timeout.
	submitCtx, cancel := context.WithTimeout(ctx, w.cfg.SubmitTimeout)
	result, err := w.submitter.Submit(submitCtx, record, company)
	cancel()

	if err != nil {
		w.handleFailure(ctx, item, err.Error())
		return
	}
	if !result.Accepted {
		w.handleFailure(ctx, item, result.ErrorDetail)
		return
	}

	now := w.Now()
	item.State = entity.QueueStateSent
	item.ProcessedAt = &now
	item.AuthorityResponse = result.CSV
	item.LastError = ""
	item.UpdatedAt = now
	if err := w.queueRepo.Update(ctx, item); err != nil {
		w.log.Error().Err(err).Str("item", item.ID).Msg("no se pudo persistir sent")
		return
	}
	// Marca síncrona de la factura: éxito limpia cualquier fallo previo.
	if err := w.invoiceRepo.UpdateReportingStatus(ctx, item.InvoiceID, entity.ReportingStatusSent, ""); err != nil {
		w.log.Error().Err(err).Str("factura", item.InvoiceID).Msg("no se pudo actualizar estado de reporte")
	}
	w.log.Info().Str("item", item.ID).Str("factura", item.InvoiceID).Str("csv", result.CSV).Msg("registro enviado a la AEAT")
}

// handleFailure aplica la política de reintentos: incrementa el contador y
// reprograma con backoff lineal, o pasa a error terminal si se agotó el
// presupuesto, marcando la factura como fallida para el operador.
func (w *Worker) handleFailure(ctx context.Context, item *entity.QueueItem, errMsg string) {
	now := w.Now()
	item.RetryCount++
	item.LastError = errMsg
	item.UpdatedAt = now

	if item.RetryCount >= item.MaxRetries {
		item.State = entity.QueueStateError
		item.ProcessedAt = &now
		if err := w.queueRepo.Update(ctx, item); err != nil {
			w.log.Error().Err(err).Str("item", item.ID).Msg("no se pudo persistir error terminal")
			return
		}
		if err := w.invoiceRepo.UpdateReportingStatus(ctx, item.InvoiceID, entity.ReportingStatusError, errMsg); err != nil {
			w.log.Error().Err(err).Str("factura", item.InvoiceID).Msg("no se pudo marcar factura fallida")
		}
		w.log.Error().Str("item", item.ID).Str("factura", item.InvoiceID).Str("error", errMsg).Msg("reintentos agotados, elemento en error terminal")
		return
	}

	item.State = entity.QueueStatePending
	item.ScheduledAt = now.Add(w.backoffDelay(item.RetryCount))
	if err := w.queueRepo.Update(ctx, item); err != nil {
		w.log.Error().Err(err).Str("item", item.ID).Msg("no se pudo reprogramar reintento")
		return
	}
	w.log.Warn().Str("item", item.ID).Int("intento", item.RetryCount).Time("reprogramado", item.ScheduledAt).Str("error", errMsg).Msg("envío fallido, reintento programado")
}

// backoffDelay retardo lineal: base × número de intento, nunca por debajo de
// la base. Crece de forma monótona con cada fallo.
func (w *Worker) backoffDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return w.cfg.BaseDelay * time.Duration(retryCount)
}

func (w *Worker) lockFor(invoiceID string) *sync.Mutex {
	v, _ := w.invoiceLocks.LoadOrStore(invoiceID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
