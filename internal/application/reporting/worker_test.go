package reporting_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/infrastructure/aeat"
	"github.com/aurestic/verifactu-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Submitters de prueba
// ──────────────────────────────────────────────────────────────────────────────

// scriptedSubmitter falla las primeras failures llamadas y luego acepta.
type scriptedSubmitter struct {
	failures int
	calls    int
}

func (s *scriptedSubmitter) Submit(_ context.Context, record *entity.FiscalRecord, _ *entity.Company) (*aeat.SubmitResult, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("timeout de red simulado")
	}
	return &aeat.SubmitResult{CSV: "CSV-" + record.Fingerprint[:8], Accepted: true}, nil
}

// panicSubmitter entra en pánico para una factura concreta y acepta el resto.
type panicSubmitter struct {
	panicInvoiceID string
}

func (s *panicSubmitter) Submit(_ context.Context, record *entity.FiscalRecord, _ *entity.Company) (*aeat.SubmitResult, error) {
	if record.InvoiceID == s.panicInvoiceID {
		panic("fallo catastrófico del transmisor")
	}
	return &aeat.SubmitResult{CSV: "CSV-OK", Accepted: true}, nil
}

// rejectedSubmitter responde sin error de transporte pero con rechazo AEAT.
type rejectedSubmitter struct{}

func (rejectedSubmitter) Submit(context.Context, *entity.FiscalRecord, *entity.Company) (*aeat.SubmitResult, error) {
	return &aeat.SubmitResult{Accepted: false, ErrorDetail: "4102: NIF del emisor no identificado"}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type workerFixture struct {
	invoices  *memInvoiceRepo
	companies *memCompanyRepo
	records   *memRecordRepo
	queue     *memQueueRepo
	queueSvc  *reporting.QueueService
	now       time.Time
}

// buildWorkerFixture deja n facturas finalizadas y encoladas.
func buildWorkerFixture(t *testing.T, n int) *workerFixture {
	t.Helper()
	f := &workerFixture{
		invoices:  newMemInvoiceRepo(),
		companies: newMemCompanyRepo(),
		records:   newMemRecordRepo(),
		queue:     newMemQueueRepo(),
		now:       time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()
	require.NoError(t, f.companies.Create(ctx, seedCompany()))

	recordSvc := newRecordService(f.invoices, f.companies, f.records)
	f.queueSvc = reporting.NewQueueService(f.queue, f.invoices, f.records, 0)
	f.queueSvc.Now = func() time.Time { return f.now }

	for i := 0; i < n; i++ {
		id := string(rune('a'+i)) + "-inv"
		serial := "INV/2024/00" + string(rune('1'+i))
		require.NoError(t, f.invoices.Create(ctx, seedInvoice(id, serial)))
		_, err := recordSvc.Finalize(ctx, id)
		require.NoError(t, err)
		_, err = f.queueSvc.Enqueue(ctx, id, entity.PriorityAutoPost)
		require.NoError(t, err)
	}
	return f
}

func (f *workerFixture) newWorker(submitter aeat.Submitter, cfg reporting.WorkerConfig) *reporting.Worker {
	w := reporting.NewWorker(f.queue, f.invoices, f.records, f.companies, submitter, logger.Nop(), cfg)
	w.Now = func() time.Time { return f.now }
	return w
}

func (f *workerFixture) activeItem(t *testing.T, invoiceID string) *entity.QueueItem {
	t.Helper()
	item, err := f.queue.GetActiveByInvoice(context.Background(), invoiceID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestWorker_EnvioCorrecto_MarcaSent(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	w := f.newWorker(&scriptedSubmitter{failures: 0}, reporting.WorkerConfig{})
	ctx := context.Background()

	processed, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	item, err := f.queue.GetByID(ctx, f.mustOnlyItemID(t))
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateSent, item.State)
	require.NotNil(t, item.ProcessedAt)
	assert.Contains(t, item.AuthorityResponse, "CSV-")
	assert.Empty(t, item.LastError)

	inv, err := f.invoices.GetByID(ctx, "a-inv")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportingStatusSent, inv.ReportingStatus)
	assert.Empty(t, inv.ReportingError)
}

func TestWorker_FalloTransitorio_ReprogramaConBackoffLineal(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	baseDelay := 5 * time.Minute
	w := f.newWorker(&scriptedSubmitter{failures: 99}, reporting.WorkerConfig{BaseDelay: baseDelay})
	ctx := context.Background()

	// Primer fallo: retry_count 1, reprogramado a base × 1.
	_, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	item := f.activeItem(t, "a-inv")
	assert.Equal(t, entity.QueueStatePending, item.State)
	assert.Equal(t, 1, item.RetryCount)
	assert.True(t, item.ScheduledAt.Equal(f.now.Add(baseDelay)),
		"el primer reintento espera la base del backoff")
	assert.Contains(t, item.LastError, "timeout de red")

	// Segundo fallo (avanzando el reloj hasta vencer): base × 2.
	f.now = item.ScheduledAt
	_, err = w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	item = f.activeItem(t, "a-inv")
	assert.Equal(t, 2, item.RetryCount)
	assert.True(t, item.ScheduledAt.Equal(f.now.Add(2*baseDelay)),
		"el backoff crece linealmente con el número de intento")
}

func TestWorker_ReintentosAgotados_ErrorTerminal(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	w := f.newWorker(&scriptedSubmitter{failures: 99}, reporting.WorkerConfig{BaseDelay: time.Minute})
	ctx := context.Background()

	for i := 0; i < entity.DefaultMaxRetries; i++ {
		_, err := w.ProcessPendingBatch(ctx)
		require.NoError(t, err)
		// Avanzar el reloj por encima de cualquier backoff programado.
		f.now = f.now.Add(time.Hour)
	}

	item, err := f.queue.GetByID(ctx, f.mustOnlyItemID(t))
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateError, item.State, "agotado el presupuesto el elemento es terminal")
	assert.Equal(t, entity.DefaultMaxRetries, item.RetryCount)
	require.NotNil(t, item.ProcessedAt)

	inv, err := f.invoices.GetByID(ctx, "a-inv")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportingStatusError, inv.ReportingStatus)
	assert.Contains(t, inv.ReportingError, "timeout de red",
		"el detalle del fallo queda visible en la factura")

	// Un lote posterior ya no lo toca.
	processed, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestWorker_ReintentoLuegoExito_TerminaSent(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	w := f.newWorker(&scriptedSubmitter{failures: 2}, reporting.WorkerConfig{BaseDelay: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := w.ProcessPendingBatch(ctx)
		require.NoError(t, err)
		f.now = f.now.Add(time.Hour)
	}

	item, err := f.queue.GetByID(ctx, f.mustOnlyItemID(t))
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateSent, item.State,
		"dos fallos dentro del presupuesto no impiden el envío final")
	assert.Equal(t, 2, item.RetryCount)

	inv, err := f.invoices.GetByID(ctx, "a-inv")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportingStatusSent, inv.ReportingStatus)
	assert.Empty(t, inv.ReportingError, "el éxito limpia el error previo")
}

func TestWorker_PanicoAislado_NoAbortaElLote(t *testing.T) {
	f := buildWorkerFixture(t, 3)
	w := f.newWorker(&panicSubmitter{panicInvoiceID: "b-inv"}, reporting.WorkerConfig{})
	ctx := context.Background()

	processed, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err, "el pánico de un elemento no sale del lote")
	assert.Equal(t, 3, processed)

	// Los otros dos terminan sent.
	for _, id := range []string{"a-inv", "c-inv"} {
		inv, err := f.invoices.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.ReportingStatusSent, inv.ReportingStatus, id)
	}

	// El elemento del pánico queda reprogramado con el fallo registrado.
	item := f.activeItem(t, "b-inv")
	assert.Equal(t, entity.QueueStatePending, item.State)
	assert.Equal(t, 1, item.RetryCount)
	assert.Contains(t, item.LastError, "pánico durante el envío")
}

func TestWorker_RechazoAEAT_CuentaComoFallo(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	w := f.newWorker(rejectedSubmitter{}, reporting.WorkerConfig{BaseDelay: time.Minute})
	ctx := context.Background()

	_, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	item := f.activeItem(t, "a-inv")
	assert.Equal(t, entity.QueueStatePending, item.State)
	assert.Equal(t, 1, item.RetryCount)
	assert.Contains(t, item.LastError, "4102", "el detalle del rechazo AEAT queda registrado")
}

func TestWorker_RespetaPrioridadYLimiteDeLote(t *testing.T) {
	f := buildWorkerFixture(t, 3)
	ctx := context.Background()

	// El segundo elemento pasa a prioridad manual (menor): debe procesarse
	// después de los automáticos.
	item := f.activeItem(t, "b-inv")
	item.Priority = entity.PriorityManualSend
	require.NoError(t, f.queue.Update(ctx, item))

	var order []string
	recorder := submitterFunc(func(_ context.Context, record *entity.FiscalRecord, _ *entity.Company) (*aeat.SubmitResult, error) {
		order = append(order, record.InvoiceID)
		return &aeat.SubmitResult{CSV: "CSV-OK", Accepted: true}, nil
	})

	w := f.newWorker(recorder, reporting.WorkerConfig{BatchLimit: 2})
	processed, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, processed, "el lote respeta el límite configurado")
	assert.NotContains(t, order, "b-inv",
		"el elemento de menor prioridad espera al siguiente lote")
}

func TestWorker_RecuperaProcessingAtascado(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	ctx := context.Background()

	// Elemento abandonado en processing hace más de la gracia (caída del worker).
	item := f.activeItem(t, "a-inv")
	item.State = entity.QueueStateProcessing
	item.UpdatedAt = f.now.Add(-time.Hour)
	require.NoError(t, f.queue.Update(ctx, item))

	w := f.newWorker(&scriptedSubmitter{}, reporting.WorkerConfig{StuckGrace: 10 * time.Minute})
	processed, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, processed, "el elemento recuperado entra en el mismo lote")
	stored, err := f.queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateSent, stored.State)
}

func TestWorker_LotesConcurrentes_NoDuplicanEnvio(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	ctx := context.Background()

	var mu sync.Mutex
	var submits int
	slow := submitterFunc(func(_ context.Context, _ *entity.FiscalRecord, _ *entity.Company) (*aeat.SubmitResult, error) {
		mu.Lock()
		submits++
		mu.Unlock()
		// Mantiene el primer lote en vuelo mientras arranca el segundo.
		time.Sleep(20 * time.Millisecond)
		return &aeat.SubmitResult{CSV: "CSV-OK", Accepted: true}, nil
	})
	w := f.newWorker(slow, reporting.WorkerConfig{})

	// Planificador y disparo manual comparten worker: dos lotes a la vez.
	var wg sync.WaitGroup
	var total int64
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := w.ProcessPendingBatch(ctx)
			assert.NoError(t, err)
			atomic.AddInt64(&total, int64(n))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, submits, "dos lotes simultáneos no reenvían el mismo elemento")
	assert.EqualValues(t, 1, total, "solo un lote encuentra el elemento pendiente")

	item, err := f.queue.GetByID(ctx, f.mustOnlyItemID(t))
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateSent, item.State)
}

// interceptedQueueRepo permite simular a otro proceso actuando sobre la cola
// entre la selección del lote y el procesamiento de sus elementos.
type interceptedQueueRepo struct {
	*memQueueRepo
	afterDequeue func(items []*entity.QueueItem)
}

func (r *interceptedQueueRepo) DequeueDue(ctx context.Context, now time.Time, limit int) ([]*entity.QueueItem, error) {
	items, err := r.memQueueRepo.DequeueDue(ctx, now, limit)
	if err == nil && r.afterDequeue != nil {
		r.afterDequeue(items)
	}
	return items, err
}

func TestWorker_ElementoCanceladoTrasSeleccion_NoSeEnvia(t *testing.T) {
	f := buildWorkerFixture(t, 1)
	ctx := context.Background()

	// Un operador cancela el elemento justo después de que el lote lo
	// seleccionara: la copia seleccionada queda obsoleta.
	queue := &interceptedQueueRepo{memQueueRepo: f.queue}
	queue.afterDequeue = func(items []*entity.QueueItem) {
		for _, it := range items {
			cancelled := *it
			cancelled.State = entity.QueueStateCancelled
			require.NoError(t, f.queue.Update(ctx, &cancelled))
		}
	}

	var submits int
	counter := submitterFunc(func(_ context.Context, _ *entity.FiscalRecord, _ *entity.Company) (*aeat.SubmitResult, error) {
		submits++
		return &aeat.SubmitResult{CSV: "CSV-OK", Accepted: true}, nil
	})

	w := reporting.NewWorker(queue, f.invoices, f.records, f.companies, counter, logger.Nop(), reporting.WorkerConfig{})
	w.Now = func() time.Time { return f.now }

	_, err := w.ProcessPendingBatch(ctx)
	require.NoError(t, err)

	assert.Zero(t, submits, "la copia obsoleta se relee antes de enviar")
	item, err := f.queue.GetByID(ctx, f.mustOnlyItemID(t))
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStateCancelled, item.State)
}

// submitterFunc adapta una función a aeat.Submitter.
type submitterFunc func(ctx context.Context, record *entity.FiscalRecord, company *entity.Company) (*aeat.SubmitResult, error)

func (f submitterFunc) Submit(ctx context.Context, record *entity.FiscalRecord, company *entity.Company) (*aeat.SubmitResult, error) {
	return f(ctx, record, company)
}

// mustOnlyItemID devuelve el ID del único elemento de la cola.
func (f *workerFixture) mustOnlyItemID(t *testing.T) string {
	t.Helper()
	items, err := f.queue.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].ID
}
