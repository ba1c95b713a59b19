package reporting_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios en memoria para los tests de aplicación
// ──────────────────────────────────────────────────────────────────────────────

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: map[string]*entity.Invoice{}}
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) UpdateReportingStatus(_ context.Context, id, status, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("factura %s no existe", id)
	}
	inv.ReportingStatus = status
	inv.ReportingError = errorDetail
	return nil
}

type memCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*entity.Company
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{companies: map[string]*entity.Company{}}
}

func (r *memCompanyRepo) Create(_ context.Context, c *entity.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.companies[c.ID] = &cp
	return nil
}

func (r *memCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memCompanyRepo) List(_ context.Context) ([]*entity.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Company
	for _, c := range r.companies {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type memRecordRepo struct {
	mu      sync.Mutex
	records []*entity.FiscalRecord
}

func newMemRecordRepo() *memRecordRepo { return &memRecordRepo{} }

func (r *memRecordRepo) Create(_ context.Context, rec *entity.FiscalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *memRecordRepo) GetByInvoice(_ context.Context, invoiceID string) (*entity.FiscalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.InvoiceID == invoiceID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRecordRepo) GetLastByCompany(_ context.Context, companyID string) (*entity.FiscalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *entity.FiscalRecord
	for _, rec := range r.records {
		if rec.CompanyID == companyID && (last == nil || rec.ChainIndex > last.ChainIndex) {
			last = rec
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *memRecordRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.FiscalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FiscalRecord
	for _, rec := range r.records {
		if rec.CompanyID == companyID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainIndex < out[j].ChainIndex })
	return out, nil
}

type memQueueRepo struct {
	mu    sync.Mutex
	items map[string]*entity.QueueItem
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{items: map[string]*entity.QueueItem{}}
}

func (r *memQueueRepo) Create(_ context.Context, item *entity.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Índice único parcial de la cola: una factura no admite dos elementos
	// activos a la vez.
	if item.IsActive() {
		for _, other := range r.items {
			if other.InvoiceID == item.InvoiceID && other.IsActive() {
				return fmt.Errorf("%w: ya existe un elemento activo para la factura %s", domain.ErrDuplicate, item.InvoiceID)
			}
		}
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memQueueRepo) GetByID(_ context.Context, id string) (*entity.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (r *memQueueRepo) GetActiveByInvoice(_ context.Context, invoiceID string) (*entity.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.InvoiceID == invoiceID && item.IsActive() {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memQueueRepo) Update(_ context.Context, item *entity.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("elemento %s no existe", item.ID)
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memQueueRepo) DequeueDue(_ context.Context, now time.Time, limit int) ([]*entity.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*entity.QueueItem
	for _, item := range r.items {
		if item.State == entity.QueueStatePending && !item.ScheduledAt.After(now) {
			cp := *item
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memQueueRepo) RecoverStuck(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.State == entity.QueueStateProcessing && item.UpdatedAt.Before(olderThan) {
			item.State = entity.QueueStatePending
			n++
		}
	}
	return n, nil
}

func (r *memQueueRepo) List(_ context.Context, state string, limit int) ([]*entity.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.QueueItem
	for _, item := range r.items {
		if state != "" && item.State != state {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memTxRunner ejecuta la función directamente contra los repos en memoria:
// en los tests la atomicidad no se ejercita, solo la lógica.
type memTxRunner struct {
	recordRepo  repository.FiscalRecordRepository
	invoiceRepo repository.InvoiceRepository
}

func (r *memTxRunner) RunReporting(_ context.Context, fn func(
	recordRepo repository.FiscalRecordRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	return fn(r.recordRepo, r.invoiceRepo)
}

var (
	_ repository.InvoiceRepository      = (*memInvoiceRepo)(nil)
	_ repository.CompanyRepository      = (*memCompanyRepo)(nil)
	_ repository.FiscalRecordRepository = (*memRecordRepo)(nil)
	_ repository.QueueRepository        = (*memQueueRepo)(nil)
	_ reporting.ReportingTxRunner       = (*memTxRunner)(nil)
)

// ──────────────────────────────────────────────────────────────────────────────
// Datos base
// ──────────────────────────────────────────────────────────────────────────────

func seedCompany() *entity.Company {
	return &entity.Company{
		ID:               "company-1",
		Name:             "Aurestic SL",
		NIF:              "B12345678",
		VerifactuEnabled: true,
		AEATEnvironment:  "2",
		Status:           "active",
	}
}

func seedInvoice(id, serial string) *entity.Invoice {
	return &entity.Invoice{
		ID:               id,
		CompanyID:        "company-1",
		Serial:           serial,
		MoveType:         entity.MoveTypeOutInvoice,
		State:            entity.InvoiceStatePosted,
		InvoiceDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TaxTotal:         decimal.RequireFromString("21.00"),
		GrandTotal:       decimal.RequireFromString("121.00"),
		VerifactuEnabled: true,
		RegisteredAt:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func newRecordService(invoices *memInvoiceRepo, companies *memCompanyRepo, records *memRecordRepo) *reporting.RecordService {
	return reporting.NewRecordService(invoices, companies, records,
		&memTxRunner{recordRepo: records, invoiceRepo: invoices})
}
