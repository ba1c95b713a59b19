package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// QueueRepo implementación Postgres de la cola de envío Veri*FACTU.
type QueueRepo struct {
	q Querier
}

var _ repository.QueueRepository = (*QueueRepo)(nil)

func NewQueueRepo(q Querier) *QueueRepo {
	return &QueueRepo{q: q}
}

const queueColumns = `
	id, name, invoice_id, company_id, state, priority, retry_count, max_retries,
	scheduled_at, processed_at, COALESCE(last_error, ''),
	COALESCE(authority_response, ''), created_at, updated_at`

func (r *QueueRepo) Create(ctx context.Context, item *entity.QueueItem) error {
	query := `
		INSERT INTO verifactu_queue (
			id, name, invoice_id, company_id, state, priority,
			retry_count, max_retries, scheduled_at, last_error, authority_response
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.q.Exec(ctx, query,
		item.ID,
		item.Name,
		item.InvoiceID,
		item.CompanyID,
		item.State,
		item.Priority,
		item.RetryCount,
		item.MaxRetries,
		item.ScheduledAt,
		nullIfEmpty(item.LastError),
		nullIfEmpty(item.AuthorityResponse),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("elemento de cola activo para la factura %s: %w", item.InvoiceID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insertar elemento de cola: %w", err)
	}
	return nil
}

func (r *QueueRepo) GetByID(ctx context.Context, id string) (*entity.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM verifactu_queue WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *QueueRepo) GetActiveByInvoice(ctx context.Context, invoiceID string) (*entity.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM verifactu_queue
		WHERE invoice_id = $1 AND state IN ('pending', 'processing')
		ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, invoiceID)
}

func (r *QueueRepo) Update(ctx context.Context, item *entity.QueueItem) error {
	query := `
		UPDATE verifactu_queue
		SET state = $2, priority = $3, retry_count = $4, scheduled_at = $5,
		    processed_at = $6, last_error = $7, authority_response = $8,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		item.ID,
		item.State,
		item.Priority,
		item.RetryCount,
		item.ScheduledAt,
		item.ProcessedAt,
		nullIfEmpty(item.LastError),
		nullIfEmpty(item.AuthorityResponse),
	)
	if err != nil {
		return fmt.Errorf("actualizar elemento de cola: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("elemento de cola %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *QueueRepo) DequeueDue(ctx context.Context, now time.Time, limit int) ([]*entity.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM verifactu_queue
		WHERE state = 'pending' AND scheduled_at <= $1
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("seleccionar elementos pendientes: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *QueueRepo) RecoverStuck(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
		UPDATE verifactu_queue
		SET state = 'pending', updated_at = NOW()
		WHERE state = 'processing' AND updated_at < $1`

	tag, err := r.q.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("recuperar elementos atascados: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *QueueRepo) List(ctx context.Context, state string, limit int) ([]*entity.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM verifactu_queue
		WHERE ($1 = '' OR state = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, state, limit)
	if err != nil {
		return nil, fmt.Errorf("listar elementos de cola: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *QueueRepo) getOne(ctx context.Context, query, arg string) (*entity.QueueItem, error) {
	item, err := scanQueueItem(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*entity.QueueItem, error) {
	var items []*entity.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanQueueItem(row pgx.Row) (*entity.QueueItem, error) {
	item := &entity.QueueItem{}
	err := row.Scan(
		&item.ID, &item.Name, &item.InvoiceID, &item.CompanyID, &item.State,
		&item.Priority, &item.RetryCount, &item.MaxRetries,
		&item.ScheduledAt, &item.ProcessedAt, &item.LastError,
		&item.AuthorityResponse, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("leer elemento de cola: %w", err)
	}
	return item, nil
}
