package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// TxRunner ejecuta operaciones de reporte dentro de una transacción pgx.
type TxRunner struct {
	pool *pgxpool.Pool
}

var _ reporting.ReportingTxRunner = (*TxRunner)(nil)

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunReporting abre una transacción y entrega repos ligados a ella. Commit si
// fn retorna nil, rollback en caso contrario.
func (r *TxRunner) RunReporting(ctx context.Context, fn func(
	recordRepo repository.FiscalRecordRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("iniciar transacción: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewFiscalRecordRepo(tx), NewInvoiceRepo(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("confirmar transacción: %w", err)
	}
	return nil
}
