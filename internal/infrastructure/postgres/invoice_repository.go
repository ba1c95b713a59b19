package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// InvoiceRepo implementación Postgres del repositorio de facturas.
type InvoiceRepo struct {
	q Querier
}

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

func NewInvoiceRepo(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, company_id, serial, third_party_serial, move_type, state,
			document_type, invoice_date, tax_total, grand_total,
			verifactu_enabled, registered_at, reporting_status, reporting_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.q.Exec(ctx, query,
		invoice.ID,
		invoice.CompanyID,
		invoice.Serial,
		nullIfEmpty(invoice.ThirdPartySerial),
		invoice.MoveType,
		invoice.State,
		nullIfEmpty(invoice.DocumentType),
		invoice.InvoiceDate,
		invoice.TaxTotal,
		invoice.GrandTotal,
		invoice.VerifactuEnabled,
		invoice.RegisteredAt,
		nullIfEmpty(invoice.ReportingStatus),
		nullIfEmpty(invoice.ReportingError),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("factura %s: %w", invoice.Serial, domain.ErrDuplicate)
		}
		return fmt.Errorf("insertar factura: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT id, company_id, serial, COALESCE(third_party_serial, ''), move_type, state,
		       COALESCE(document_type, ''), invoice_date, tax_total, grand_total,
		       verifactu_enabled, registered_at, COALESCE(reporting_status, ''),
		       COALESCE(reporting_error, ''), created_at, updated_at
		FROM invoices WHERE id = $1`

	inv := &entity.Invoice{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.Serial, &inv.ThirdPartySerial, &inv.MoveType, &inv.State,
		&inv.DocumentType, &inv.InvoiceDate, &inv.TaxTotal, &inv.GrandTotal,
		&inv.VerifactuEnabled, &inv.RegisteredAt, &inv.ReportingStatus,
		&inv.ReportingError, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consultar factura: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) UpdateReportingStatus(ctx context.Context, id, status, errorDetail string) error {
	query := `
		UPDATE invoices
		SET reporting_status = $2, reporting_error = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, nullIfEmpty(status), nullIfEmpty(errorDetail))
	if err != nil {
		return fmt.Errorf("actualizar estado de reporte: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
