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

// FiscalRecordRepo implementación Postgres del repositorio de registros
// fiscales. Tabla de solo inserción: no hay UPDATE ni DELETE.
type FiscalRecordRepo struct {
	q Querier
}

var _ repository.FiscalRecordRepository = (*FiscalRecordRepo)(nil)

func NewFiscalRecordRepo(q Querier) *FiscalRecordRepo {
	return &FiscalRecordRepo{q: q}
}

const fiscalRecordColumns = `
	id, invoice_id, company_id, chain_index, issuer_id, serial_number,
	expedition_date, document_type, amount_tax, amount_total,
	COALESCE(previous_fingerprint, ''), registered_at, canonical_string,
	fingerprint, reference, created_at`

func (r *FiscalRecordRepo) Create(ctx context.Context, record *entity.FiscalRecord) error {
	query := `
		INSERT INTO fiscal_records (
			id, invoice_id, company_id, chain_index, issuer_id, serial_number,
			expedition_date, document_type, amount_tax, amount_total,
			previous_fingerprint, registered_at, canonical_string, fingerprint, reference
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.q.Exec(ctx, query,
		record.ID,
		record.InvoiceID,
		record.CompanyID,
		record.ChainIndex,
		record.IssuerID,
		record.SerialNumber,
		record.ExpeditionDate,
		record.DocumentType,
		record.AmountTax,
		record.AmountTotal,
		nullIfEmpty(record.PreviousFingerprint),
		record.RegisteredAt,
		record.CanonicalString,
		record.Fingerprint,
		record.Reference,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("registro fiscal de la factura %s: %w", record.InvoiceID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insertar registro fiscal: %w", err)
	}
	return nil
}

func (r *FiscalRecordRepo) GetByInvoice(ctx context.Context, invoiceID string) (*entity.FiscalRecord, error) {
	query := `SELECT ` + fiscalRecordColumns + ` FROM fiscal_records WHERE invoice_id = $1`
	return r.getOne(ctx, query, invoiceID)
}

func (r *FiscalRecordRepo) GetLastByCompany(ctx context.Context, companyID string) (*entity.FiscalRecord, error) {
	query := `
		SELECT ` + fiscalRecordColumns + `
		FROM fiscal_records WHERE company_id = $1
		ORDER BY chain_index DESC LIMIT 1`
	return r.getOne(ctx, query, companyID)
}

func (r *FiscalRecordRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.FiscalRecord, error) {
	query := `
		SELECT ` + fiscalRecordColumns + `
		FROM fiscal_records WHERE company_id = $1
		ORDER BY chain_index ASC`

	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listar registros fiscales: %w", err)
	}
	defer rows.Close()

	var records []*entity.FiscalRecord
	for rows.Next() {
		rec, err := scanFiscalRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *FiscalRecordRepo) getOne(ctx context.Context, query, arg string) (*entity.FiscalRecord, error) {
	rec, err := scanFiscalRecord(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanFiscalRecord(row pgx.Row) (*entity.FiscalRecord, error) {
	rec := &entity.FiscalRecord{}
	err := row.Scan(
		&rec.ID, &rec.InvoiceID, &rec.CompanyID, &rec.ChainIndex, &rec.IssuerID, &rec.SerialNumber,
		&rec.ExpeditionDate, &rec.DocumentType, &rec.AmountTax, &rec.AmountTotal,
		&rec.PreviousFingerprint, &rec.RegisteredAt, &rec.CanonicalString,
		&rec.Fingerprint, &rec.Reference, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("leer registro fiscal: %w", err)
	}
	return rec, nil
}
