package repository

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// FiscalRecordRepository puerto de persistencia de registros fiscales.
// Los registros son inmutables: solo altas y lecturas, nunca updates.
type FiscalRecordRepository interface {
	Create(ctx context.Context, record *entity.FiscalRecord) error
	GetByInvoice(ctx context.Context, invoiceID string) (*entity.FiscalRecord, error)
	// GetLastByCompany devuelve el último eslabón de la cadena de la empresa
	// (mayor chain_index) o nil si la cadena está vacía.
	GetLastByCompany(ctx context.Context, companyID string) (*entity.FiscalRecord, error)
	// ListByCompany devuelve la cadena completa en orden de encadenado
	// (chain_index ascendente), para verificación de auditoría.
	ListByCompany(ctx context.Context, companyID string) ([]*entity.FiscalRecord, error)
}
