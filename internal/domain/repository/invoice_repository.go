package repository

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia de facturas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// UpdateReportingStatus actualiza el resumen de reporte Veri*FACTU de la
	// factura (pending/sent/error + detalle del fallo, vacío si no hay).
	UpdateReportingStatus(ctx context.Context, id, status, errorDetail string) error
}
