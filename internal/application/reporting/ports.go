// Package reporting orquesta el ciclo Veri*FACTU: finalización del registro
// fiscal encadenado, cola persistente de envío y worker con reintentos.
package reporting

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// ReportingTxRunner ejecuta una función dentro de una transacción que incluye
// los repos de registros fiscales y facturas (alta atómica del registro junto
// con la transición de la factura).
type ReportingTxRunner interface {
	RunReporting(ctx context.Context, fn func(
		recordRepo repository.FiscalRecordRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}
