// Package aeat implementa la entrega de registros de facturación Veri*FACTU
// al servicio web de la AEAT (RegFactuSistemaFacturacion).
package aeat

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// Identificadores de ambiente AEAT.
const (
	// AppEnvTest ambiente de pruebas (preproducción AEAT).
	AppEnvTest = "test"
	// AppEnvProd ambiente de producción.
	AppEnvProd = "prod"
	// AppEnvDev local: no envía al WS AEAT, simula la respuesta.
	AppEnvDev = "dev"
)

// SubmitResult resultado de la entrega al WS AEAT.
type SubmitResult struct {
	CSV         string // Código Seguro de Verificación devuelto por la AEAT
	Accepted    bool   // true si la AEAT registró el envío como Correcto
	ErrorDetail string // detalle de rechazo o incidencia (puede ser vacío)
}

// Submitter define el puerto de salida para la entrega de registros a la
// AEAT. La implementación concreta usa SOAP; para tests se inyecta un doble.
// La llamada debe respetar el context: es el único punto de bloqueo por red
// del sistema y el llamador la acota con timeout.
type Submitter interface {
	Submit(ctx context.Context, record *entity.FiscalRecord, company *entity.Company) (*SubmitResult, error)
}
