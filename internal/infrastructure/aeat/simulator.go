package aeat

import (
	"context"
	"fmt"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// SimulatedSubmitter implementación de desarrollo: no llama al WS AEAT,
// acepta todo envío y devuelve un CSV sintético. Es el equivalente local del
// modo "dev" del sistema; nunca debe usarse en producción.
type SimulatedSubmitter struct{}

// NewSimulatedSubmitter crea el doble local.
func NewSimulatedSubmitter() *SimulatedSubmitter {
	return &SimulatedSubmitter{}
}

// Submit simula un registro Correcto inmediato.
func (s *SimulatedSubmitter) Submit(ctx context.Context, record *entity.FiscalRecord, company *entity.Company) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	short := record.Fingerprint
	if len(short) > 12 {
		short = short[:12]
	}
	return &SubmitResult{
		CSV:      fmt.Sprintf("SIMULADO-%s", short),
		Accepted: true,
	}, nil
}
