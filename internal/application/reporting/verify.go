package reporting

import (
	"context"

	"github.com/aurestic/verifactu-api/internal/application/dto"
	"github.com/aurestic/verifactu-api/internal/domain/verifactu"
)

// VerifyChain recorre la cadena completa de una empresa y comprueba las dos
// propiedades auditables: la huella de cada registro se reproduce desde su
// cadena canónica almacenada, y cada eslabón referencia la huella del
// anterior. Cualquier alteración, inserción o reordenación rompe al menos una.
func (s *RecordService) VerifyChain(ctx context.Context, companyID string) (*dto.ChainVerificationResponse, error) {
	records, err := s.recordRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	result := &dto.ChainVerificationResponse{
		CompanyID: companyID,
		Records:   len(records),
		Valid:     true,
	}

	previous := ""
	for _, rec := range records {
		if got := verifactu.Fingerprint(rec.CanonicalString); got != rec.Fingerprint {
			result.Breaks = append(result.Breaks, dto.ChainBreakDetail{
				ChainIndex: rec.ChainIndex,
				RecordID:   rec.ID,
				Reason:     "la huella almacenada no se reproduce desde la cadena canónica",
			})
		}
		if rec.PreviousFingerprint != previous {
			result.Breaks = append(result.Breaks, dto.ChainBreakDetail{
				ChainIndex: rec.ChainIndex,
				RecordID:   rec.ID,
				Reason:     "la huella anterior no coincide con el eslabón precedente",
			})
		}
		previous = rec.Fingerprint
	}

	result.Valid = len(result.Breaks) == 0
	return result, nil
}
