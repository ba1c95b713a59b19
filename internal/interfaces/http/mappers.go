package http

import (
	"github.com/aurestic/verifactu-api/internal/application/dto"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

func toFiscalRecordResponse(r *entity.FiscalRecord) dto.FiscalRecordResponse {
	return dto.FiscalRecordResponse{
		ID:                  r.ID,
		InvoiceID:           r.InvoiceID,
		CompanyID:           r.CompanyID,
		ChainIndex:          r.ChainIndex,
		IssuerID:            r.IssuerID,
		SerialNumber:        r.SerialNumber,
		ExpeditionDate:      r.ExpeditionDate.Format("02-01-2006"),
		DocumentType:        r.DocumentType,
		AmountTax:           r.AmountTax.Round(2).StringFixed(2),
		AmountTotal:         r.AmountTotal.Round(2).StringFixed(2),
		PreviousFingerprint: r.PreviousFingerprint,
		Fingerprint:         r.Fingerprint,
		Reference:           r.Reference,
		RegisteredAt:        r.RegisteredAt,
	}
}

func toQueueItemResponse(q *entity.QueueItem) dto.QueueItemResponse {
	return dto.QueueItemResponse{
		ID:                q.ID,
		Name:              q.Name,
		InvoiceID:         q.InvoiceID,
		State:             q.State,
		Priority:          q.Priority,
		RetryCount:        q.RetryCount,
		MaxRetries:        q.MaxRetries,
		ScheduledAt:       q.ScheduledAt,
		ProcessedAt:       q.ProcessedAt,
		LastError:         q.LastError,
		AuthorityResponse: q.AuthorityResponse,
	}
}
