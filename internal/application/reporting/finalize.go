package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
	"github.com/aurestic/verifactu-api/internal/domain/verifactu"
)

// RecordService finaliza facturas: construye el registro fiscal inmutable
// (cadena canónica → huella encadenada → referencia) y lo persiste de forma
// atómica. Finalizar una factura ya finalizada es idempotente: devuelve el
// registro existente sin recalcular ni reenviar.
type RecordService struct {
	invoiceRepo   repository.InvoiceRepository
	companyRepo   repository.CompanyRepository
	recordRepo    repository.FiscalRecordRepository
	txRunner      ReportingTxRunner
	canonicalizer *verifactu.CanonicalizerService

	// Now inyectable en tests; por defecto time.Now.
	Now func() time.Time

	// companyLocks serializa la finalización por empresa: dos facturas de la
	// misma empresa no pueden leer el eslabón anterior de forma intercalada
	// o la cadena se bifurcaría.
	companyLocks sync.Map // companyID -> *sync.Mutex
}

// NewRecordService construye el servicio de finalización.
func NewRecordService(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	recordRepo repository.FiscalRecordRepository,
	txRunner ReportingTxRunner,
) *RecordService {
	return &RecordService{
		invoiceRepo:   invoiceRepo,
		companyRepo:   companyRepo,
		recordRepo:    recordRepo,
		txRunner:      txRunner,
		canonicalizer: verifactu.NewCanonicalizerService(),
		Now:           time.Now,
	}
}

// Finalize genera y persiste el registro fiscal de la factura.
// Devuelve domain.ErrIneligible si la factura no está en ámbito Veri*FACTU:
// el llamador no debe encolarla jamás.
func (s *RecordService) Finalize(ctx context.Context, invoiceID string) (*entity.FiscalRecord, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}

	// Idempotencia: si ya existe registro, se devuelve sin tocar nada.
	if existing, err := s.recordRepo.GetByInvoice(ctx, invoiceID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	company, err := s.companyRepo.GetByID(ctx, invoice.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, invoice.CompanyID)
	}

	fields, err := verifactu.FieldsFor(invoice, company)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(company.ID)
	lock.Lock()
	defer lock.Unlock()

	var record *entity.FiscalRecord
	err = s.txRunner.RunReporting(ctx, func(
		recordRepo repository.FiscalRecordRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		// Lectura del eslabón anterior dentro de la tx y bajo el lock de
		// empresa: el encadenamiento nunca se recalcula después.
		last, err := recordRepo.GetLastByCompany(ctx, company.ID)
		if err != nil {
			return err
		}
		previous := ""
		chainIndex := int64(1)
		if last != nil {
			previous = last.Fingerprint
			chainIndex = last.ChainIndex + 1
		}

		canonical := s.canonicalizer.Build(fields, previous)
		fingerprint := verifactu.Fingerprint(canonical)

		record = &entity.FiscalRecord{
			ID:                  uuid.New().String(),
			InvoiceID:           invoice.ID,
			CompanyID:           company.ID,
			ChainIndex:          chainIndex,
			IssuerID:            fields.IssuerID(),
			SerialNumber:        fields.SerialNumber(),
			ExpeditionDate:      fields.ExpeditionDate(),
			DocumentType:        fields.DocumentType(),
			AmountTax:           fields.AmountTax(),
			AmountTotal:         fields.AmountTotal(),
			PreviousFingerprint: previous,
			RegisteredAt:        fields.RegistrationTime().UTC(),
			CanonicalString:     canonical,
			Fingerprint:         fingerprint,
			Reference:           verifactu.Reference(fields.ExpeditionDate(), fields.SerialNumber(), fingerprint),
			CreatedAt:           s.Now(),
		}
		if err := recordRepo.Create(ctx, record); err != nil {
			return err
		}
		return invoiceRepo.UpdateReportingStatus(ctx, invoice.ID, entity.ReportingStatusPending, "")
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord devuelve el registro fiscal de una factura.
func (s *RecordService) GetRecord(ctx context.Context, invoiceID string) (*entity.FiscalRecord, error) {
	record, err := s.recordRepo.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene registro fiscal", domain.ErrNotFound, invoiceID)
	}
	return record, nil
}

func (s *RecordService) lockFor(companyID string) *sync.Mutex {
	v, _ := s.companyLocks.LoadOrStore(companyID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
