package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aurestic/verifactu-api/internal/application/dto"
	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// InvoiceHandler expone el ciclo fiscal de la factura: finalización del
// registro, reenvío manual y consulta de estado.
type InvoiceHandler struct {
	records     *reporting.RecordService
	queue       *reporting.QueueService
	invoiceRepo repository.InvoiceRepository
}

func NewInvoiceHandler(records *reporting.RecordService, queue *reporting.QueueService, invoiceRepo repository.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{records: records, queue: queue, invoiceRepo: invoiceRepo}
}

// Finalize godoc
// @Summary      Finalizar el registro fiscal de una factura y encolar su envío
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      201  {object}  dto.FiscalRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/finalize [post]
func (h *InvoiceHandler) Finalize(c *fiber.Ctx) error {
	invoiceID := c.Params("id")

	record, err := h.records.Finalize(c.UserContext(), invoiceID)
	if err != nil {
		return h.recordError(c, err)
	}

	// El encolado automático no invalida el registro ya creado: si falla se
	// reporta, pero el registro queda persistido y el reenvío manual sigue
	// disponible.
	if _, err := h.queue.Enqueue(c.UserContext(), invoiceID, entity.PriorityAutoPost); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "ENQUEUE_FAILED", Message: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(toFiscalRecordResponse(record))
}

// Send godoc
// @Summary      Reenviar manualmente una factura a la AEAT
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.QueueItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	invoiceID := c.Params("id")

	item, err := h.queue.Enqueue(c.UserContext(), invoiceID, entity.PriorityManualSend)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "la factura no existe"})
		}
		if errors.Is(err, domain.ErrInvalidState) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toQueueItemResponse(item))
}

// GetRecord godoc
// @Summary      Consultar el registro fiscal de una factura
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.FiscalRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/record [get]
func (h *InvoiceHandler) GetRecord(c *fiber.Ctx) error {
	record, err := h.records.GetRecord(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.recordError(c, err)
	}
	return c.JSON(toFiscalRecordResponse(record))
}

// GetStatus godoc
// @Summary      Consultar el estado de reporte Veri*FACTU de una factura
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.ReportingStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/status [get]
func (h *InvoiceHandler) GetStatus(c *fiber.Ctx) error {
	invoiceID := c.Params("id")

	invoice, err := h.invoiceRepo.GetByID(c.UserContext(), invoiceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if invoice == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "la factura no existe"})
	}

	out := dto.ReportingStatusResponse{
		InvoiceID:       invoice.ID,
		ReportingStatus: invoice.ReportingStatus,
		ReportingError:  invoice.ReportingError,
	}
	if record, err := h.records.GetRecord(c.UserContext(), invoiceID); err == nil {
		out.Reference = record.Reference
	}
	return c.JSON(out)
}

func (h *InvoiceHandler) recordError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "la factura no existe o no tiene registro fiscal"})
	case errors.Is(err, domain.ErrIneligible):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INELIGIBLE", Message: err.Error()})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
