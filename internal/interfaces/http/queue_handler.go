package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aurestic/verifactu-api/internal/application/dto"
	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain"
)

const defaultListLimit = 100

// QueueHandler expone la cola de envío Veri*FACTU: listado, reintento y
// cancelación de elementos, y procesamiento de un lote bajo demanda.
type QueueHandler struct {
	queue  *reporting.QueueService
	worker *reporting.Worker
}

func NewQueueHandler(queue *reporting.QueueService, worker *reporting.Worker) *QueueHandler {
	return &QueueHandler{queue: queue, worker: worker}
}

// List godoc
// @Summary      Listar elementos de la cola
// @Tags         queue
// @Produce      json
// @Param        state  query  string  false  "pending | processing | sent | error | cancelled"
// @Success      200  {array}  dto.QueueItemResponse
// @Router       /api/queue [get]
func (h *QueueHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	items, err := h.queue.List(c.UserContext(), c.Query("state"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.QueueItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toQueueItemResponse(item))
	}
	return c.JSON(out)
}

// Retry godoc
// @Summary      Reintentar ya un elemento en error o cancelado
// @Tags         queue
// @Produce      json
// @Param        id   path      string  true  "ID del elemento"
// @Success      200  {object}  dto.QueueItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/queue/{id}/retry [post]
func (h *QueueHandler) Retry(c *fiber.Ctx) error {
	item, err := h.queue.RetryNow(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(toQueueItemResponse(item))
}

// Cancel godoc
// @Summary      Cancelar un elemento pendiente o en proceso
// @Tags         queue
// @Produce      json
// @Param        id   path      string  true  "ID del elemento"
// @Success      200  {object}  dto.QueueItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/queue/{id}/cancel [post]
func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	item, err := h.queue.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.queueError(c, err)
	}
	return c.JSON(toQueueItemResponse(item))
}

// Process godoc
// @Summary      Procesar un lote de elementos pendientes
// @Tags         queue
// @Produce      json
// @Success      200  {object}  dto.BatchResponse
// @Router       /api/queue/process [post]
func (h *QueueHandler) Process(c *fiber.Ctx) error {
	processed, err := h.worker.ProcessPendingBatch(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.BatchResponse{Processed: processed})
}

func (h *QueueHandler) queueError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el elemento de cola no existe"})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
