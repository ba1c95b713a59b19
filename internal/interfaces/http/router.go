// Package http router y handlers Fiber de la API Veri*FACTU.
package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurestic/verifactu-api/internal/application/auth"
	"github.com/aurestic/verifactu-api/internal/application/company"
	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	CompanyUC   *company.CompanyUseCase
	Records     *reporting.RecordService
	Queue       *reporting.QueueService
	Worker      *reporting.Worker
	InvoiceRepo repository.InvoiceRepository
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Companies (protegido; el alta inicial se hace con cmd/seed_companies)
	companies := protected.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC, deps.Records)
	companies.Post("/", RequireRole(entity.RoleAdmin), companyHandler.Create)
	companies.Get("/", companyHandler.List)
	companies.Get("/:id", companyHandler.GetByID)
	companies.Get("/:id/chain/verify", RequireRole(entity.RoleAdmin, entity.RoleContable), companyHandler.VerifyChain)

	// Invoices: ciclo fiscal (protegido)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Records, deps.Queue, deps.InvoiceRepo)
	invoices.Post("/:id/finalize", RequireRole(entity.RoleAdmin, entity.RoleContable), invoiceHandler.Finalize)
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Get("/:id/record", invoiceHandler.GetRecord)
	invoices.Get("/:id/status", invoiceHandler.GetStatus)

	// Cola de envío (protegido)
	queue := protected.Group("/queue")
	queueHandler := NewQueueHandler(deps.Queue, deps.Worker)
	queue.Get("/", queueHandler.List)
	queue.Post("/process", RequireRole(entity.RoleAdmin, entity.RoleContable), queueHandler.Process)
	queue.Post("/:id/retry", queueHandler.Retry)
	queue.Post("/:id/cancel", RequireRole(entity.RoleAdmin, entity.RoleContable), queueHandler.Cancel)
}
