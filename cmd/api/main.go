package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aurestic/verifactu-api/internal/application/auth"
	"github.com/aurestic/verifactu-api/internal/application/company"
	"github.com/aurestic/verifactu-api/internal/application/reporting"
	"github.com/aurestic/verifactu-api/internal/infrastructure/aeat"
	"github.com/aurestic/verifactu-api/internal/infrastructure/postgres"
	httpRouter "github.com/aurestic/verifactu-api/internal/interfaces/http"
	"github.com/aurestic/verifactu-api/pkg/config"
	"github.com/aurestic/verifactu-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("aeat", cfg.AEAT.AppEnv).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepo(pool)
	userRepo := postgres.NewUserRepo(pool)
	invoiceRepo := postgres.NewInvoiceRepo(pool)
	recordRepo := postgres.NewFiscalRecordRepo(pool)
	queueRepo := postgres.NewQueueRepo(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Submitter AEAT: en "dev" simulado; en "test"/"prod" cliente SOAP real
	// con mTLS contra el endpoint correspondiente.
	var submitter aeat.Submitter
	if cfg.AEAT.AppEnv == aeat.AppEnvDev || cfg.AEAT.AppEnv == "" {
		submitter = aeat.NewSimulatedSubmitter()
		log.Warn().Msg("envío AEAT en modo simulado, sin salida a red")
	} else {
		clientCert, err := aeat.LoadClientCert(cfg.AEAT.CertPath, cfg.AEAT.CertKeyPath, cfg.AEAT.CertPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("cargar certificado de cliente AEAT")
		}
		submitter, err = aeat.NewSOAPClient(cfg.AEAT.AppEnv, clientCert)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente SOAP AEAT")
		}
	}

	recordSvc := reporting.NewRecordService(invoiceRepo, companyRepo, recordRepo, txRunner)
	queueSvc := reporting.NewQueueService(queueRepo, invoiceRepo, recordRepo, cfg.Queue.MaxRetries)
	worker := reporting.NewWorker(queueRepo, invoiceRepo, recordRepo, companyRepo, submitter, log, reporting.WorkerConfig{
		BatchLimit:    cfg.Queue.BatchLimit,
		BaseDelay:     cfg.Queue.BaseDelay,
		SubmitTimeout: cfg.Queue.SubmitTimeout,
		StuckGrace:    cfg.Queue.StuckGrace,
	})

	companyUC := company.NewCompanyUseCase(companyRepo)
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Planificador de cola: procesa lotes en segundo plano. Desactivable para
	// entornos donde el disparo es solo manual (POST /api/queue/process).
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.Queue.SchedulerEnabled {
		scheduler := reporting.NewScheduler(worker, cfg.Queue.Interval, log)
		go scheduler.Run(schedulerCtx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Verifactu API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		CompanyUC:   companyUC,
		Records:     recordSvc,
		Queue:       queueSvc,
		Worker:      worker,
		InvoiceRepo: invoiceRepo,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
