package reporting

import (
	"context"
	"time"

	"github.com/aurestic/verifactu-api/pkg/logger"
)

// Scheduler dispara el procesamiento de la cola a intervalo fijo. Corre en
// una sola goroutine y cada iteración se ejecuta de forma síncrona, por lo
// que dos invocaciones nunca se solapan: si un lote tarda más que el
// intervalo, el siguiente simplemente espera.
type Scheduler struct {
	worker   *Worker
	interval time.Duration
	log      *logger.Logger
}

// NewScheduler construye el planificador. interval <= 0 usa 1 minuto.
func NewScheduler(worker *Worker, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{worker: worker, interval: interval, log: log}
}

// Run procesa lotes hasta que el context se cancele. Pensado para lanzarse
// como goroutine desde main.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("intervalo", s.interval).Msg("planificador de cola Veri*FACTU iniciado")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("planificador de cola detenido")
			return
		case <-ticker.C:
			processed, err := s.worker.ProcessPendingBatch(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("lote de cola fallido")
				continue
			}
			if processed > 0 {
				s.log.Info().Int("procesados", processed).Msg("lote de cola completado")
			}
		}
	}
}
