package verifactu

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Formatos de fecha exigidos por la AEAT en la cadena de huella.
const (
	expeditionDateLayout = "02-01-2006" // dd-mm-yyyy
	registrationLayout   = "2006-01-02T15:04:05"
)

// CanonicalizerService construye la cadena canónica de huella Veri*FACTU.
// La cadena es determinista: mismos campos, misma salida byte a byte, porque
// tanto la huella como cualquier revalidación externa dependen de ella.
type CanonicalizerService struct{}

// NewCanonicalizerService crea el servicio.
func NewCanonicalizerService() *CanonicalizerService {
	return &CanonicalizerService{}
}

// Build genera la cadena de huella con el orden estricto de campos AEAT:
//
//	IDEmisorFactura & NumSerieFactura & FechaExpedicionFactura & TipoFactura &
//	CuotaTotal & ImporteTotal & Huella & FechaHoraHusoGenRegistro
//
// previousFingerprint vacío es válido: es el primer registro de la cadena.
func (s *CanonicalizerService) Build(fields FiscalFields, previousFingerprint string) string {
	return fmt.Sprintf(
		"IDEmisorFactura=%s&"+
			"NumSerieFactura=%s&"+
			"FechaExpedicionFactura=%s&"+
			"TipoFactura=%s&"+
			"CuotaTotal=%s&"+
			"ImporteTotal=%s&"+
			"Huella=%s&"+
			"FechaHoraHusoGenRegistro=%s",
		fields.IssuerID(),
		fields.SerialNumber(),
		fields.ExpeditionDate().Format(expeditionDateLayout),
		fields.DocumentType(),
		formatAmount(fields.AmountTax()),
		formatAmount(fields.AmountTotal()),
		previousFingerprint,
		FormatRegistrationTime(fields.RegistrationTime()),
	)
}

// FormatRegistrationTime formatea el timestamp de alta en ISO-8601 UTC con
// precisión de segundo y sufijo explícito +00:00 (forma que espera la AEAT).
func FormatRegistrationTime(t time.Time) string {
	return t.UTC().Format(registrationLayout) + "+00:00"
}

// formatAmount montos sin separador de miles, punto decimal, 2 decimales.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
