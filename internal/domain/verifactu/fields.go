// Package verifactu implementa el registro de facturación Veri*FACTU (AEAT,
// RD 1007/2023): cadena canónica de huella, hash SHA-256 encadenado y
// referencia de visualización.
package verifactu

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurestic/verifactu-api/internal/domain"
	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// Tipos de factura AEAT (L2 del Anexo Veri*FACTU).
const (
	DocTypeF1 = "F1" // Factura (art. 6, 7.2 y 7.3 RD 1619/2012)
	DocTypeF2 = "F2" // Factura simplificada y sin identificación del destinatario (art. 6.1.d)
	DocTypeF3 = "F3" // Factura en sustitución de simplificadas facturadas y declaradas
	DocTypeR1 = "R1" // Rectificativa (art. 80.1, 80.2 y error fundado en derecho)
	DocTypeR2 = "R2" // Rectificativa (art. 80.3)
	DocTypeR3 = "R3" // Rectificativa (art. 80.4)
	DocTypeR4 = "R4" // Rectificativa (resto)
	DocTypeR5 = "R5" // Rectificativa en facturas simplificadas
)

// DocumentTypes catálogo de tipos con su descripción oficial.
var DocumentTypes = map[string]string{
	DocTypeF1: "FACTURA (ART. 6, 7.2 Y 7.3 DEL RD 1619/2012)",
	DocTypeF2: "FACTURA SIMPLIFICADA Y FACTURAS SIN IDENTIFICACIÓN DEL DESTINATARIO (ART. 6.1.D RD 1619/2012)",
	DocTypeF3: "FACTURA EMITIDA EN SUSTITUCIÓN DE FACTURAS SIMPLIFICADAS FACTURADAS Y DECLARADAS",
	DocTypeR1: "FACTURA RECTIFICATIVA (ART. 80.1 Y 80.2 Y ERROR FUNDADO EN DERECHO)",
	DocTypeR2: "FACTURA RECTIFICATIVA (ART. 80.3)",
	DocTypeR3: "FACTURA RECTIFICATIVA (ART. 80.4)",
	DocTypeR4: "FACTURA RECTIFICATIVA (RESTO)",
	DocTypeR5: "FACTURA RECTIFICATIVA EN FACTURAS SIMPLIFICADAS",
}

// serialMaxLen longitud máxima del número de serie según el esquema AEAT.
const serialMaxLen = 60

// FiscalFields expone los campos de una factura que entran en la cadena
// canónica. Hay una implementación por variante de documento (ordinaria,
// simplificada, rectificativa), elegida en construcción.
type FiscalFields interface {
	IssuerID() string
	SerialNumber() string
	ExpeditionDate() time.Time
	DocumentType() string
	AmountTax() decimal.Decimal
	AmountTotal() decimal.Decimal
	RegistrationTime() time.Time
}

// Eligible indica si la factura entra en el ámbito Veri*FACTU: empresa con
// Veri*FACTU activo, factura contabilizada y movimiento de venta.
func Eligible(inv *entity.Invoice, company *entity.Company) bool {
	if inv == nil || company == nil {
		return false
	}
	if !company.VerifactuEnabled || !inv.VerifactuEnabled {
		return false
	}
	if inv.State == entity.InvoiceStateDraft {
		return false
	}
	return inv.IsCustomerInvoice()
}

// FieldsFor construye la variante de FiscalFields que corresponde al tipo de
// documento de la factura. Devuelve domain.ErrIneligible si la factura no
// está en ámbito: el llamador no debe llegar nunca al hasher con ella.
func FieldsFor(inv *entity.Invoice, company *entity.Company) (FiscalFields, error) {
	if !Eligible(inv, company) {
		return nil, domain.ErrIneligible
	}
	if company.NIF == "" {
		return nil, fmt.Errorf("%w: la empresa no tiene NIF", domain.ErrValidation)
	}
	base := baseFields{inv: inv, company: company}
	docType := inv.DocumentType
	switch {
	case strings.HasPrefix(docType, "R"):
		return rectifyingFields{base}, nil
	case docType == DocTypeF2:
		return simplifiedFields{base}, nil
	case docType == "" && inv.MoveType == entity.MoveTypeOutRefund:
		return rectifyingFields{base}, nil
	default:
		return standardFields{base}, nil
	}
}

// baseFields implementación común a todas las variantes.
type baseFields struct {
	inv     *entity.Invoice
	company *entity.Company
}

func (f baseFields) IssuerID() string { return f.company.NIF }

// SerialNumber número de serie truncado a 60 caracteres. Si la factura fue
// emitida por un tercero, se usa el número del tercero.
func (f baseFields) SerialNumber() string {
	serial := f.inv.Serial
	if f.inv.ThirdPartySerial != "" {
		serial = f.inv.ThirdPartySerial
	}
	if len(serial) > serialMaxLen {
		serial = serial[:serialMaxLen]
	}
	return serial
}

func (f baseFields) ExpeditionDate() time.Time    { return f.inv.InvoiceDate }
func (f baseFields) AmountTax() decimal.Decimal   { return f.inv.TaxTotal }
func (f baseFields) AmountTotal() decimal.Decimal { return f.inv.GrandTotal }
func (f baseFields) RegistrationTime() time.Time  { return f.inv.RegisteredAt }

// standardFields factura ordinaria (F1 por defecto, admite F3).
type standardFields struct{ baseFields }

func (f standardFields) DocumentType() string {
	if f.inv.DocumentType != "" {
		return f.inv.DocumentType
	}
	return DocTypeF1
}

// simplifiedFields factura simplificada (F2).
type simplifiedFields struct{ baseFields }

func (f simplifiedFields) DocumentType() string { return DocTypeF2 }

// rectifyingFields factura rectificativa (R1..R5; R1 por defecto).
type rectifyingFields struct{ baseFields }

func (f rectifyingFields) DocumentType() string {
	if strings.HasPrefix(f.inv.DocumentType, "R") {
		return f.inv.DocumentType
	}
	return DocTypeR1
}
