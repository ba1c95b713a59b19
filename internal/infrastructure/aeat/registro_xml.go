package aeat

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
	"github.com/aurestic/verifactu-api/internal/domain/verifactu"
)

// Namespaces del esquema SuministroInformacion de Veri*FACTU.
const (
	nsSum  = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
	nsSumL = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
)

// Datos del sistema informático declarados en cada registro (obligatorios
// en el esquema de Veri*FACTU).
const (
	sistemaNombre  = "verifactu-api"
	sistemaID      = "01"
	sistemaVersion = "1.0"
)

// BuildRegistroAlta construye el XML RegistroAlta de un registro fiscal y lo
// devuelve canonicalizado (C14N), listo para incrustar en el cuerpo SOAP.
// El contenido sale del FiscalRecord almacenado, nunca se recalcula: la
// huella enviada es exactamente la persistida.
func BuildRegistroAlta(record *entity.FiscalRecord, company *entity.Company) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("aeat: registro fiscal obligatorio")
	}
	doc := etree.NewDocument()

	reg := doc.CreateElement("sum:RegistroAlta")
	reg.CreateAttr("xmlns:sum", nsSum)
	reg.CreateAttr("xmlns:sum1", nsSumL)

	version := reg.CreateElement("sum:IDVersion")
	version.SetText("1.0")

	idFactura := reg.CreateElement("sum:IDFactura")
	idFactura.CreateElement("sum:IDEmisorFactura").SetText(record.IssuerID)
	idFactura.CreateElement("sum:NumSerieFactura").SetText(record.SerialNumber)
	idFactura.CreateElement("sum:FechaExpedicionFactura").SetText(record.ExpeditionDate.Format("02-01-2006"))

	reg.CreateElement("sum:NombreRazonEmisor").SetText(company.Name)
	reg.CreateElement("sum:TipoFactura").SetText(record.DocumentType)
	reg.CreateElement("sum:CuotaTotal").SetText(record.AmountTax.Round(2).StringFixed(2))
	reg.CreateElement("sum:ImporteTotal").SetText(record.AmountTotal.Round(2).StringFixed(2))

	encadenamiento := reg.CreateElement("sum:Encadenamiento")
	if record.PreviousFingerprint == "" {
		encadenamiento.CreateElement("sum:PrimerRegistro").SetText("S")
	} else {
		anterior := encadenamiento.CreateElement("sum:RegistroAnterior")
		anterior.CreateElement("sum:Huella").SetText(record.PreviousFingerprint)
	}

	sistema := reg.CreateElement("sum:SistemaInformatico")
	sistema.CreateElement("sum:NombreSistemaInformatico").SetText(sistemaNombre)
	sistema.CreateElement("sum:IdSistemaInformatico").SetText(sistemaID)
	sistema.CreateElement("sum:Version").SetText(sistemaVersion)

	reg.CreateElement("sum:FechaHoraHusoGenRegistro").SetText(verifactu.FormatRegistrationTime(record.RegisteredAt))
	reg.CreateElement("sum:TipoHuella").SetText("01") // 01 = SHA-256
	reg.CreateElement("sum:Huella").SetText(record.Fingerprint)

	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("aeat: serializar RegistroAlta: %w", err)
	}
	return canonicalizeXML(raw)
}

// canonicalizeXML aplica C14N al XML para que el registro incrustado en el
// envelope sea estable byte a byte entre reenvíos.
func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("aeat: canonicalizar XML: %w", err)
	}
	return out, nil
}
