package aeat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aurestic/verifactu-api/internal/domain/entity"
)

// Endpoints del servicio SistemaFacturacion de la AEAT.
const (
	soapURLTest = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion"
	soapURLProd = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion"

	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

// SOAPClient implementa Submitter contra el WS SOAP de la AEAT.
// La AEAT exige certificado de cliente (mTLS); el http.Client se construye
// con el certificado cargado desde configuración.
type SOAPClient struct {
	httpClient *http.Client
	url        string
}

// NewSOAPClient construye el cliente para el ambiente dado ("test" o "prod")
// con el certificado de cliente. El timeout de transporte es generoso; el
// límite efectivo por envío lo impone el context del worker.
func NewSOAPClient(env string, clientCert tls.Certificate) (*SOAPClient, error) {
	var url string
	switch env {
	case AppEnvTest:
		url = soapURLTest
	case AppEnvProd:
		url = soapURLProd
	default:
		return nil, fmt.Errorf("aeat: ambiente desconocido %q (usar test|prod)", env)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{clientCert},
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second, Transport: transport},
		url:        url,
	}, nil
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	RegFactu regFactuBody `xml:"sum1:RegFactuSistemaFacturacion"`
}

type regFactuBody struct {
	XmlnsSum1 string       `xml:"xmlns:sum1,attr"`
	XmlnsSum  string       `xml:"xmlns:sum,attr"`
	Cabecera  cabeceraBody `xml:"sum:Cabecera"`
	Registro  registroBody `xml:"sum1:RegistroFactura"`
}

type cabeceraBody struct {
	NombreRazon string `xml:"sum:ObligadoEmision>sum:NombreRazon"`
	NIF         string `xml:"sum:ObligadoEmision>sum:NIF"`
}

type registroBody struct {
	// RegistroAlta ya serializado y canonicalizado; se incrusta tal cual.
	InnerXML string `xml:",innerxml"`
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Respuesta *respuestaRegFactu `xml:"RespuestaRegFactuSistemaFacturacion"`
	Fault     *soapFault         `xml:"Fault"`
}

type respuestaRegFactu struct {
	CSV         string           `xml:"CSV"`
	EstadoEnvio string           `xml:"EstadoEnvio"` // Correcto | ParcialmenteCorrecto | Incorrecto
	Lineas      []respuestaLinea `xml:"RespuestaLinea"`
}

type respuestaLinea struct {
	EstadoRegistro   string `xml:"EstadoRegistro"`
	CodigoError      string `xml:"CodigoErrorRegistro"`
	DescripcionError string `xml:"DescripcionErrorRegistro"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

// ── Envío ─────────────────────────────────────────────────────────────────────

// Submit entrega un registro fiscal a la AEAT. Errores de red, faults SOAP y
// estados HTTP no-200 se devuelven como error; un rechazo funcional de la
// AEAT llega como Accepted=false con el detalle en ErrorDetail.
func (c *SOAPClient) Submit(ctx context.Context, record *entity.FiscalRecord, company *entity.Company) (*SubmitResult, error) {
	registroXML, err := BuildRegistroAlta(record, company)
	if err != nil {
		return nil, err
	}

	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body: soapBody{
			RegFactu: regFactuBody{
				XmlnsSum1: nsSumL,
				XmlnsSum:  nsSum,
				Cabecera: cabeceraBody{
					NombreRazon: company.Name,
					NIF:         company.NIF,
				},
				Registro: registroBody{InnerXML: string(registroXML)},
			},
		},
	}

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("aeat: serializar envelope SOAP: %w", err)
	}
	body := append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("aeat: construir request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aeat: llamada SOAP: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("aeat: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aeat: HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 300))
	}

	var parsed soapResponseEnvelope
	if err := xml.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("aeat: parsear respuesta SOAP: %w", err)
	}
	if parsed.Body.Fault != nil {
		return nil, fmt.Errorf("aeat: fault SOAP %s: %s", parsed.Body.Fault.Code, parsed.Body.Fault.Reason)
	}
	if parsed.Body.Respuesta == nil {
		return nil, fmt.Errorf("aeat: respuesta sin RespuestaRegFactuSistemaFacturacion")
	}

	r := parsed.Body.Respuesta
	result := &SubmitResult{
		CSV:      r.CSV,
		Accepted: r.EstadoEnvio == "Correcto",
	}
	if !result.Accepted {
		var details []string
		for _, l := range r.Lineas {
			if l.CodigoError != "" || l.DescripcionError != "" {
				details = append(details, strings.TrimSpace(l.CodigoError+" "+l.DescripcionError))
			}
		}
		if len(details) == 0 {
			details = append(details, "EstadoEnvio="+r.EstadoEnvio)
		}
		result.ErrorDetail = strings.Join(details, "; ")
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
