package dto

import "time"

// FiscalRecordResponse registro fiscal expuesto por la API.
type FiscalRecordResponse struct {
	ID                  string    `json:"id"`
	InvoiceID           string    `json:"invoice_id"`
	CompanyID           string    `json:"company_id"`
	ChainIndex          int64     `json:"chain_index"`
	IssuerID            string    `json:"issuer_id"`
	SerialNumber        string    `json:"serial_number"`
	ExpeditionDate      string    `json:"expedition_date"` // dd-mm-yyyy
	DocumentType        string    `json:"document_type"`
	AmountTax           string    `json:"amount_tax"`
	AmountTotal         string    `json:"amount_total"`
	PreviousFingerprint string    `json:"previous_fingerprint"`
	Fingerprint         string    `json:"fingerprint"`
	Reference           string    `json:"reference"`
	RegisteredAt        time.Time `json:"registered_at"`
}

// QueueItemResponse elemento de cola expuesto por la API.
type QueueItemResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	InvoiceID         string     `json:"invoice_id"`
	State             string     `json:"state"`
	Priority          int        `json:"priority"`
	RetryCount        int        `json:"retry_count"`
	MaxRetries        int        `json:"max_retries"`
	ScheduledAt       time.Time  `json:"scheduled_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	AuthorityResponse string     `json:"authority_response,omitempty"`
}

// ReportingStatusResponse resumen de reporte de una factura.
type ReportingStatusResponse struct {
	InvoiceID       string `json:"invoice_id"`
	ReportingStatus string `json:"reporting_status"`
	ReportingError  string `json:"reporting_error,omitempty"`
	Reference       string `json:"reference,omitempty"`
}

// BatchResponse resultado del procesamiento de un lote.
type BatchResponse struct {
	Processed int `json:"processed"`
}

// ChainVerificationResponse resultado de la verificación de cadena.
type ChainVerificationResponse struct {
	CompanyID string             `json:"company_id"`
	Records   int                `json:"records"`
	Valid     bool               `json:"valid"`
	Breaks    []ChainBreakDetail `json:"breaks,omitempty"`
}

// ChainBreakDetail eslabón inválido detectado en la verificación.
type ChainBreakDetail struct {
	ChainIndex int64  `json:"chain_index"`
	RecordID   string `json:"record_id"`
	Reason     string `json:"reason"`
}
