package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssuedInvoice is an invoice registered by the billing backend
type IssuedInvoice struct {
	ID          int64           `json:"-"`
	Number      string          `json:"numero"`
	Date        string          `json:"fecha"`
	Customer    Customer        `json:"cliente"`
	Amount      decimal.Decimal `json:"importe"`
	VoucherType VoucherType     `json:"tipoComprobante"`
	Concept     Concept         `json:"concepto"`
	Description string          `json:"descripcion"`
	CAE         string          `json:"cae"`
	CAEExpiry   string          `json:"vencimientoCae"`
	CreatedAt   time.Time       `json:"-"`
}

// InvoiceResult is the outcome of a submission: either an invoice or an error message
type InvoiceResult struct {
	Success bool           `json:"success"`
	Invoice *IssuedInvoice `json:"invoice,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// HealthStatus is the billing backend health probe response
type HealthStatus struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuthorityStatus reports the (simulated) tax authority web services
type AuthorityStatus struct {
	Success     bool              `json:"success"`
	Status      string            `json:"status"`
	Services    map[string]string `json:"services"`
	Environment string            `json:"environment"`
}

// VoucherTypeInfo is one entry of the voucher catalogue
type VoucherTypeInfo struct {
	Code        int    `json:"codigo"`
	Description string `json:"descripcion"`
}
