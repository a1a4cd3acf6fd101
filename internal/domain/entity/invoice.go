package entity

import (
	"github.com/shopspring/decimal"
)

// DocumentKind identifies the customer's identity document
type DocumentKind string

const (
	DocumentKindDNI  DocumentKind = "DNI"  // national id, 7-8 digits
	DocumentKindCUIT DocumentKind = "CUIT" // tax id, 11 digits
)

// VoucherType is the invoice letter recognised by the tax authority
type VoucherType string

const (
	VoucherTypeA VoucherType = "A"
	VoucherTypeB VoucherType = "B"
	VoucherTypeC VoucherType = "C"
)

// Code returns the tax authority voucher code for the letter, or 0 if unknown
func (v VoucherType) Code() int {
	switch v {
	case VoucherTypeA:
		return 1
	case VoucherTypeB:
		return 6
	case VoucherTypeC:
		return 11
	default:
		return 0
	}
}

// IsValid returns true for A, B and C
func (v VoucherType) IsValid() bool {
	return v.Code() != 0
}

// Concept describes what is being billed
type Concept string

const (
	ConceptGoods            Concept = "producto"
	ConceptServices         Concept = "servicio"
	ConceptGoodsAndServices Concept = "productos_servicios"
)

// Customer holds the billed party. JSON names follow the billing backend wire format.
type Customer struct {
	Name         string       `json:"nombre,omitempty"`
	Document     string       `json:"documento,omitempty"`
	DocumentKind DocumentKind `json:"tipoDocumento,omitempty"`
}

// InvoiceRecord is the invoice data accumulated across chat turns.
// Every field is optional until the record is submittable.
type InvoiceRecord struct {
	Customer    Customer         `json:"cliente"`
	Amount      *decimal.Decimal `json:"importe,omitempty"`
	VoucherType VoucherType      `json:"tipoComprobante,omitempty"`
	Concept     Concept          `json:"concepto,omitempty"`
	Description string           `json:"descripcion,omitempty"`
}

// Submittable reports whether name, document and a positive amount are present.
// Voucher type, concept and description are defaulted by the billing backend.
func (r InvoiceRecord) Submittable() bool {
	return r.Customer.Name != "" &&
		r.Customer.Document != "" &&
		r.Amount != nil && r.Amount.IsPositive()
}

// IsEmpty returns true when no field has been collected
func (r InvoiceRecord) IsEmpty() bool {
	return r.Customer == (Customer{}) &&
		r.Amount == nil &&
		r.VoucherType == "" &&
		r.Concept == "" &&
		r.Description == ""
}

// Clone returns a deep copy; the amount pointer is never shared between copies
func (r InvoiceRecord) Clone() InvoiceRecord {
	out := r
	if r.Amount != nil {
		amount := *r.Amount
		out.Amount = &amount
	}
	return out
}

// Merge overlays the non-empty fields of update on top of base.
// Fields missing from update keep the base value; nothing is ever cleared.
func Merge(base, update InvoiceRecord) InvoiceRecord {
	out := base.Clone()

	if update.Customer.Name != "" {
		out.Customer.Name = update.Customer.Name
	}
	if update.Customer.Document != "" {
		out.Customer.Document = update.Customer.Document
	}
	if update.Customer.DocumentKind != "" {
		out.Customer.DocumentKind = update.Customer.DocumentKind
	}
	if update.Amount != nil {
		amount := *update.Amount
		out.Amount = &amount
	}
	if update.VoucherType != "" {
		out.VoucherType = update.VoucherType
	}
	if update.Concept != "" {
		out.Concept = update.Concept
	}
	if update.Description != "" {
		out.Description = update.Description
	}

	return out
}
