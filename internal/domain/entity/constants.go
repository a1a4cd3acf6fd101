package entity

// FieldTag names a required invoice field that may be missing from an utterance
type FieldTag string

// Missing-field tags, declared in the order follow-up questions are asked
const (
	FieldCustomerName     FieldTag = "customer_name"
	FieldCustomerDocument FieldTag = "customer_document"
	FieldDocumentKind     FieldTag = "document_kind"
	FieldAmount           FieldTag = "amount"
	FieldVoucherType      FieldTag = "voucher_type"
	FieldConcept          FieldTag = "concept"
)

// Defaults the billing backend applies to optional fields at submission time
const (
	DefaultVoucherType = VoucherTypeC
	DefaultConcept     = ConceptServices
	DefaultDescription = "Servicios profesionales"
)

// VoucherCatalogue lists the voucher types the backend knows about
var VoucherCatalogue = []VoucherTypeInfo{
	{Code: 1, Description: "Factura A"},
	{Code: 6, Description: "Factura B"},
	{Code: 11, Description: "Factura C"},
	{Code: 3, Description: "Nota de Crédito A"},
	{Code: 8, Description: "Nota de Crédito B"},
	{Code: 13, Description: "Nota de Crédito C"},
}
