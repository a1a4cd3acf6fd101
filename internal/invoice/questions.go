package invoice

import (
	"fmt"
	"regexp"

	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var questions = map[entity.FieldTag]string{
	entity.FieldCustomerName:     "¿Cuál es el nombre del cliente?",
	entity.FieldCustomerDocument: "¿Cuál es el número de documento del cliente?",
	entity.FieldDocumentKind:     "¿Es DNI o CUIT?",
	entity.FieldAmount:           "¿Cuál es el importe a facturar?",
	entity.FieldVoucherType:      "¿Qué tipo de factura necesitas? (A, B o C)",
	entity.FieldConcept:          "¿Es por productos, servicios o ambos?",
}

// Question returns the follow-up question for a single field
func Question(field entity.FieldTag) string {
	if q, ok := questions[field]; ok {
		return q
	}
	return fmt.Sprintf("¿Podrías proporcionar %s?", field)
}

// Questions maps missing fields to their questions, preserving order
func Questions(missing []entity.FieldTag) []string {
	out := make([]string, 0, len(missing))
	for _, field := range missing {
		out = append(out, Question(field))
	}
	return out
}

var testRequestPattern = regexp.MustCompile(`(?i)prueba|test`)

// IsTestRequest reports whether the message asks for a test invoice
func IsTestRequest(text string) bool {
	return testRequestPattern.MatchString(text)
}

// WithTestDefaults fills every field a test invoice needs without overriding extracted values
func WithTestDefaults(rec entity.InvoiceRecord) entity.InvoiceRecord {
	amount := decimal.NewFromInt(1000)
	return entity.Merge(entity.InvoiceRecord{
		Customer: entity.Customer{
			Name:         "Cliente Prueba",
			Document:     "12345678",
			DocumentKind: entity.DocumentKindDNI,
		},
		Amount:      &amount,
		VoucherType: entity.VoucherTypeC,
		Concept:     entity.ConceptServices,
		Description: "Factura de prueba",
	}, rec)
}
