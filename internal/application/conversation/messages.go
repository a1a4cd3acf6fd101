package conversation

import (
	"fmt"
	"strings"

	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/internal/invoice"
	"github.com/shopspring/decimal"
)

// Assistant messages shown to the user
const (
	MsgOffline         = "Estás probando sin conexión. Podés emitir una factura de prueba."
	MsgProcessing      = "Procesando..."
	MsgExtractionError = "❌ Ocurrió un error procesando tu solicitud. Intenta nuevamente."
	MsgIssued          = "¡Factura emitida!"
	MsgDemoTag         = " (Demo)"
	MsgConfirmQuestion = "¿Confirmas la emisión?"

	submissionFailedPrefix = "No se pudo emitir la factura: "
	unexpectedErrorPrefix  = "Error inesperado: "
	unknownError           = "Error desconocido"
)

// confirmationSummary lists the record and asks for confirmation
func confirmationSummary(r entity.InvoiceRecord) string {
	voucher := r.VoucherType
	if voucher == "" {
		voucher = entity.DefaultVoucherType
	}

	var b strings.Builder
	b.WriteString("Perfecto, estos son los datos:\n\n")
	fmt.Fprintf(&b, "Cliente: %s\n", r.Customer.Name)
	fmt.Fprintf(&b, "Documento: %s\n", documentLabel(r.Customer))
	fmt.Fprintf(&b, "Importe: $%s\n", FormatAmount(*r.Amount))
	fmt.Fprintf(&b, "Tipo: Factura %s\n\n", voucher)
	b.WriteString(MsgConfirmQuestion)
	return b.String()
}

// needMoreSummary echoes what was understood and asks the first missing question
func needMoreSummary(r entity.InvoiceRecord, missing []entity.FieldTag) string {
	var parts []string
	if r.Customer.Name != "" {
		parts = append(parts, "Cliente: "+r.Customer.Name)
	}
	if r.Customer.Document != "" {
		parts = append(parts, "Documento: "+r.Customer.Document)
	}
	if r.Amount != nil {
		parts = append(parts, "Importe: $"+FormatAmount(*r.Amount))
	}

	var b strings.Builder
	if len(missing) > 1 {
		b.WriteString("Necesito algunos datos más.")
	} else {
		b.WriteString("Necesito un dato más.")
	}
	if len(parts) > 0 {
		b.WriteString("\n" + strings.Join(parts, "\n") + "\n")
	}

	question := invoice.Question(entity.FieldCustomerName)
	if len(missing) > 0 {
		question = invoice.Question(missing[0])
	}
	b.WriteString("\n" + question)
	return b.String()
}

func issuedMessage(inv *entity.IssuedInvoice, demo bool) string {
	msg := MsgIssued
	if demo {
		msg += MsgDemoTag
	}
	return msg + "\n\n" + FormatInvoice(inv)
}

func submissionFailedMessage(reason string) string {
	if reason == "" {
		reason = unknownError
	}
	return submissionFailedPrefix + reason
}

// FormatInvoice renders an issued invoice as plain text ready to copy
func FormatInvoice(inv *entity.IssuedInvoice) string {
	lines := []string{
		"Factura " + string(inv.VoucherType),
		"Número: " + inv.Number,
		"Fecha: " + inv.Date,
		"Cliente: " + inv.Customer.Name,
		"Documento: " + documentLabel(inv.Customer),
		"Importe: $" + FormatAmount(inv.Amount),
		"CAE: " + inv.CAE,
		"Vencimiento CAE: " + inv.CAEExpiry,
	}
	return strings.Join(lines, "\n")
}

func documentLabel(c entity.Customer) string {
	if c.DocumentKind == "" {
		return c.Document
	}
	return string(c.DocumentKind) + " " + c.Document
}

// FormatAmount prints an amount the Argentine way: 1.234.567,89
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString("," + frac)
	}
	return sign + b.String()
}
