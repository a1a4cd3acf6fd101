package invoice

import (
	"regexp"
	"strings"

	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// rule is one entry of an ordered pattern table. apply receives the submatches
// of re and reports whether it filled the record; a false return lets the next rule try.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(rec *entity.InvoiceRecord, m []string) bool
}

// category groups the rules for one field. Only the first rule that applies counts.
// skipAmount runs the rules on the text with the extracted amount blanked out.
type category struct {
	name       string
	weight     int
	rules      []rule
	skipAmount bool
}

const amountCategory = "amount"

// amountNumber matches Argentine formatted numbers: 1.234.567,89
const amountNumber = `(\d+(?:\.\d{3})*(?:,\d{2})?)`

var nameRules = []rule{
	{
		name:  "billing_verb",
		re:    regexp.MustCompile(`(?i)(?:facturar(?:le)?|cliente|para)\s+(?:a\s+)?([A-Za-zÀ-ÿ\s]+?)\s+(?:dni|cuit|el\s+importe|\d)`),
		apply: setName,
	},
	{
		name:  "preposition",
		re:    regexp.MustCompile(`(?i)(?:^|\s)(?:cliente|para|a)\s+([A-Za-zÀ-ÿ\s]+?)\s+(?:dni|cuit|por|\d)`),
		apply: setName,
	},
}

// Document rules are mutually exclusive: every DNI rule is tried before any CUIT rule.
var documentRules = []rule{
	{
		name:  "dni_labelled",
		re:    regexp.MustCompile(`(?i)dni\s*:?\s*(\d{7,8})(?:\D|$)`),
		apply: setDocument(entity.DocumentKindDNI),
	},
	{
		name:  "dni_bare",
		re:    regexp.MustCompile(`(?:^|[^\d$.,-])(\d{7,8})(?:[^\d.,-]|$)`),
		apply: setDocument(entity.DocumentKindDNI),
	},
	{
		name:  "cuit_labelled",
		re:    regexp.MustCompile(`(?i)cuit\s*:?\s*(\d{11}|\d{2}-\d{8}-\d)(?:\D|$)`),
		apply: setDocument(entity.DocumentKindCUIT),
	},
	{
		name:  "cuit_bare",
		re:    regexp.MustCompile(`(?:^|[^\d$.,-])(\d{11}|\d{2}-\d{8}-\d)(?:[^\d.,-]|$)`),
		apply: setDocument(entity.DocumentKindCUIT),
	},
}

var amountRules = []rule{
	{
		name:  "keyword",
		re:    regexp.MustCompile(`(?i)(?:importe|por|precio|total|monto)\s*:?\s*\$?\s*` + amountNumber),
		apply: setAmount,
	},
	{
		name:  "dollar_prefix",
		re:    regexp.MustCompile(`\$\s*` + amountNumber),
		apply: setAmount,
	},
	{
		name:  "currency_suffix",
		re:    regexp.MustCompile(`(?i)` + amountNumber + `\s*(?:pesos|ars|\$)`),
		apply: setAmount,
	},
}

var voucherRules = []rule{
	{name: "factura_a", re: voucherPattern("a"), apply: setVoucher(entity.VoucherTypeA)},
	{name: "factura_b", re: voucherPattern("b"), apply: setVoucher(entity.VoucherTypeB)},
	{name: "factura_c", re: voucherPattern("c"), apply: setVoucher(entity.VoucherTypeC)},
}

// conceptRules are evaluated goods, services, combined. A text naming both
// products and services therefore resolves to goods.
var conceptRules = []rule{
	{
		name:  "goods",
		re:    regexp.MustCompile(`(?i)productos?`),
		apply: setConcept(entity.ConceptGoods),
	},
	{
		name:  "services",
		re:    regexp.MustCompile(`(?i)servicios?|consultor[ií]a|asesor[ií]a`),
		apply: setConcept(entity.ConceptServices),
	},
	{
		name:  "goods_and_services",
		re:    regexp.MustCompile(`(?i)productos?\s+y\s+servicios?`),
		apply: setConcept(entity.ConceptGoodsAndServices),
	},
}

var descriptionRules = []rule{
	{
		name:  "for_of_phrase",
		re:    regexp.MustCompile(`(?i)(?:^|\s)(?:por|de)\s+([^\s$\d].*?)(?:\s+(?:(?:dni|cuit|importe|por|precio|total|monto)\b|\$|\d)|$)`),
		apply: setDescription,
	},
}

// categories is the full extraction table with the confidence each field contributes
var categories = []category{
	{name: "customer_name", weight: 20, rules: nameRules},
	{name: "customer_document", weight: 15, rules: documentRules, skipAmount: true},
	{name: amountCategory, weight: 25, rules: amountRules},
	{name: "voucher_type", weight: 20, rules: voucherRules},
	{name: "concept", weight: 10, rules: conceptRules},
	{name: "description", weight: 10, rules: descriptionRules},
}

func voucherPattern(letter string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)factura\s*` + letter + `(?:[^\p{L}\p{N}]|$)`)
}

func setName(rec *entity.InvoiceRecord, m []string) bool {
	name := strings.TrimSpace(m[1])
	if name == "" {
		return false
	}
	rec.Customer.Name = name
	return true
}

func setDocument(kind entity.DocumentKind) func(*entity.InvoiceRecord, []string) bool {
	return func(rec *entity.InvoiceRecord, m []string) bool {
		rec.Customer.Document = strings.ReplaceAll(m[1], "-", "")
		rec.Customer.DocumentKind = kind
		return true
	}
}

func setAmount(rec *entity.InvoiceRecord, m []string) bool {
	amount, err := ParseAmount(m[1])
	if err != nil || !amount.IsPositive() {
		return false
	}
	rec.Amount = &amount
	return true
}

func setVoucher(v entity.VoucherType) func(*entity.InvoiceRecord, []string) bool {
	return func(rec *entity.InvoiceRecord, _ []string) bool {
		rec.VoucherType = v
		return true
	}
}

func setConcept(c entity.Concept) func(*entity.InvoiceRecord, []string) bool {
	return func(rec *entity.InvoiceRecord, _ []string) bool {
		rec.Concept = c
		return true
	}
}

func setDescription(rec *entity.InvoiceRecord, m []string) bool {
	desc := strings.TrimSpace(m[1])
	if desc == "" {
		return false
	}
	rec.Description = desc
	return true
}

// ParseAmount converts an Argentine formatted number ("1.234,56") to a decimal.
// Thousands separators are stripped before the decimal comma becomes a point.
func ParseAmount(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	normalized = strings.Replace(normalized, ",", ".", 1)
	return decimal.NewFromString(normalized)
}
