// Package invoice turns free-text chat messages into partially filled invoice records.
package invoice

import (
	"strings"

	"github.com/garyjia/factura-chat/internal/domain/entity"
	"go.uber.org/zap"
)

// MaxConfidence caps the heuristic completeness score
const MaxConfidence = 100

// Result is the outcome of extracting a single utterance
type Result struct {
	Record     entity.InvoiceRecord
	Missing    []entity.FieldTag
	Confidence int
}

// Extract runs every pattern category against text. Categories are independent;
// within a category the first applicable rule wins. Extract has no side effects.
//
// The amount is read first and the number it used is blanked out for the
// categories flagged skipAmount, so "por $ 1500000" never doubles as a DNI.
func Extract(text string) Result {
	var (
		rec        entity.InvoiceRecord
		confidence int
	)

	amountSpan, amountFound := applyFirst(amountRules, text, &rec)
	withoutAmount := blank(text, amountSpan)

	for _, cat := range categories {
		var found bool
		switch {
		case cat.name == amountCategory:
			found = amountFound
		case cat.skipAmount:
			_, found = applyFirst(cat.rules, withoutAmount, &rec)
		default:
			_, found = applyFirst(cat.rules, text, &rec)
		}
		if found {
			confidence += cat.weight
		}
	}

	if confidence > MaxConfidence {
		confidence = MaxConfidence
	}

	return Result{
		Record:     rec,
		Missing:    MissingFields(rec),
		Confidence: confidence,
	}
}

// applyFirst walks rules in order and stops at the first one that fills rec.
// It returns the byte span of the first capture group of the winning match.
func applyFirst(rules []rule, text string, rec *entity.InvoiceRecord) ([2]int, bool) {
	for _, r := range rules {
		idx := r.re.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		if r.apply(rec, submatches(text, idx)) {
			if len(idx) >= 4 && idx[2] >= 0 {
				return [2]int{idx[2], idx[3]}, true
			}
			return [2]int{idx[0], idx[1]}, true
		}
	}
	return [2]int{}, false
}

func submatches(text string, idx []int) []string {
	m := make([]string, len(idx)/2)
	for i := range m {
		if start := idx[2*i]; start >= 0 {
			m[i] = text[start:idx[2*i+1]]
		}
	}
	return m
}

// blank replaces span with spaces, keeping every other byte offset intact
func blank(text string, span [2]int) string {
	if span[1] <= span[0] {
		return text
	}
	return text[:span[0]] + strings.Repeat(" ", span[1]-span[0]) + text[span[1]:]
}

// MissingFields evaluates the required-field checklist in question order
func MissingFields(rec entity.InvoiceRecord) []entity.FieldTag {
	missing := make([]entity.FieldTag, 0, 6)

	if rec.Customer.Name == "" {
		missing = append(missing, entity.FieldCustomerName)
	}
	if rec.Customer.Document == "" {
		missing = append(missing, entity.FieldCustomerDocument)
	}
	if rec.Customer.DocumentKind == "" {
		missing = append(missing, entity.FieldDocumentKind)
	}
	if rec.Amount == nil || !rec.Amount.IsPositive() {
		missing = append(missing, entity.FieldAmount)
	}
	if rec.VoucherType == "" {
		missing = append(missing, entity.FieldVoucherType)
	}
	if rec.Concept == "" {
		missing = append(missing, entity.FieldConcept)
	}

	return missing
}

// Extractor wraps Extract with debug logging so it can be injected where an interface is expected
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new field extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract extracts invoice fields from a chat message
func (e *Extractor) Extract(text string) Result {
	result := Extract(text)

	e.logger.Debug("Invoice fields extracted",
		zap.Int("confidence", result.Confidence),
		zap.Int("missing_count", len(result.Missing)),
		zap.Bool("submittable", result.Record.Submittable()))

	return result
}
