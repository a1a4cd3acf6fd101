package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	dniFormat    = regexp.MustCompile(`^\d{7,8}$`)
	cuitFormat   = regexp.MustCompile(`^\d{11}$`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateDocument checks the shape of an Argentine customer document.
// kind is "DNI", "CUIT" or empty when unknown; hyphens are ignored.
func ValidateDocument(kind, number string) error {
	digits := strings.ReplaceAll(number, "-", "")

	switch strings.ToUpper(kind) {
	case "DNI":
		if !dniFormat.MatchString(digits) {
			return fmt.Errorf("DNI must have 7 or 8 digits: %s", number)
		}
	case "CUIT":
		if !cuitFormat.MatchString(digits) {
			return fmt.Errorf("CUIT must have 11 digits: %s", number)
		}
	case "":
		if !dniFormat.MatchString(digits) && !cuitFormat.MatchString(digits) {
			return fmt.Errorf("document must be a DNI or a CUIT: %s", number)
		}
	default:
		return fmt.Errorf("unknown document kind: %s", kind)
	}

	return nil
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
