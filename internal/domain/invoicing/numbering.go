package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

// Invoice numbers follow the pattern INV-{year}-{seq:04d}, e.g. INV-2025-0001.
// The sequence restarts at 1 each calendar year.

// InvoiceNumberPrefix returns the number prefix for a given year
func InvoiceNumberPrefix(year int) string {
	return fmt.Sprintf("INV-%04d-", year)
}

// FormatInvoiceNumber formats an invoice number from year and sequence
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%04d-%04d", year, seq)
}

// ParseInvoiceSequence extracts the trailing sequence from an invoice number
// for the given year. Returns false when the number does not match the year
// prefix or the trailing segment is not an integer.
func ParseInvoiceSequence(number string, year int) (int, bool) {
	prefix := InvoiceNumberPrefix(year)
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil || seq < 1 {
		return 0, false
	}
	return seq, true
}

// NextInvoiceSequence returns the sequence that follows the highest parseable
// sequence among the given numbers for the year. Starts at 1 when no number
// matches or parsing fails.
func NextInvoiceSequence(numbers []string, year int) int {
	highest := 0
	for _, n := range numbers {
		if seq, ok := ParseInvoiceSequence(n, year); ok && seq > highest {
			highest = seq
		}
	}
	return highest + 1
}
