package main

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
)

// Audit checks that a collection summary adds up. Each returned string is one broken identity.
func Audit(s *dto.CollectionSummary) []string {
	var findings []string

	if want := s.BookingTotal.Add(s.LedgerTotal).Sub(s.Duplicated); !want.Equal(s.TotalCollected) {
		findings = append(findings, fmt.Sprintf("collected %s != booking %s + ledger %s - duplicated %s",
			s.TotalCollected, s.BookingTotal, s.LedgerTotal, s.Duplicated))
	}

	methods := decimal.Zero
	for _, m := range s.Methods {
		if m.Amount.IsNegative() {
			findings = append(findings, fmt.Sprintf("method %s is negative (%s)", m.Method, m.Amount))
		}
		methods = methods.Add(m.Amount)
	}
	if len(s.Methods) > 0 && !methods.Equal(s.TotalCollected) {
		findings = append(findings, fmt.Sprintf("method breakdown %s != collected %s", methods, s.TotalCollected))
	}

	var expected, paid, outstanding decimal.Decimal
	for _, e := range s.Entities {
		expected = expected.Add(e.Expected)
		paid = paid.Add(e.Paid)
		outstanding = outstanding.Add(e.Balance)
		if e.Balance.IsNegative() {
			findings = append(findings, fmt.Sprintf("%s %s has negative balance %s", e.EntityType, e.EntityID, e.Balance))
		}
		if e.Duplicated.GreaterThan(decimal.Min(e.BookingPaid, e.LedgerPaid)) {
			findings = append(findings, fmt.Sprintf("%s %s deducts %s, more than either source", e.EntityType, e.EntityID, e.Duplicated))
		}
	}
	if !expected.Equal(s.TotalExpected) {
		findings = append(findings, fmt.Sprintf("entity expected %s != total %s", expected, s.TotalExpected))
	}
	if !paid.Equal(s.TotalCollected) {
		findings = append(findings, fmt.Sprintf("entity paid %s != total %s", paid, s.TotalCollected))
	}
	if !outstanding.Equal(s.TotalOutstanding) {
		findings = append(findings, fmt.Sprintf("entity outstanding %s != total %s", outstanding, s.TotalOutstanding))
	}
	return findings
}

// Diff compares the headline totals of two deployments.
func Diff(a, b *dto.CollectionSummary) []string {
	var findings []string
	pairs := []struct {
		label string
		a, b  decimal.Decimal
	}{
		{"expected", a.TotalExpected, b.TotalExpected},
		{"collected", a.TotalCollected, b.TotalCollected},
		{"outstanding", a.TotalOutstanding, b.TotalOutstanding},
	}
	for _, p := range pairs {
		if !p.a.Equal(p.b) {
			findings = append(findings, fmt.Sprintf("%s differs: %s vs %s", p.label, p.a, p.b))
		}
	}
	if len(a.Entities) != len(b.Entities) {
		findings = append(findings, fmt.Sprintf("entity count differs: %d vs %d", len(a.Entities), len(b.Entities)))
	}
	return findings
}
