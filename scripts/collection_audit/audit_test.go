package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func consistentSummary() *dto.CollectionSummary {
	return &dto.CollectionSummary{
		HostelID:         "h-1",
		TotalExpected:    d(250),
		TotalCollected:   d(180),
		TotalOutstanding: d(70),
		BookingTotal:     d(100),
		LedgerTotal:      d(180),
		Duplicated:       d(100),
		Methods: []dto.MethodTotal{
			{Method: "cash", Amount: d(100)},
			{Method: "bank_transfer", Amount: d(80)},
		},
		Entities: []dto.EntityBalance{
			{EntityID: "r-1", EntityType: dto.EntityResident, Expected: d(100), Paid: d(100), BookingPaid: d(100), LedgerPaid: d(100), Duplicated: d(100), Balance: d(0)},
			{EntityID: "r-2", EntityType: dto.EntityResident, Expected: d(150), Paid: d(80), LedgerPaid: d(80), Duplicated: d(0), Balance: d(70)},
		},
	}
}

func TestAuditAcceptsConsistentSummary(t *testing.T) {
	assert.Empty(t, Audit(consistentSummary()))
}

func TestAuditFlagsDoubleCounting(t *testing.T) {
	s := consistentSummary()
	s.TotalCollected = d(280)
	findings := Audit(s)
	assert.NotEmpty(t, findings)
	assert.Contains(t, findings[0], "collected 280")
}

func TestAuditFlagsOverDeduction(t *testing.T) {
	s := consistentSummary()
	s.Entities[1].Duplicated = d(10)
	assert.Contains(t, Audit(s), "resident r-2 deducts 10, more than either source")
}

func TestDiffReportsTotals(t *testing.T) {
	a := consistentSummary()
	b := consistentSummary()
	b.TotalCollected = d(200)
	b.Entities = b.Entities[:1]

	findings := Diff(a, b)
	assert.Len(t, findings, 2)
	assert.Contains(t, findings[0], "collected differs")
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"h-1", "h-2"}, splitIDs(" h-1, ,h-2 "))
	assert.Nil(t, splitIDs(""))
}
