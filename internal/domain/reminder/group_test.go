package reminder

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGroupByPhone_CombinesCreditsPerContact(t *testing.T) {
	loc := buenosAires(t)
	// A Saturday, so odd credit ids are on rotation and urgent credits
	// always pass.
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, loc)

	credits := []Credit{
		{
			ID: 101, TenantID: 2, BorrowerName: "Juan Pérez", Phone: "3815551111",
			DueDate:   time.Date(2026, 2, 28, 0, 0, 0, 0, loc),
			TotalDebt: decimal.NewFromInt(19500),
		},
		{
			ID: 103, TenantID: 2, BorrowerName: "Juan Pérez", Phone: " 3815551111 ",
			DueDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, loc),
			TotalDebt: decimal.NewFromInt(8000),
		},
		{
			ID: 205, TenantID: 2, BorrowerName: "Ana López", Phone: "3815552222",
			DueDate:   time.Date(2026, 2, 27, 0, 0, 0, 0, loc),
			TotalDebt: decimal.NewFromInt(40000),
		},
	}

	groups := GroupByPhone(credits, today, loc, testLogger())
	require.Len(t, groups, 2)

	assert.Equal(t, "3815551111", groups[0].Phone, "groups come back in first-seen order")
	assert.Equal(t, "Juan Pérez", groups[0].BorrowerName)
	require.Len(t, groups[0].Credits, 2)
	assert.Equal(t, int64(101), groups[0].Credits[0].CreditID)
	assert.Equal(t, 0, groups[0].Credits[0].DaysUntilDue)
	assert.Equal(t, int64(103), groups[0].Credits[1].CreditID)
	assert.Equal(t, 1, groups[0].Credits[1].DaysUntilDue)

	assert.Equal(t, "3815552222", groups[1].Phone)
	require.Len(t, groups[1].Credits, 1)
	assert.Equal(t, -1, groups[1].Credits[0].DaysUntilDue)
}

func TestGroupByPhone_AppliesRotation(t *testing.T) {
	loc := buenosAires(t)
	// A Tuesday: only odd credit ids are on rotation for non-urgent due
	// dates.
	today := time.Date(2026, 2, 24, 12, 0, 0, 0, loc)
	due := time.Date(2026, 2, 28, 0, 0, 0, 0, loc)

	credits := []Credit{
		{ID: 1651673430, Phone: "3815551111", DueDate: due, TotalDebt: decimal.NewFromInt(1000)},
		{ID: 1651673431, Phone: "3815552222", DueDate: due, TotalDebt: decimal.NewFromInt(1000)},
	}

	groups := GroupByPhone(credits, today, loc, testLogger())
	require.Len(t, groups, 1)
	assert.Equal(t, int64(1651673431), groups[0].Credits[0].CreditID)
}

func TestGroupByPhone_SkipsUnusableCredits(t *testing.T) {
	loc := buenosAires(t)
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, loc)

	credits := []Credit{
		{ID: 1, Phone: "   ", DueDate: today, TotalDebt: decimal.NewFromInt(1000)},
		{ID: 2, Phone: "3815551111", TotalDebt: decimal.NewFromInt(1000)},
	}

	assert.Empty(t, GroupByPhone(credits, today, loc, testLogger()))
}

func TestGroupByPhone_VisitToday(t *testing.T) {
	loc := buenosAires(t)
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, loc)

	visit := time.Date(2026, 2, 28, 0, 0, 0, 0, loc)
	later := time.Date(2026, 3, 5, 0, 0, 0, 0, loc)

	credits := []Credit{
		{ID: 101, Phone: "3815551111", DueDate: today, TotalDebt: decimal.NewFromInt(1000), NextVisitDate: &visit},
		{ID: 205, Phone: "3815552222", DueDate: today, TotalDebt: decimal.NewFromInt(1000), NextVisitDate: &later},
	}

	groups := GroupByPhone(credits, today, loc, testLogger())
	require.Len(t, groups, 2)
	assert.True(t, groups[0].VisitToday)
	assert.False(t, groups[1].VisitToday)
}
