package reminder

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testPromoPolicy(t *testing.T) PromoPolicy {
	loc := buenosAires(t)
	return PromoPolicy{
		TenantID:       1,
		Start:          time.Date(2026, 1, 1, 0, 0, 0, 0, loc),
		End:            time.Date(2026, 3, 31, 0, 0, 0, 0, loc),
		MinBalance:     decimal.NewFromInt(200000),
		MinDaysOverdue: 20,
		Location:       loc,
	}
}

func TestPromoPolicy_Eligible(t *testing.T) {
	p := testPromoPolicy(t)
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, p.Location)

	tests := []struct {
		name     string
		tenantID int64
		days     int
		balance  int64
		want     bool
	}{
		{"qualifies at thresholds", 1, -20, 200000, true},
		{"well past thresholds", 1, -1298, 500000, true},
		{"balance one peso short", 1, -20, 199999, false},
		{"one day of overdue short", 1, -19, 200000, false},
		{"wrong tenant", 2, -20, 200000, false},
		{"not overdue at all", 1, 0, 200000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Eligible(tt.tenantID, tt.days, decimal.NewFromInt(tt.balance), today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromoPolicy_WindowOpen(t *testing.T) {
	p := testPromoPolicy(t)

	assert.True(t, p.WindowOpen(time.Date(2026, 1, 1, 0, 0, 0, 0, p.Location)), "start date is inclusive")
	assert.True(t, p.WindowOpen(time.Date(2026, 3, 30, 23, 0, 0, 0, p.Location)))
	assert.False(t, p.WindowOpen(time.Date(2026, 3, 31, 0, 0, 0, 0, p.Location)), "end date is exclusive")
	assert.False(t, p.WindowOpen(time.Date(2025, 12, 31, 23, 0, 0, 0, p.Location)))

	closed := PromoPolicy{TenantID: 1, Location: p.Location}
	assert.False(t, closed.WindowOpen(time.Date(2026, 2, 1, 0, 0, 0, 0, p.Location)), "unconfigured window never opens")
}

func TestPromoPolicy_Countdown(t *testing.T) {
	p := testPromoPolicy(t)

	tests := []struct {
		day    time.Time
		active bool
	}{
		{time.Date(2026, 3, 21, 12, 0, 0, 0, p.Location), true},  // 10 days left
		{time.Date(2026, 3, 26, 12, 0, 0, 0, p.Location), true},  // 5 days left
		{time.Date(2026, 3, 30, 12, 0, 0, 0, p.Location), true},  // last day
		{time.Date(2026, 3, 20, 12, 0, 0, 0, p.Location), false}, // 11 days left
		{time.Date(2026, 3, 27, 12, 0, 0, 0, p.Location), false}, // 4 days left
	}
	for _, tt := range tests {
		assert.Equal(t, tt.active, p.CountdownActive(tt.day), tt.day.Format("2006-01-02"))
	}

	assert.Equal(t, 5, p.DaysRemaining(time.Date(2026, 3, 26, 12, 0, 0, 0, p.Location)))
}

func TestSettlementAmount(t *testing.T) {
	assert.Equal(t, "100000", SettlementAmount(decimal.NewFromInt(200000)).String())
	assert.Equal(t, "100001", SettlementAmount(decimal.NewFromInt(200001)).String(), "rounds to the nearest peso")
	assert.Equal(t, "9750", SettlementAmount(decimal.NewFromInt(19500)).String())
}
