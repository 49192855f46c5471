package reminder

import (
	"time"

	"github.com/shopspring/decimal"
)

// Countdown thresholds: days remaining in the promo window at which the
// urgency line is added to the message.
var promoCountdownDays = []int{10, 5, 3, 2, 1}

// PromoPolicy is the time-boxed discounted-settlement promotion. It holds
// only derived rules; nothing about a promotion is persisted. The window
// start is inclusive and the end exclusive, compared as calendar dates in
// the engine's time zone.
type PromoPolicy struct {
	TenantID       int64
	Start          time.Time
	End            time.Time
	MinBalance     decimal.Decimal
	MinDaysOverdue int
	Location       *time.Location
}

// WindowOpen reports whether the promo window is open on the given day.
// A policy without configured dates is permanently closed.
func (p PromoPolicy) WindowOpen(today time.Time) bool {
	if p.Start.IsZero() || p.End.IsZero() {
		return false
	}
	day := DateOnly(today, p.Location)
	return !day.Before(DateOnly(p.Start, p.Location)) && day.Before(DateOnly(p.End, p.Location))
}

// Eligible reports whether a single credit qualifies for the promotion.
func (p PromoPolicy) Eligible(tenantID int64, daysUntilDue int, balance decimal.Decimal, today time.Time) bool {
	if tenantID != p.TenantID {
		return false
	}
	if !p.WindowOpen(today) {
		return false
	}
	daysOverdue := -daysUntilDue
	if daysOverdue < p.MinDaysOverdue {
		return false
	}
	return balance.GreaterThanOrEqual(p.MinBalance)
}

// DaysRemaining returns how many whole days of the promo window are left,
// counting today. Zero or negative means the window is closed.
func (p PromoPolicy) DaysRemaining(today time.Time) int {
	if p.End.IsZero() {
		return 0
	}
	return DaysUntilDue(p.End, today, p.Location)
}

// CountdownActive reports whether today hits one of the countdown
// thresholds.
func (p PromoPolicy) CountdownActive(today time.Time) bool {
	remaining := p.DaysRemaining(today)
	for _, d := range promoCountdownDays {
		if remaining == d {
			return true
		}
	}
	return false
}

// SettlementAmount computes the promotional settlement offer: half of the
// outstanding balance, rounded to the nearest currency unit.
func SettlementAmount(balance decimal.Decimal) decimal.Decimal {
	return balance.Div(decimal.NewFromInt(2)).Round(0)
}
