package reminder

import (
	"log/slog"
	"strings"
	"time"
)

// GroupByPhone applies the scheduling policy to the eligible credits and
// buckets the survivors by trimmed contact phone, so a borrower with
// several due credits gets one combined message. The input is expected in
// due-date order; groups come back in first-seen order, which preserves
// that ordering for the dispatcher. Credits without a usable contact are
// dropped with a warning.
func GroupByPhone(credits []Credit, today time.Time, loc *time.Location, logger *slog.Logger) []*RecipientGroup {
	weekday := today.In(loc).Weekday()

	byPhone := make(map[string]*RecipientGroup)
	ordered := make([]*RecipientGroup, 0)

	for _, cr := range credits {
		phone := strings.TrimSpace(cr.Phone)
		if phone == "" {
			logger.Warn("Credit skipped: no contact phone", "credit_id", cr.ID)
			continue
		}

		if cr.DueDate.IsZero() {
			logger.Warn("Credit skipped: missing due date", "credit_id", cr.ID)
			continue
		}
		days := DaysUntilDue(cr.DueDate, today, loc)

		if !ShouldSendToday(weekday, days, cr.ID) {
			continue
		}

		g, ok := byPhone[phone]
		if !ok {
			g = &RecipientGroup{
				Phone:        phone,
				TenantID:     cr.TenantID,
				BorrowerName: cr.BorrowerName,
				TenantName:   cr.TenantName,
				PaymentAlias: cr.PaymentAlias,
			}
			byPhone[phone] = g
			ordered = append(ordered, g)
		}

		if cr.NextVisitDate != nil && SameDay(*cr.NextVisitDate, today, loc) {
			g.VisitToday = true
		}

		g.Credits = append(g.Credits, GroupedCredit{
			CreditID:     cr.ID,
			DaysUntilDue: days,
			TotalDebt:    cr.TotalDebt,
		})
	}

	return ordered
}
