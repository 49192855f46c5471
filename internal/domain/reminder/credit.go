package reminder

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit is one borrower's outstanding loan obligation as returned by the
// eligibility query: the credit row joined with its borrower and tenant.
// The engine only ever writes the reminder lock and the last-notified
// timestamp; everything else is owned by the system of record.
type Credit struct {
	ID            int64
	TenantID      int64
	BorrowerID    int64
	BorrowerName  string
	Phone         string
	TenantName    string
	PaymentAlias  string
	DueDate       time.Time
	TotalDebt     decimal.Decimal
	NextVisitDate *time.Time
}

// Tenant carries the per-tenant reminder settings read at the start of
// each run.
type Tenant struct {
	ID              int64
	Name            string
	ReminderEnabled bool
	PaymentAlias    string
}

// GroupedCredit is the per-credit projection kept inside a recipient group.
type GroupedCredit struct {
	CreditID     int64
	DaysUntilDue int
	TotalDebt    decimal.Decimal
}

// RecipientGroup aggregates every eligible credit that shares a contact
// phone so the borrower receives a single combined message per run.
// Groups are ephemeral; they are rebuilt from scratch on every run.
type RecipientGroup struct {
	Phone        string
	TenantID     int64
	BorrowerName string
	TenantName   string
	PaymentAlias string
	VisitToday   bool
	Credits      []GroupedCredit
}

// CreditIDs returns the ids of the grouped credits in due-date order.
func (g *RecipientGroup) CreditIDs() []int64 {
	ids := make([]int64, 0, len(g.Credits))
	for _, c := range g.Credits {
		ids = append(ids, c.CreditID)
	}
	return ids
}

// OutboundMessage is the persisted record of a message the engine sent.
type OutboundMessage struct {
	TenantID   int64
	MessageID  string
	To         string
	Body       string
	OperatorID int64
	SentAt     time.Time
}
