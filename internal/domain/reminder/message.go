package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dedent strips the common leading indentation of a multi-line block and
// drops the surrounding blank lines, so message templates can live
// indented in source without leaking that indentation into the outbound
// text. Embedded blank lines are preserved. Residual leading whitespace
// left over from interpolated blocks is stripped as well.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent < 0 {
		indent = 0
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= indent {
			line = line[indent:]
		}
		line = strings.TrimLeft(line, " \t")
		out[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(out, "\n")
}

// FormatAmount renders a balance the way borrowers read it: whole pesos
// with a dot as thousands separator ("19.500").
func FormatAmount(amount decimal.Decimal) string {
	digits := amount.Round(0).String()

	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Composer renders the outbound reminder text for a recipient group.
type Composer struct {
	linkBaseURL string
	promo       PromoPolicy
}

func NewComposer(linkBaseURL string, promo PromoPolicy) *Composer {
	return &Composer{linkBaseURL: linkBaseURL, promo: promo}
}

// Link builds the per-credit summary link every variant ends with.
func (c *Composer) Link(creditID int64) string {
	return c.linkBaseURL + strconv.FormatInt(creditID, 10)
}

// Compose picks the message variant for a group. The visit-today notice
// replaces the regular reminder outright; groups with more than one credit
// get the combined variant; a lone credit gets one of the single variants.
func (c *Composer) Compose(g *RecipientGroup, today time.Time) string {
	if g.VisitToday {
		return VisitTodayMessage(g.BorrowerName)
	}
	if len(g.Credits) > 1 {
		return c.composeGrouped(g, today)
	}
	return c.composeSingle(g, g.Credits[0], today)
}

// VisitTodayMessage is sent instead of a reminder when the collector is
// scheduled to pass by the borrower's home today.
func VisitTodayMessage(name string) string {
	return Dedent(fmt.Sprintf(`
		Hola %s, nuestro motorizado pasará por *tu casa hoy* 🏠👈🏍️ por la cuota, si tienes alguna preferencia de hora dínosla para evitar que no te encontremos.
	`, name))
}

// paymentMethods renders the payment options block. The bank-transfer
// entry only appears when the tenant has a payment alias configured.
func paymentMethods(alias string) string {
	if alias == "" {
		return Dedent(`
			*Formas de pago*
			- RapiPago
			- PagoFácil
			- Saldo MercadoPago
		`)
	}
	return Dedent(fmt.Sprintf(`
		*Formas de pago*
		- RapiPago
		- PagoFácil
		- Saldo MercadoPago
		- Transferencia
		%s

		📎 Luego de pagar, podés *responder este mensaje con el comprobante*.
	`, alias))
}

func countdownLine(daysRemaining int) string {
	if daysRemaining == 1 {
		return "⏳ _Queda solo 1 día de promo, ¡aprovechala!_"
	}
	return fmt.Sprintf("⏳ _Quedan solo %d días de promo, ¡aprovechala!_", daysRemaining)
}

// promoBlock renders the discounted-settlement offer for one qualifying
// credit, with the window countdown line when a threshold day is hit.
func (c *Composer) promoBlock(alias string, cr GroupedCredit, today time.Time) string {
	settlement := SettlementAmount(cr.TotalDebt)

	var b strings.Builder
	b.WriteString(Dedent(fmt.Sprintf(`
		Cancelá tu cuenta con el *50%% de la deuda total*

		💰 Deuda actual: $%s
		🔥 Promo cancelatoria: $%s
	`, FormatAmount(cr.TotalDebt), FormatAmount(settlement))))

	if alias != "" {
		b.WriteString("\n\n")
		b.WriteString(Dedent(fmt.Sprintf(`
			Transferí $%s
			Alias: *%s*
		`, FormatAmount(settlement), alias)))
	}

	b.WriteString("\n\n🔒 _No se reciben pagos parciales para aplicar a la promoción_")

	if c.promo.CountdownActive(today) {
		b.WriteString("\n\n")
		b.WriteString(countdownLine(c.promo.DaysRemaining(today)))
	}
	return b.String()
}

func (c *Composer) composeSingle(g *RecipientGroup, cr GroupedCredit, today time.Time) string {
	link := c.Link(cr.CreditID)

	if c.promo.Eligible(g.TenantID, cr.DaysUntilDue, cr.TotalDebt, today) {
		return Dedent(fmt.Sprintf(`
			*SUPER PROMO CANCELATORIO* 🥳
			%s

			%s

			👉 Ver resumen:
			%s
		`, g.BorrowerName, c.promoBlock(g.PaymentAlias, cr, today), link))
	}

	var body string
	switch {
	case cr.DaysUntilDue < 0:
		body = Dedent(fmt.Sprintf(`
			*CUOTA VENCIDA* 🚨
			%s

			Tu cuota se encuentra vencida.
			%s
			Deuda: $%s
		`, g.BorrowerName, DueStatusLine(cr.DaysUntilDue), FormatAmount(cr.TotalDebt)))
	case cr.DaysUntilDue == 0:
		body = Dedent(fmt.Sprintf(`
			*RECORDATORIO*
			%s
			Tu cuota vence *HOY* 👀
		`, g.BorrowerName))
	case cr.DaysUntilDue == 1:
		body = Dedent(fmt.Sprintf(`
			*RECORDATORIO*
			%s
			Tu cuota vence *mañana* 😅
		`, g.BorrowerName))
	default:
		body = Dedent(fmt.Sprintf(`
			*RECORDATORIO*
			%s
			Tu cuota vence en %d días 🙂
		`, g.BorrowerName, cr.DaysUntilDue))
	}

	return Dedent(fmt.Sprintf(`
		%s

		%s

		👉 Ver resumen:
		%s
	`, body, paymentMethods(g.PaymentAlias), link))
}

func (c *Composer) composeGrouped(g *RecipientGroup, today time.Time) string {
	var credits strings.Builder
	var promoCredit *GroupedCredit

	for i, cr := range g.Credits {
		if i > 0 {
			credits.WriteString("\n\n")
		}
		credits.WriteString(Dedent(fmt.Sprintf(`
			• Crédito #%d
			%s
			Deuda: $%s
			%s
		`, cr.CreditID, DueStatusLine(cr.DaysUntilDue), FormatAmount(cr.TotalDebt), c.Link(cr.CreditID))))

		if promoCredit == nil && c.promo.Eligible(g.TenantID, cr.DaysUntilDue, cr.TotalDebt, today) {
			p := cr
			promoCredit = &p
		}
	}

	msg := Dedent(fmt.Sprintf(`
		*RECORDATORIO*
		%s

		Tenés %d crédito(s) para revisar:

		%s

		%s
	`, g.BorrowerName, len(g.Credits), credits.String(), paymentMethods(g.PaymentAlias)))

	if promoCredit != nil && c.promo.CountdownActive(today) {
		msg += "\n\n*SUPER PROMO CANCELATORIO* 🥳\n\n" + c.promoBlock(g.PaymentAlias, *promoCredit, today)
	}
	return msg
}
