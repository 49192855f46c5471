package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLinkBase = "https://cuotafacil.com/cuotas.php?id="

func TestDedent(t *testing.T) {
	got := Dedent(`
		*RECORDATORIO*
		Juan

		Tu cuota vence *HOY* 👀
	`)
	want := "*RECORDATORIO*\nJuan\n\nTu cuota vence *HOY* 👀"
	assert.Equal(t, want, got)

	for _, line := range strings.Split(got, "\n") {
		assert.Equal(t, strings.TrimLeft(line, " \t"), line, "no residual indentation")
	}

	assert.Equal(t, "", Dedent("\n\t\t\n"))
	assert.Equal(t, "a\nb", Dedent("a\nb"))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0"},
		{500, "500"},
		{19500, "19.500"},
		{200000, "200.000"},
		{1234567, "1.234.567"},
		{-19500, "-19.500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(decimal.NewFromInt(tt.amount)))
	}
}

func TestVisitTodayMessage(t *testing.T) {
	msg := VisitTodayMessage("Juan Pérez")
	assert.Contains(t, msg, "Juan Pérez")
	assert.Contains(t, msg, "*tu casa hoy*")
}

func TestCompose_SingleOverdue(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		Phone:        "3815551111",
		TenantID:     2,
		BorrowerName: "Juan Pérez",
		Credits: []GroupedCredit{
			{CreditID: 1651673431, DaysUntilDue: -1298, TotalDebt: decimal.NewFromInt(19500)},
		},
	}
	msg := c.Compose(g, today)

	assert.Contains(t, msg, "*CUOTA VENCIDA* 🚨")
	assert.Contains(t, msg, "Juan Pérez")
	assert.Contains(t, msg, "Vencido hace 1298 días")
	assert.Contains(t, msg, "Deuda: $19.500")
	assert.Contains(t, msg, "👉 Ver resumen:\n"+testLinkBase+"1651673431")
	assert.NotContains(t, msg, "Transferencia", "no bank transfer option without an alias")
	assert.NotContains(t, msg, "comprobante")
}

func TestCompose_SingleDueToday_WithAlias(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		Phone:        "3815551111",
		TenantID:     2,
		BorrowerName: "Ana",
		PaymentAlias: "prestamos.cuota",
		Credits: []GroupedCredit{
			{CreditID: 42, DaysUntilDue: 0, TotalDebt: decimal.NewFromInt(12000)},
		},
	}
	msg := c.Compose(g, today)

	assert.Contains(t, msg, "Tu cuota vence *HOY* 👀")
	assert.Contains(t, msg, "- Transferencia")
	assert.Contains(t, msg, "prestamos.cuota")
	assert.Contains(t, msg, "responder este mensaje con el comprobante")
}

func TestCompose_SingleDueSoon(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     2,
		BorrowerName: "Ana",
		Credits:      []GroupedCredit{{CreditID: 42, DaysUntilDue: 1, TotalDebt: decimal.NewFromInt(12000)}},
	}
	assert.Contains(t, c.Compose(g, today), "Tu cuota vence *mañana* 😅")

	g.Credits[0].DaysUntilDue = 4
	assert.Contains(t, c.Compose(g, today), "Tu cuota vence en 4 días 🙂")
}

func TestCompose_PromoVariant(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     1,
		BorrowerName: "Juan Pérez",
		PaymentAlias: "prestamos.cuota",
		Credits: []GroupedCredit{
			{CreditID: 1651673431, DaysUntilDue: -1298, TotalDebt: decimal.NewFromInt(250000)},
		},
	}
	msg := c.Compose(g, today)

	require.True(t, strings.HasPrefix(msg, "*SUPER PROMO CANCELATORIO* 🥳\nJuan Pérez"))
	assert.Contains(t, msg, "💰 Deuda actual: $250.000")
	assert.Contains(t, msg, "🔥 Promo cancelatoria: $125.000")
	assert.Contains(t, msg, "Transferí $125.000")
	assert.Contains(t, msg, "Alias: *prestamos.cuota*")
	assert.Contains(t, msg, "No se reciben pagos parciales")
	assert.NotContains(t, msg, "*CUOTA VENCIDA*")
	assert.NotContains(t, msg, "Quedan solo", "no countdown line outside threshold days")
}

func TestCompose_PromoCountdownLine(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	// 5 days before the window closes.
	today := time.Date(2026, 3, 26, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     1,
		BorrowerName: "Juan",
		Credits: []GroupedCredit{
			{CreditID: 7, DaysUntilDue: -30, TotalDebt: decimal.NewFromInt(300000)},
		},
	}
	assert.Contains(t, c.Compose(g, today), "Quedan solo 5 días de promo")

	today = time.Date(2026, 3, 30, 12, 0, 0, 0, buenosAires(t))
	assert.Contains(t, c.Compose(g, today), "Queda solo 1 día de promo")
}

func TestCompose_Grouped(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     2,
		BorrowerName: "Juan Pérez",
		Credits: []GroupedCredit{
			{CreditID: 100, DaysUntilDue: -3, TotalDebt: decimal.NewFromInt(19500)},
			{CreditID: 200, DaysUntilDue: 2, TotalDebt: decimal.NewFromInt(8000)},
		},
	}
	msg := c.Compose(g, today)

	assert.Contains(t, msg, "Tenés 2 crédito(s) para revisar:")
	assert.Contains(t, msg, "• Crédito #100")
	assert.Contains(t, msg, "Vencido hace 3 días")
	assert.Contains(t, msg, "• Crédito #200")
	assert.Contains(t, msg, "Vence en 2 días")
	assert.Contains(t, msg, testLinkBase+"100")
	assert.Contains(t, msg, testLinkBase+"200")
	assert.NotContains(t, msg, "SUPER PROMO")
}

func TestCompose_GroupedPromoOnCountdownDay(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	// 3 days before the window closes, a countdown threshold.
	today := time.Date(2026, 3, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     1,
		BorrowerName: "Juan",
		Credits: []GroupedCredit{
			{CreditID: 100, DaysUntilDue: -40, TotalDebt: decimal.NewFromInt(260000)},
			{CreditID: 200, DaysUntilDue: 1, TotalDebt: decimal.NewFromInt(8000)},
		},
	}
	msg := c.Compose(g, today)

	assert.Contains(t, msg, "*SUPER PROMO CANCELATORIO* 🥳")
	assert.Contains(t, msg, "🔥 Promo cancelatoria: $130.000")
	assert.Contains(t, msg, "Quedan solo 3 días de promo")
}

func TestCompose_VisitTodayWins(t *testing.T) {
	c := NewComposer(testLinkBase, testPromoPolicy(t))
	today := time.Date(2026, 2, 28, 12, 0, 0, 0, buenosAires(t))

	g := &RecipientGroup{
		TenantID:     1,
		BorrowerName: "Juan",
		VisitToday:   true,
		Credits: []GroupedCredit{
			{CreditID: 100, DaysUntilDue: -40, TotalDebt: decimal.NewFromInt(260000)},
		},
	}
	msg := c.Compose(g, today)
	assert.Contains(t, msg, "motorizado pasará por *tu casa hoy*")
	assert.NotContains(t, msg, "SUPER PROMO")
}
