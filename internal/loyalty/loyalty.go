// Package loyalty вычисляет сумму оплаченных покупок клиента за скользящее окно
// и признак применимости программы фиделизации.
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
)

// WindowDays задаёт длину скользящего окна в днях.
const WindowDays = 30

// Threshold задаёт сумму, которую клиент должен строго превысить за окно.
var Threshold = decimal.RequireFromString("5000000.00")

// Result содержит вычисленные поля фиделизации для одного клиента.
type Result struct {
	Customer model.Customer
	// LastMonthTotal никогда не бывает «пустым»: без покупок это 0.00.
	LastMonthTotal decimal.Decimal
	Qualifies      bool
}

// WindowStart возвращает нижнюю (включительную) границу окна для момента now.
func WindowStart(now time.Time) time.Time {
	return now.Add(-WindowDays * 24 * time.Hour)
}

// InWindow сообщает, попадает ли момент t в окно [now − 30 дней, now].
func InWindow(t, now time.Time) bool {
	return !t.Before(WindowStart(now)) && !t.After(now)
}

// Qualifies сообщает, превышает ли сумма порог фиделизации.
func Qualifies(total decimal.Decimal) bool {
	return total.GreaterThan(Threshold)
}

// Total суммирует поле Total оплаченных покупок, попадающих в окно.
func Total(purchases []model.Purchase, now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range purchases {
		if p.Status != model.PurchaseStatusPaid {
			continue
		}
		if !InWindow(p.PurchasedAt, now) {
			continue
		}
		sum = sum.Add(p.Total)
	}
	return sum
}

// Annotate дополняет каждого клиента суммой за окно и признаком фиделизации.
// Порядок клиентов сохраняется, каждый клиент присутствует ровно один раз.
func Annotate(customers []model.Customer, now time.Time) []Result {
	res := make([]Result, 0, len(customers))
	for _, c := range customers {
		total := Total(c.Purchases, now)
		res = append(res, Result{
			Customer:       c,
			LastMonthTotal: total,
			Qualifies:      Qualifies(total),
		})
	}
	return res
}
