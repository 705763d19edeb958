// Package rollup implements the order-analytics aggregator: folding
// order change events into the per-event rollup document that backs
// the sales dashboards.
package rollup

import (
	"math"

	"github.com/carretedigital/carrete-backend/internal/rollup/normalize"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/enums"
)

// Fold merges one order transition into the rollup document in place.
// The algorithm is revert-then-apply: the before image's full
// contribution is subtracted before the after image's is added, so
// every bucket stays the exact sum of the currently-known order states.
// Replaying the same (before, after) pair converges to the same
// document, which is what makes at-least-once delivery safe.
//
// before is nil on first sight of an order. after must not be nil; the
// service layer skips deletions before reaching the fold.
func Fold(doc *models.EventRollup, before, after *normalize.Order) {
	revertOrder(doc, before)
	applyOrder(doc, after)

	recomputeAvgOrderValue(doc)
	recomputeBuyerProjections(doc)
	upsertRecentOrder(doc, after)
}

func revertOrder(doc *models.EventRollup, o *normalize.Order) {
	if o == nil {
		return
	}
	doc.Summary.TotalPaymentsSeen--

	switch o.Status {
	case enums.OrderStatusPaid:
		doc.Summary.NetRevenue -= o.NetRevenue
		doc.Summary.PaidCount--
		doc.Summary.TicketCount -= o.Quantity
		adjustDay(doc, o.DayKey(), -o.NetRevenue, -1, -o.Quantity)
		adjustTicketType(doc, o.TicketType, -o.Quantity, -o.NetRevenue)
		adjustBuyer(doc, o, -1)
	case enums.OrderStatusFailed:
		doc.Summary.FailedCount--
	default:
		doc.Summary.PendingCount--
	}
}

func applyOrder(doc *models.EventRollup, o *normalize.Order) {
	if o == nil {
		return
	}
	doc.Summary.TotalPaymentsSeen++

	switch o.Status {
	case enums.OrderStatusPaid:
		doc.Summary.NetRevenue += o.NetRevenue
		doc.Summary.PaidCount++
		doc.Summary.TicketCount += o.Quantity
		adjustDay(doc, o.DayKey(), o.NetRevenue, 1, o.Quantity)
		adjustTicketType(doc, o.TicketType, o.Quantity, o.NetRevenue)
		adjustBuyer(doc, o, 1)
	case enums.OrderStatusFailed:
		doc.Summary.FailedCount++
	default:
		doc.Summary.PendingCount++
	}
}

func adjustDay(doc *models.EventRollup, day string, net int64, paid, tickets int) {
	if doc.SeriesDaily == nil {
		doc.SeriesDaily = models.RollupDaily{}
	}
	stat := doc.SeriesDaily[day]
	stat.NetRevenue += net
	stat.PaidCount += paid
	stat.TicketCount += tickets
	if stat == (models.RollupDayStat{}) {
		delete(doc.SeriesDaily, day)
		return
	}
	doc.SeriesDaily[day] = stat
}

func adjustTicketType(doc *models.EventRollup, label string, qty int, net int64) {
	if doc.TicketsByType == nil {
		doc.TicketsByType = models.RollupTicketTypes{}
	}
	stat := doc.TicketsByType[label]
	stat.Qty += qty
	stat.NetRevenue += net
	if stat == (models.RollupTicketStat{}) {
		delete(doc.TicketsByType, label)
		return
	}
	doc.TicketsByType[label] = stat
}

// adjustBuyer moves one paid order in (+1) or out (-1) of a buyer's
// running totals. A buyer's ledger entry reflects only orders currently
// in paid state, so a correction away from paid removes the order
// entirely.
func adjustBuyer(doc *models.EventRollup, o *normalize.Order, direction int) {
	if doc.Buyers.PerBuyer == nil {
		doc.Buyers.PerBuyer = map[string]models.RollupBuyerStat{}
	}
	stat := doc.Buyers.PerBuyer[o.BuyerKey]
	stat.PurchaseCount += direction
	stat.TotalSpent += int64(direction) * o.NetRevenue
	if o.Email != "" {
		stat.Email = o.Email
	}
	if stat.PurchaseCount <= 0 {
		delete(doc.Buyers.PerBuyer, o.BuyerKey)
		return
	}
	doc.Buyers.PerBuyer[o.BuyerKey] = stat
}

func recomputeAvgOrderValue(doc *models.EventRollup) {
	if doc.Summary.PaidCount <= 0 {
		doc.Summary.AvgOrderValue = 0
		return
	}
	doc.Summary.AvgOrderValue = int64(math.Round(
		float64(doc.Summary.NetRevenue) / float64(doc.Summary.PaidCount),
	))
}
