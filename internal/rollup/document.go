package rollup

import (
	"sort"

	"github.com/carretedigital/carrete-backend/internal/rollup/normalize"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
)

// recentOrdersCap bounds the snapshot list carried on the document.
const recentOrdersCap = 300

// topBuyersCap bounds the derived leaderboard.
const topBuyersCap = 20

// recomputeBuyerProjections refreshes the derived buyer stats from the
// per-buyer ledger: unique/repeat counts and the top-spenders list.
func recomputeBuyerProjections(doc *models.EventRollup) {
	doc.Buyers.UniqueCount = len(doc.Buyers.PerBuyer)

	repeat := 0
	top := make([]models.RollupTopBuyer, 0, len(doc.Buyers.PerBuyer))
	for key, stat := range doc.Buyers.PerBuyer {
		if stat.PurchaseCount >= 2 {
			repeat++
		}
		top = append(top, models.RollupTopBuyer{
			BuyerKey:      key,
			PurchaseCount: stat.PurchaseCount,
			TotalSpent:    stat.TotalSpent,
			Email:         stat.Email,
		})
	}
	doc.Buyers.RepeatCount = repeat

	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalSpent != top[j].TotalSpent {
			return top[i].TotalSpent > top[j].TotalSpent
		}
		return top[i].BuyerKey < top[j].BuyerKey
	})
	if len(top) > topBuyersCap {
		top = top[:topBuyersCap]
	}
	doc.Buyers.Top20BySpend = top
}

// upsertRecentOrder replaces any prior snapshot for the same order id
// with the order's latest state, keeps the list newest-first, and
// truncates it to the cap.
func upsertRecentOrder(doc *models.EventRollup, o *normalize.Order) {
	if o == nil || o.OrderID == "" {
		return
	}

	kept := make(models.RollupRecentOrders, 0, len(doc.RecentOrders)+1)
	for _, snap := range doc.RecentOrders {
		if snap.OrderID != o.OrderID {
			kept = append(kept, snap)
		}
	}
	kept = append(kept, models.RollupOrderSnapshot{
		OrderID:   o.OrderID,
		PaymentID: o.PaymentID,
		Status:    string(o.Status),
		Net:       o.NetRevenue,
		CreatedAt: o.ReferenceTS,
	})

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	if len(kept) > recentOrdersCap {
		kept = kept[:recentOrdersCap]
	}
	doc.RecentOrders = kept
}
