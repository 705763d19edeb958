package rollup

import (
	"fmt"
	"testing"
	"time"

	"github.com/carretedigital/carrete-backend/internal/rollup/normalize"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var foldBase = time.Date(2025, 8, 11, 20, 0, 0, 0, time.UTC)

func testOrder(orderID string, status enums.OrderStatus, net int64, qty int) *normalize.Order {
	return &normalize.Order{
		OrderID:     orderID,
		EventID:     "E1",
		Status:      status,
		NetRevenue:  net,
		Quantity:    qty,
		ReferenceTS: foldBase,
		TicketType:  "General",
		BuyerKey:    "buyer-" + orderID,
	}
}

func checkCounterIdentity(t *testing.T, doc *models.EventRollup) {
	t.Helper()
	s := doc.Summary
	assert.Equal(t, s.TotalPaymentsSeen, s.PaidCount+s.FailedCount+s.PendingCount,
		"paid+failed+pending must equal totalPaymentsSeen")
}

func TestFoldFirstSightPending(t *testing.T) {
	// Scenario: first write of a pending order contributes only to the
	// pending counter, never to revenue or tickets.
	doc := models.NewEventRollup("E1")
	o1 := testOrder("O1", enums.OrderStatusPending, 20000, 2)

	Fold(doc, nil, o1)

	assert.Equal(t, int64(0), doc.Summary.NetRevenue)
	assert.Equal(t, 0, doc.Summary.PaidCount)
	assert.Equal(t, 1, doc.Summary.PendingCount)
	assert.Equal(t, 0, doc.Summary.TicketCount)
	assert.Equal(t, 1, doc.Summary.TotalPaymentsSeen)
	assert.Empty(t, doc.SeriesDaily)
	assert.Empty(t, doc.TicketsByType)
	assert.Empty(t, doc.Buyers.PerBuyer)
	checkCounterIdentity(t, doc)
}

func TestFoldPendingToPaid(t *testing.T) {
	doc := models.NewEventRollup("E1")
	pending := testOrder("O1", enums.OrderStatusPending, 20000, 2)
	paid := testOrder("O1", enums.OrderStatusPaid, 20000, 2)

	Fold(doc, nil, pending)
	Fold(doc, pending, paid)

	assert.Equal(t, int64(20000), doc.Summary.NetRevenue)
	assert.Equal(t, 1, doc.Summary.PaidCount)
	assert.Equal(t, 0, doc.Summary.PendingCount)
	assert.Equal(t, 2, doc.Summary.TicketCount)
	assert.Equal(t, int64(20000), doc.Summary.AvgOrderValue)
	assert.Equal(t, 1, doc.Summary.TotalPaymentsSeen)

	day := doc.SeriesDaily["2025-08-11"]
	assert.Equal(t, int64(20000), day.NetRevenue)
	assert.Equal(t, 1, day.PaidCount)
	assert.Equal(t, 2, day.TicketCount)

	ticket := doc.TicketsByType["General"]
	assert.Equal(t, 2, ticket.Qty)
	assert.Equal(t, int64(20000), ticket.NetRevenue)
	checkCounterIdentity(t, doc)
}

func TestFoldPaidCorrectedToFailed(t *testing.T) {
	// A paid order corrected to failed must be fully un-counted,
	// emptying the day and ticket buckets it populated.
	doc := models.NewEventRollup("E1")
	pending := testOrder("O1", enums.OrderStatusPending, 20000, 2)
	paid := testOrder("O1", enums.OrderStatusPaid, 20000, 2)
	failed := testOrder("O1", enums.OrderStatusFailed, 20000, 2)

	Fold(doc, nil, pending)
	Fold(doc, pending, paid)
	Fold(doc, paid, failed)

	assert.Equal(t, int64(0), doc.Summary.NetRevenue)
	assert.Equal(t, 0, doc.Summary.PaidCount)
	assert.Equal(t, 1, doc.Summary.FailedCount)
	assert.Equal(t, 0, doc.Summary.TicketCount)
	assert.Equal(t, int64(0), doc.Summary.AvgOrderValue)
	assert.Equal(t, 1, doc.Summary.TotalPaymentsSeen)
	assert.Empty(t, doc.SeriesDaily)
	assert.Empty(t, doc.TicketsByType)
	assert.Empty(t, doc.Buyers.PerBuyer)
	checkCounterIdentity(t, doc)
}

func TestFoldGrossOnlyPaidOrder(t *testing.T) {
	// Orders carrying only a gross amount net out the 12% service fee
	// in the normalizer; the fold just sums what it is handed.
	o := testOrder("O2", enums.OrderStatusPaid, normalize.NetRevenue(map[string]any{"amount": float64(11200)}), 1)
	require.Equal(t, int64(10000), o.NetRevenue)

	doc := models.NewEventRollup("E1")
	Fold(doc, nil, o)
	assert.Equal(t, int64(10000), doc.Summary.NetRevenue)
}

func TestFoldRecentOrdersBoundAndEviction(t *testing.T) {
	doc := models.NewEventRollup("E1")
	for i := 0; i <= 300; i++ {
		o := testOrder(fmt.Sprintf("ord-%03d", i), enums.OrderStatusPaid, 1000, 1)
		o.ReferenceTS = foldBase.Add(time.Duration(i) * time.Minute)
		Fold(doc, nil, o)
	}

	require.Len(t, doc.RecentOrders, 300)
	assert.Equal(t, "ord-300", doc.RecentOrders[0].OrderID)
	assert.Equal(t, "ord-001", doc.RecentOrders[299].OrderID)
	for _, snap := range doc.RecentOrders {
		assert.NotEqual(t, "ord-000", snap.OrderID, "oldest snapshot should be evicted")
	}
}

func TestFoldRecentOrdersDedupeByOrderID(t *testing.T) {
	doc := models.NewEventRollup("E1")
	pending := testOrder("O1", enums.OrderStatusPending, 5000, 1)
	paid := testOrder("O1", enums.OrderStatusPaid, 5000, 1)

	Fold(doc, nil, pending)
	Fold(doc, pending, paid)

	require.Len(t, doc.RecentOrders, 1)
	assert.Equal(t, "paid", doc.RecentOrders[0].Status)
}

func TestFoldIdempotentReplay(t *testing.T) {
	// Replaying an identical transition converges: the revert undoes
	// exactly what the duplicate apply re-adds.
	pending := testOrder("O1", enums.OrderStatusPending, 20000, 2)
	paid := testOrder("O1", enums.OrderStatusPaid, 20000, 2)

	once := models.NewEventRollup("E1")
	Fold(once, nil, pending)
	Fold(once, pending, paid)

	twice := models.NewEventRollup("E1")
	Fold(twice, nil, pending)
	Fold(twice, pending, paid)
	Fold(twice, paid, paid)

	assert.Equal(t, once.Summary, twice.Summary)
	assert.Equal(t, once.SeriesDaily, twice.SeriesDaily)
	assert.Equal(t, once.TicketsByType, twice.TicketsByType)
	assert.Equal(t, once.Buyers, twice.Buyers)
	checkCounterIdentity(t, twice)
}

func TestFoldIntermediateStatesLeaveNoResidue(t *testing.T) {
	direct := models.NewEventRollup("E1")
	stepped := models.NewEventRollup("E1")

	s0 := testOrder("O1", enums.OrderStatusPending, 8000, 1)
	s1 := testOrder("O1", enums.OrderStatusPaid, 8000, 1)
	s2 := testOrder("O1", enums.OrderStatusFailed, 8000, 1)
	s3 := testOrder("O1", enums.OrderStatusPaid, 9000, 2)

	Fold(direct, nil, s3)

	Fold(stepped, nil, s0)
	Fold(stepped, s0, s1)
	Fold(stepped, s1, s2)
	Fold(stepped, s2, s3)

	assert.Equal(t, direct.Summary, stepped.Summary)
	assert.Equal(t, direct.SeriesDaily, stepped.SeriesDaily)
	assert.Equal(t, direct.TicketsByType, stepped.TicketsByType)
	assert.Equal(t, direct.Buyers, stepped.Buyers)
}

func TestFoldAvgOrderValueRounding(t *testing.T) {
	doc := models.NewEventRollup("E1")
	Fold(doc, nil, testOrder("O1", enums.OrderStatusPaid, 1000, 1))
	Fold(doc, nil, testOrder("O2", enums.OrderStatusPaid, 1001, 1))

	// 2001 / 2 = 1000.5, rounds half away from zero.
	assert.Equal(t, int64(1001), doc.Summary.AvgOrderValue)
}

func TestFoldBuyerLedger(t *testing.T) {
	doc := models.NewEventRollup("E1")

	a1 := testOrder("O1", enums.OrderStatusPaid, 5000, 1)
	a1.BuyerKey = "alice"
	a1.Email = "alice@example.com"
	a2 := testOrder("O2", enums.OrderStatusPaid, 7000, 1)
	a2.BuyerKey = "alice"
	b1 := testOrder("O3", enums.OrderStatusPaid, 4000, 1)
	b1.BuyerKey = "bob"

	Fold(doc, nil, a1)
	Fold(doc, nil, a2)
	Fold(doc, nil, b1)

	assert.Equal(t, 2, doc.Buyers.UniqueCount)
	assert.Equal(t, 1, doc.Buyers.RepeatCount)
	alice := doc.Buyers.PerBuyer["alice"]
	assert.Equal(t, 2, alice.PurchaseCount)
	assert.Equal(t, int64(12000), alice.TotalSpent)
	assert.Equal(t, "alice@example.com", alice.Email)

	require.Len(t, doc.Buyers.Top20BySpend, 2)
	assert.Equal(t, "alice", doc.Buyers.Top20BySpend[0].BuyerKey)
	assert.Equal(t, "bob", doc.Buyers.Top20BySpend[1].BuyerKey)

	// Correcting one of alice's orders away from paid shrinks her
	// ledger entry; correcting the other removes her entirely.
	a2Failed := testOrder("O2", enums.OrderStatusFailed, 7000, 1)
	a2Failed.BuyerKey = "alice"
	Fold(doc, a2, a2Failed)
	assert.Equal(t, 0, doc.Buyers.RepeatCount)
	assert.Equal(t, int64(5000), doc.Buyers.PerBuyer["alice"].TotalSpent)

	a1Failed := testOrder("O1", enums.OrderStatusFailed, 5000, 1)
	a1Failed.BuyerKey = "alice"
	Fold(doc, a1, a1Failed)
	_, ok := doc.Buyers.PerBuyer["alice"]
	assert.False(t, ok)
	assert.Equal(t, 1, doc.Buyers.UniqueCount)
	checkCounterIdentity(t, doc)
}

func TestFoldTopBuyersCapped(t *testing.T) {
	doc := models.NewEventRollup("E1")
	for i := 0; i < 25; i++ {
		o := testOrder(fmt.Sprintf("O%02d", i), enums.OrderStatusPaid, int64(1000*(i+1)), 1)
		o.BuyerKey = fmt.Sprintf("buyer-%02d", i)
		Fold(doc, nil, o)
	}

	require.Len(t, doc.Buyers.Top20BySpend, 20)
	assert.Equal(t, "buyer-24", doc.Buyers.Top20BySpend[0].BuyerKey)
	assert.Equal(t, int64(25000), doc.Buyers.Top20BySpend[0].TotalSpent)
	assert.Equal(t, 25, doc.Buyers.UniqueCount)
}

func TestFoldUnknownStatusCountsAsPending(t *testing.T) {
	doc := models.NewEventRollup("E1")
	o := testOrder("O1", enums.NormalizeOrderStatus("refunding"), 9000, 1)
	Fold(doc, nil, o)

	assert.Equal(t, 1, doc.Summary.PendingCount)
	assert.Equal(t, int64(0), doc.Summary.NetRevenue)
	assert.Equal(t, 0, doc.Summary.TicketCount)
	checkCounterIdentity(t, doc)
}
