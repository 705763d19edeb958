package models

import (
	"database/sql/driver"
	"time"
)

// RollupSummary holds the headline counters for one sellable event.
// Every value is the exact sum of the currently-known order states,
// never an append-only log.
type RollupSummary struct {
	NetRevenue        int64 `json:"netRevenue"`
	PaidCount         int   `json:"paidCount"`
	FailedCount       int   `json:"failedCount"`
	PendingCount      int   `json:"pendingCount"`
	TicketCount       int   `json:"ticketCount"`
	AvgOrderValue     int64 `json:"avgOrderValue"`
	TotalPaymentsSeen int   `json:"totalPaymentsSeen"`
}

func (s RollupSummary) Value() (driver.Value, error) { return jsonbValue(s) }
func (s *RollupSummary) Scan(value any) error        { return jsonbScan(s, value) }

// RollupDayStat is one bucket of the daily time series.
type RollupDayStat struct {
	NetRevenue  int64 `json:"netRevenue"`
	PaidCount   int   `json:"paidCount"`
	TicketCount int   `json:"ticketCount"`
}

// RollupDaily maps a YYYY-MM-DD day key to its bucket.
type RollupDaily map[string]RollupDayStat

func (d RollupDaily) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return jsonbValue(d)
}

func (d *RollupDaily) Scan(value any) error {
	result := make(RollupDaily)
	if err := jsonbScan(&result, value); err != nil {
		return err
	}
	*d = result
	return nil
}

// RollupTicketStat accumulates quantity and net revenue per ticket type.
type RollupTicketStat struct {
	Qty        int   `json:"qty"`
	NetRevenue int64 `json:"netRevenue"`
}

// RollupTicketTypes maps a ticket-type label to its stats.
type RollupTicketTypes map[string]RollupTicketStat

func (t RollupTicketTypes) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	return jsonbValue(t)
}

func (t *RollupTicketTypes) Scan(value any) error {
	result := make(RollupTicketTypes)
	if err := jsonbScan(&result, value); err != nil {
		return err
	}
	*t = result
	return nil
}

// RollupBuyerStat reflects only orders currently in paid state for one buyer.
type RollupBuyerStat struct {
	PurchaseCount int    `json:"purchaseCount"`
	TotalSpent    int64  `json:"totalSpent"`
	Email         string `json:"email,omitempty"`
}

// RollupTopBuyer is one row of the derived top-20-by-spend projection.
type RollupTopBuyer struct {
	BuyerKey      string `json:"buyerKey"`
	PurchaseCount int    `json:"purchaseCount"`
	TotalSpent    int64  `json:"totalSpent"`
	Email         string `json:"email,omitempty"`
}

// RollupBuyers is the buyer ledger plus its derived projections.
type RollupBuyers struct {
	UniqueCount  int                        `json:"uniqueCount"`
	RepeatCount  int                        `json:"repeatCount"`
	PerBuyer     map[string]RollupBuyerStat `json:"perBuyer"`
	Top20BySpend []RollupTopBuyer           `json:"top20ByScore"`
}

func (b RollupBuyers) Value() (driver.Value, error) { return jsonbValue(b) }
func (b *RollupBuyers) Scan(value any) error        { return jsonbScan(b, value) }

// RollupOrderSnapshot is one entry of the capped recent-orders list.
type RollupOrderSnapshot struct {
	OrderID   string    `json:"orderId"`
	PaymentID string    `json:"paymentId,omitempty"`
	Status    string    `json:"status"`
	Net       int64     `json:"net"`
	CreatedAt time.Time `json:"createdAt"`
}

// RollupRecentOrders holds the most recent order snapshots, newest first.
type RollupRecentOrders []RollupOrderSnapshot

func (r RollupRecentOrders) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return jsonbValue(r)
}

func (r *RollupRecentOrders) Scan(value any) error {
	result := RollupRecentOrders{}
	if err := jsonbScan(&result, value); err != nil {
		return err
	}
	*r = result
	return nil
}

// EventRollup is the materialized analytics document for one sellable
// event. It is created lazily on the first order event, merged on every
// subsequent one, and read by the dashboard API.
type EventRollup struct {
	EventID       string             `gorm:"column:event_id;primaryKey" json:"eventId"`
	ClubID        *string            `gorm:"column:club_id" json:"clubId,omitempty"`
	Summary       RollupSummary      `gorm:"column:summary;type:jsonb" json:"summary"`
	SeriesDaily   RollupDaily        `gorm:"column:series_daily;type:jsonb" json:"seriesDaily"`
	TicketsByType RollupTicketTypes  `gorm:"column:tickets_by_type;type:jsonb" json:"ticketsByType"`
	Buyers        RollupBuyers       `gorm:"column:buyers;type:jsonb" json:"buyers"`
	RecentOrders  RollupRecentOrders `gorm:"column:recent_orders;type:jsonb" json:"recentOrders"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName overrides the gorm naming strategy.
func (EventRollup) TableName() string { return "event_rollups" }

// NewEventRollup returns an empty document for the given event with all
// containers initialized.
func NewEventRollup(eventID string) *EventRollup {
	return &EventRollup{
		EventID:       eventID,
		SeriesDaily:   RollupDaily{},
		TicketsByType: RollupTicketTypes{},
		Buyers: RollupBuyers{
			PerBuyer:     map[string]RollupBuyerStat{},
			Top20BySpend: []RollupTopBuyer{},
		},
		RecentOrders: RollupRecentOrders{},
	}
}
