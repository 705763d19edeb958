// Package normalize turns raw, loosely-typed commerce order records
// into the typed values the rollup fold works with. The upstream
// checkout process writes orders with inconsistent field names and
// formats, so every logical field is read through an ordered list of
// accessor rules, first match wins.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/carretedigital/carrete-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// grossFeeDivisor recovers the seller's net from a fee-inclusive gross
// amount (the platform adds a fixed 12% service fee on top).
const grossFeeDivisor = 1.12

// Field alias rules. Matches are case-sensitive and evaluated in order.
var (
	eventIDRules   = []string{"eventId", "eventID", "event_id"}
	clubIDRules    = []string{"clubId", "club.id"}
	statusRules    = []string{"status", "Status"}
	priceRules     = []string{"price"}
	qtyRules       = []string{"qty"}
	amountRules    = []string{"amount", "Amount", "webhook.paymentData.amount"}
	ticketRules    = []string{"ticketName", "ticketType"}
	buyerRules     = []string{"buyerUid", "email", "payer"}
	emailRules     = []string{"email"}
	paidAtRules    = []string{"paidAt"}
	createdAtRules = []string{"createdAt"}
	orderIDRules   = []string{"commerceOrder", "CommerceOrder", "orderId"}
	paymentIDRules = []string{"paymentId", "PaymentID", "flowOrder"}
)

const (
	defaultTicketType = "General"
	defaultBuyerKey   = "anon"
)

// Order is the normalized view of one raw order record.
type Order struct {
	OrderID     string
	EventID     string
	ClubID      string
	Status      enums.OrderStatus
	NetRevenue  int64
	Quantity    int
	ReferenceTS time.Time
	TicketType  string
	BuyerKey    string
	Email       string
	PaymentID   string
}

// DayKey returns the UTC calendar date bucket of the reference timestamp.
func (o *Order) DayKey() string {
	return o.ReferenceTS.UTC().Format("2006-01-02")
}

// Normalize maps a raw order record to its normalized form. A nil raw
// record (absent before/after image) normalizes to nil.
func Normalize(raw map[string]any, now time.Time) *Order {
	if raw == nil {
		return nil
	}
	return &Order{
		OrderID:     StringField(raw, orderIDRules, ""),
		EventID:     StringField(raw, eventIDRules, ""),
		ClubID:      StringField(raw, clubIDRules, ""),
		Status:      Status(raw),
		NetRevenue:  NetRevenue(raw),
		Quantity:    Quantity(raw),
		ReferenceTS: ReferenceTimestamp(raw, now),
		TicketType:  StringField(raw, ticketRules, defaultTicketType),
		BuyerKey:    StringField(raw, buyerRules, defaultBuyerKey),
		Email:       StringField(raw, emailRules, ""),
		PaymentID:   StringField(raw, paymentIDRules, ""),
	}
}

// NetRevenue computes the seller's net for one order. Preferred path is
// price*qty; when either is missing the gross amount aliases are tried
// and the 12% service fee stripped. Unparseable records yield 0.
func NetRevenue(raw map[string]any) int64 {
	price, okPrice := NumberField(raw, priceRules)
	qty, okQty := NumberField(raw, qtyRules)
	if okPrice && okQty {
		return roundToInt(price * qty)
	}
	if gross, ok := NumberField(raw, amountRules); ok {
		return roundToInt(gross / grossFeeDivisor)
	}
	return 0
}

// Quantity returns the ticket count of the order, defaulting to 1.
func Quantity(raw map[string]any) int {
	if qty, ok := NumberField(raw, qtyRules); ok {
		return int(roundToInt(qty))
	}
	return 1
}

// Status lowercases the raw status; unknown values count as pending.
func Status(raw map[string]any) enums.OrderStatus {
	return enums.NormalizeOrderStatus(StringField(raw, statusRules, ""))
}

// ReferenceTimestamp prefers the explicit paid-at time, then created-at,
// then now. Epoch millis, ISO-8601 strings, and {seconds} structs are
// all accepted.
func ReferenceTimestamp(raw map[string]any, now time.Time) time.Time {
	if ts, ok := timeField(raw, paidAtRules); ok {
		return ts.UTC()
	}
	if ts, ok := timeField(raw, createdAtRules); ok {
		return ts.UTC()
	}
	return now.UTC()
}

// StringField resolves the first populated alias to a trimmed string.
// Numeric values (e.g. a numeric payment order id) are rendered as
// their decimal representation.
func StringField(raw map[string]any, rules []string, def string) string {
	for _, rule := range rules {
		value, ok := lookup(raw, rule)
		if !ok {
			continue
		}
		if s := stringify(value); s != "" {
			return s
		}
	}
	return def
}

// NumberField resolves the first alias that parses as a number.
// Strings may carry currency symbols and thousands separators; anything
// except digits, '.' and '-' is stripped before parsing.
func NumberField(raw map[string]any, rules []string) (float64, bool) {
	for _, rule := range rules {
		value, ok := lookup(raw, rule)
		if !ok {
			continue
		}
		if n, ok := looseNumber(value); ok {
			return n, true
		}
	}
	return 0, false
}

func lookup(raw map[string]any, path string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	current := any(raw)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func looseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		cleaned := cleanNumeric(v)
		if cleaned == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	default:
		return 0, false
	}
}

func cleanNumeric(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func timeField(raw map[string]any, rules []string) (time.Time, bool) {
	for _, rule := range rules {
		value, ok := lookup(raw, rule)
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(value); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)), true
	case int64:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range isoLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case map[string]any:
		// Firestore-style {seconds, nanoseconds} timestamp struct.
		seconds, ok := looseNumber(v["seconds"])
		if !ok || seconds <= 0 {
			return time.Time{}, false
		}
		nanos, _ := looseNumber(v["nanoseconds"])
		return time.Unix(int64(seconds), int64(nanos)), true
	default:
		return time.Time{}, false
	}
}

func roundToInt(value float64) int64 {
	return int64(math.Round(value))
}
