package tracking

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DisplayInfo is static presentation metadata for one status.
type DisplayInfo struct {
	Label       string
	Color       string
	Icon        string
	Description string
}

var displayTable = map[Status]DisplayInfo{
	StatusPlaced:         {"Order Placed", "#9e9e9e", "receipt", "We have received your order."},
	StatusConfirmed:      {"Confirmed", "#2196f3", "check_circle", "The venue has confirmed your order."},
	StatusPreparing:      {"Preparing", "#ff9800", "restaurant", "Your food is being prepared."},
	StatusReady:          {"Ready", "#4caf50", "notifications_active", "Your order is ready."},
	StatusOutForDelivery: {"Out for Delivery", "#3f51b5", "delivery_dining", "Your order is on its way."},
	StatusDelivered:      {"Delivered", "#4caf50", "done_all", "Your order has been delivered."},
	StatusServed:         {"Served", "#4caf50", "room_service", "Your order has been served. Enjoy!"},
	StatusCancelled:      {"Cancelled", "#f44336", "cancel", "This order was cancelled."},
}

// Display returns presentation metadata for s. Unrecognized statuses fall
// back to the placed entry.
func Display(s Status) DisplayInfo {
	if d, ok := displayTable[s]; ok {
		return d
	}
	return displayTable[StatusPlaced]
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AED": "د.إ",
}

// FormatCurrency renders an amount with its currency symbol, grouped per
// locale, with no decimal places.
func FormatCurrency(amount float64, iso string, loc language.Tag) string {
	sym, ok := currencySymbols[iso]
	if !ok {
		sym = iso + " "
	}
	p := message.NewPrinter(loc)
	return sym + p.Sprintf("%v", number.Decimal(amount, number.MaxFractionDigits(0)))
}

// FormatClock renders a wall-clock time of day, e.g. "6:04 PM".
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatElapsed renders how long ago since was, relative to now.
func FormatElapsed(since, now time.Time) string {
	d := now.Sub(since)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		return fmt.Sprintf("%dh %dm ago", h, m)
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// EstimatedReady computes the promised ready time from the order time and
// the venue's estimate in minutes.
func EstimatedReady(orderedAt time.Time, minutes int) time.Time {
	return orderedAt.Add(time.Duration(minutes) * time.Minute)
}
