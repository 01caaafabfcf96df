package tracking

// Status is the customer-facing lifecycle stage of an order. The backend
// owns the state machine; this enum mirrors its wire values.
type Status string

const (
	StatusPlaced         Status = "placed"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusServed         Status = "served"
	StatusCancelled      Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// progressOrder is the fixed ordering behind the progress bar. cancelled is
// deliberately absent: a cancelled order reads as 0%.
var progressOrder = []Status{
	StatusPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusServed,
}

// ProgressPercent maps a status to its position in the fixed ordering,
// scaled to 0..100. Unknown statuses and cancelled yield 0.
func ProgressPercent(s Status) float64 {
	for i, st := range progressOrder {
		if st == s {
			return float64(i+1) / float64(len(progressOrder)) * 100
		}
	}
	return 0
}

// forwardNext is the happy-path table. ready advances to served, not
// out_for_delivery: the dine-in branch is the default one.
var forwardNext = map[Status]Status{
	StatusPlaced:         StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusServed,
	StatusOutForDelivery: StatusDelivered,
}

// NextStatus returns the forward transition for s. Terminal and unknown
// statuses have none.
func NextStatus(s Status) (Status, bool) {
	n, ok := forwardNext[s]
	return n, ok
}

var validNext = map[Status]map[Status]bool{
	StatusPlaced:         {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:      {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing:      {StatusReady: true},
	StatusReady:          {StatusServed: true, StatusOutForDelivery: true},
	StatusOutForDelivery: {StatusDelivered: true},
	StatusDelivered:      {},
	StatusServed:         {},
	StatusCancelled:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusServed || s == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// CanCancel reports whether the customer may still cancel the order.
func CanCancel(s Status) bool {
	return s == StatusPlaced || s == StatusConfirmed
}

// CanModify reports whether line items may still be changed.
func CanModify(s Status) bool {
	return s == StatusPlaced
}
