package orders

// Order lifecycle:
//
//	pending -> processing -> shipped -> delivered
//
// with side branches to cancelled (from pending/processing only, via the
// dedicated cancel operation), refunded (via the refund operation) and
// returned (from shipped/delivered).
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusReturned   = "returned"
)

// Payment states live next to (not inside) the order status.
const (
	PaymentPending           = "pending"
	PaymentPaid              = "paid"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentRefunded          = "refunded"
)

// adminTransitions is what PUT /orders/admin/:id/status may do. Cancelled and
// refunded are deliberately absent: those states carry side effects (stock
// restore, payment reversal) and are only reachable through their own
// endpoints.
var adminTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusShipped},
	StatusProcessing: {StatusShipped, StatusDelivered},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
}

// IsValid reports whether s is a known order status.
func IsValid(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusRefunded, StatusReturned:
		return true
	}
	return false
}

// CanCancel - cancellation is only allowed before the order ships.
func CanCancel(s string) bool {
	return s == StatusPending || s == StatusProcessing
}

// CanTransition validates an admin status change against the table above.
func CanTransition(from, to string) bool {
	for _, next := range adminTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
