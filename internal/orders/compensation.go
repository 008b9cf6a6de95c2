package orders

// ReservationOutcome is the result of one Reserve call within a CreateOrder.
// It lives only for the duration of that call.
type ReservationOutcome struct {
	ProductID    string
	RequestedQty int
	Granted      bool
	Reason       string
}

// reservationLog records outcomes in the order they happened. Undo walks the
// granted entries newest first.
type reservationLog struct {
	outcomes []ReservationOutcome
}

func (l *reservationLog) granted(productID string, qty int) {
	l.outcomes = append(l.outcomes, ReservationOutcome{ProductID: productID, RequestedQty: qty, Granted: true})
}

func (l *reservationLog) denied(productID string, qty int, reason string) {
	l.outcomes = append(l.outcomes, ReservationOutcome{ProductID: productID, RequestedQty: qty, Reason: reason})
}

// undo returns the granted reservations in reverse order.
func (l *reservationLog) undo() []ReservationOutcome {
	out := make([]ReservationOutcome, 0, len(l.outcomes))
	for i := len(l.outcomes) - 1; i >= 0; i-- {
		if l.outcomes[i].Granted {
			out = append(out, l.outcomes[i])
		}
	}
	return out
}
