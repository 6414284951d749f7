package models

// IsTerminal reports whether no further lifecycle changes are allowed.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByClient, StatusCancelledByStaff:
		return true
	}
	return false
}

// IsCancelled reports whether the booking was cancelled by either side.
func (s BookingStatus) IsCancelled() bool {
	return s == StatusCancelledByClient || s == StatusCancelledByStaff
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

var transitions = map[BookingStatus][]BookingStatus{
	StatusPaymentPending:    {StatusConfirmed, StatusCancelledByClient, StatusCancelledByStaff},
	StatusConfirmed:         {StatusScheduled, StatusInProgress, StatusCancelledByClient, StatusCancelledByStaff},
	StatusScheduled:         {StatusInProgress, StatusCancelledByClient, StatusCancelledByStaff},
	StatusInProgress:        {StatusCompleted, StatusCancelledByStaff},
	StatusCompleted:         {},
	StatusCancelledByClient: {},
	StatusCancelledByStaff:  {},
}

// CanTransition reports whether a booking may move from one status to another
// through the lifecycle endpoint. Reschedule fees move a booking back to
// PAYMENT_PENDING outside this table.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
