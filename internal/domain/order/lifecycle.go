package order

import (
	"strings"
	"time"
)

// Status is the position of an order in its fulfilment pipeline.
type Status string

// Order statuses. Delivered, cancelled and returned are terminal.
const (
	StatusConfirmed       Status = "confirmed"
	StatusReadyToDispatch Status = "ready-to-dispatch"
	StatusDispatched      Status = "dispatched"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusReturned        Status = "returned"
)

var statuses = map[Status]struct{}{
	StatusConfirmed:       {},
	StatusReadyToDispatch: {},
	StatusDispatched:      {},
	StatusDelivered:       {},
	StatusCancelled:       {},
	StatusReturned:        {},
}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statuses[st]; !ok {
		return "", &ValidationError{Field: "status", Reason: "must be one of confirmed, ready-to-dispatch, dispatched, delivered, cancelled, returned"}
	}
	return st, nil
}

// Terminal reports whether no further fulfilment happens after s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusReturned:
		return true
	default:
		return false
	}
}

// Action is the audit log action recorded when entering s, e.g.
// READY_TO_DISPATCH.
func (s Status) Action() string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "-", "_"))
}

// PaymentStatus is the payment flag tracked on an order. Payment capture
// happens elsewhere.
type PaymentStatus string

// Payment statuses.
const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
)

// ParsePaymentStatus validates s against the known payment statuses.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); ps {
	case PaymentUnpaid, PaymentPaid, PaymentPartial:
		return ps, nil
	default:
		return "", &ValidationError{Field: "status", Reason: "must be one of paid, unpaid, partial"}
	}
}

// Transition describes a requested status change.
type Transition struct {
	To     Status
	Note   string
	Reason string
	// Courier and AWB are recorded as dispatch info when entering dispatched.
	Courier string
	AWB     string
	By      string
}

// Apply moves o to t.To and appends one log entry.
//
// Any known status may be entered from any other, including re-entering a
// terminal one. Totals, bills and the buyer balance are left untouched.
func (t Transition) Apply(o *Order, at time.Time) {
	o.Status = t.To

	switch t.To {
	case StatusReturned:
		o.IsReturnRequested = true
		if t.Reason != "" {
			o.ReturnReason = t.Reason
		}
	case StatusCancelled:
		if t.Reason != "" {
			o.ReturnReason = t.Reason
		}
	case StatusDispatched:
		if t.Courier != "" || t.AWB != "" {
			o.DispatchInfo = &DispatchInfo{
				Courier: t.Courier,
				AWB:     t.AWB,
				Note:    t.Note,
				At:      at,
				By:      t.By,
			}
		}
	}

	o.Logs = append(o.Logs, LogEntry{
		Action: t.To.Action(),
		Note:   t.Note,
		By:     t.By,
		At:     at,
	})
	o.UpdatedAt = at
}

// PaymentUpdate describes a requested payment status change. PaidAmount is
// only read for partial payments.
type PaymentUpdate struct {
	Status     PaymentStatus
	PaidAmount int64
}

// Apply sets the payment status and the matching paid amount on o.
func (p PaymentUpdate) Apply(o *Order, at time.Time) error {
	switch p.Status {
	case PaymentPaid:
		o.PaidAmount = o.FinalAmount
	case PaymentUnpaid:
		o.PaidAmount = 0
	case PaymentPartial:
		if p.PaidAmount <= 0 || p.PaidAmount >= o.FinalAmount {
			return &ValidationError{Field: "paidAmount", Reason: "must be between 0 and the order final amount for a partial payment"}
		}
		o.PaidAmount = p.PaidAmount
	}
	o.PaymentStatus = p.Status
	o.UpdatedAt = at
	return nil
}
