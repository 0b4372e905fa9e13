package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "confirmed", want: StatusConfirmed},
		{in: "ready-to-dispatch", want: StatusReadyToDispatch},
		{in: " Dispatched ", want: StatusDispatched},
		{in: "DELIVERED", want: StatusDelivered},
		{in: "cancelled", want: StatusCancelled},
		{in: "returned", want: StatusReturned},
		{in: "shipped", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "status", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Action(t *testing.T) {
	assert.Equal(t, "CONFIRMED", StatusConfirmed.Action())
	assert.Equal(t, "READY_TO_DISPATCH", StatusReadyToDispatch.Action())
	assert.Equal(t, "RETURNED", StatusReturned.Action())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusConfirmed.Terminal())
	assert.False(t, StatusReadyToDispatch.Terminal())
	assert.False(t, StatusDispatched.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusReturned.Terminal())
}

func newConfirmedOrder() *Order {
	return &Order{
		ID:             "o1",
		Status:         StatusConfirmed,
		PaymentStatus:  PaymentUnpaid,
		TotalAmount:    2500,
		DiscountAmount: 200,
		GSTAmount:      115,
		CouponAmount:   200,
		FinalAmount:    2215,
		Logs:           []LogEntry{{Action: "CONFIRMED"}},
	}
}

func TestTransition_Apply(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		tr         Transition
		wantReturn bool
		wantReason string
		wantAction string
		check      func(t *testing.T, o *Order)
	}{
		{
			name:       "ready to dispatch",
			tr:         Transition{To: StatusReadyToDispatch, Note: "packed", By: "staff-1"},
			wantAction: "READY_TO_DISPATCH",
		},
		{
			name:       "confirmed straight to delivered is allowed",
			tr:         Transition{To: StatusDelivered},
			wantAction: "DELIVERED",
		},
		{
			name:       "returned records reason and flag",
			tr:         Transition{To: StatusReturned, Reason: "damaged"},
			wantReturn: true,
			wantReason: "damaged",
			wantAction: "RETURNED",
		},
		{
			name:       "returned without reason still flags",
			tr:         Transition{To: StatusReturned},
			wantReturn: true,
			wantAction: "RETURNED",
		},
		{
			name:       "cancelled records reason without return flag",
			tr:         Transition{To: StatusCancelled, Reason: "buyer changed mind"},
			wantReason: "buyer changed mind",
			wantAction: "CANCELLED",
		},
		{
			name:       "dispatched with courier records dispatch info",
			tr:         Transition{To: StatusDispatched, Courier: "BlueDart", AWB: "AWB123", Note: "picked up", By: "staff-2"},
			wantAction: "DISPATCHED",
			check: func(t *testing.T, o *Order) {
				require.NotNil(t, o.DispatchInfo)
				assert.Equal(t, DispatchInfo{Courier: "BlueDart", AWB: "AWB123", Note: "picked up", At: at, By: "staff-2"}, *o.DispatchInfo)
			},
		},
		{
			name:       "dispatched without courier leaves dispatch info empty",
			tr:         Transition{To: StatusDispatched},
			wantAction: "DISPATCHED",
			check: func(t *testing.T, o *Order) {
				assert.Nil(t, o.DispatchInfo)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newConfirmedOrder()
			tt.tr.Apply(o, at)

			assert.Equal(t, tt.tr.To, o.Status)
			assert.Equal(t, tt.wantReturn, o.IsReturnRequested)
			assert.Equal(t, tt.wantReason, o.ReturnReason)
			require.Len(t, o.Logs, 2)
			assert.Equal(t, LogEntry{Action: tt.wantAction, Note: tt.tr.Note, By: tt.tr.By, At: at}, o.Logs[1])
			assert.Equal(t, at, o.UpdatedAt)
			assert.Equal(t, int64(2215), o.FinalAmount)
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestTransition_TerminalRepeatAppendsLog(t *testing.T) {
	for _, st := range []Status{StatusDelivered, StatusCancelled, StatusReturned} {
		t.Run(string(st), func(t *testing.T) {
			o := newConfirmedOrder()
			before := o.Summary()

			at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			Transition{To: st}.Apply(o, at)
			Transition{To: st}.Apply(o, at.Add(time.Minute))

			assert.Equal(t, st, o.Status)
			assert.Len(t, o.Logs, 3)
			assert.Equal(t, before, o.Summary())
		})
	}
}

func TestPaymentUpdate_Apply(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		upd      PaymentUpdate
		wantPaid int64
		wantErr  bool
	}{
		{name: "paid settles full amount", upd: PaymentUpdate{Status: PaymentPaid}, wantPaid: 2215},
		{name: "unpaid resets amount", upd: PaymentUpdate{Status: PaymentUnpaid}, wantPaid: 0},
		{name: "partial keeps given amount", upd: PaymentUpdate{Status: PaymentPartial, PaidAmount: 1000}, wantPaid: 1000},
		{name: "partial without amount", upd: PaymentUpdate{Status: PaymentPartial}, wantErr: true},
		{name: "partial with full amount", upd: PaymentUpdate{Status: PaymentPartial, PaidAmount: 2215}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newConfirmedOrder()
			o.PaidAmount = 500
			err := tt.upd.Apply(o, at)
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
				assert.Equal(t, int64(500), o.PaidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.upd.Status, o.PaymentStatus)
			assert.Equal(t, tt.wantPaid, o.PaidAmount)
		})
	}
}

func TestParsePaymentStatus(t *testing.T) {
	ps, err := ParsePaymentStatus("Partial")
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, ps)

	_, err = ParsePaymentStatus("refunded")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
