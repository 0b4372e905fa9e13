package order

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
	"github.com/deepglam/marketplace-orders/internal/domain/product"
	"github.com/deepglam/marketplace-orders/internal/domain/seller"
)

const (
	defaultListLimit          = 50
	maxListLimit              = 200
	defaultInvoiceConcurrency = 4
	defaultInvoiceTimeout     = 30 * time.Second
)

// Invoice is everything needed to render one bill's invoice.
type Invoice struct {
	Order  *Order
	Bill   *Bill
	Buyer  *buyer.Buyer
	Seller *seller.Seller
}

// Invoicer renders and stores a bill invoice, returning its public URL.
type Invoicer interface {
	Publish(ctx context.Context, inv Invoice) (string, error)
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order *Order
	Bills []*Bill
}

// Deps are the collaborators of Service. Invoices may be nil, in which case
// no invoices are generated.
type Deps struct {
	Buyers   buyer.Repository
	Products product.Repository
	Sellers  seller.Repository
	Orders   Repository
	Bills    BillRepository
	Invoices Invoicer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBillNumbers overrides bill number generation.
func WithBillNumbers(fn NumberFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.billNumber = fn
		}
	}
}

// WithTracerProvider sets the tracer provider used for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer("marketplace-orders/order")
		}
	}
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		if mp != nil {
			s.meter = mp.Meter("marketplace-orders/order")
		}
	}
}

// WithInvoiceLimits bounds post-commit invoice generation.
func WithInvoiceLimits(concurrency int, timeout time.Duration) Option {
	return func(s *Service) {
		if concurrency > 0 {
			s.invoiceConcurrency = concurrency
		}
		if timeout > 0 {
			s.invoiceTimeout = timeout
		}
	}
}

// Service encapsulates order placement and lifecycle operations.
type Service struct {
	buyers   buyer.Repository
	products product.Repository
	sellers  seller.Repository
	orders   Repository
	bills    BillRepository
	invoices Invoicer

	now        func() time.Time
	billNumber NumberFunc

	invoiceConcurrency int
	invoiceTimeout     time.Duration

	tracer         trace.Tracer
	meter          metric.Meter
	ordersPlaced   metric.Int64Counter
	billsCreated   metric.Int64Counter
	invoicesFailed metric.Int64Counter
}

// NewService creates an order Service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	s := &Service{
		buyers:             deps.Buyers,
		products:           deps.Products,
		sellers:            deps.Sellers,
		orders:             deps.Orders,
		bills:              deps.Bills,
		invoices:           deps.Invoices,
		now:                time.Now,
		billNumber:         NewBillNumber,
		invoiceConcurrency: defaultInvoiceConcurrency,
		invoiceTimeout:     defaultInvoiceTimeout,
		tracer:             tracenoop.NewTracerProvider().Tracer(""),
		meter:              metricnoop.NewMeterProvider().Meter(""),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.ordersPlaced, err = s.meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.billsCreated, err = s.meter.Int64Counter("bills.created",
		metric.WithDescription("Seller bills committed"),
	); err != nil {
		return nil, errors.Wrap(err, "bills.created counter")
	}
	if s.invoicesFailed, err = s.meter.Int64Counter("invoices.failed",
		metric.WithDescription("Bill invoices that could not be rendered or uploaded"),
	); err != nil {
		return nil, errors.Wrap(err, "invoices.failed counter")
	}

	return s, nil
}

// PlaceOrder validates the request, splits it into one bill per seller and
// stores the order, its bills and the buyer due increment atomically.
// Invoices are generated after commit; their failures are logged and leave
// the bill's pdf url empty.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("buyer.id", req.BuyerID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	d, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}

	bills, err := SplitBills(d.order, d.sellers, s.billNumber)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Place(ctx, d.order, bills); err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.ordersPlaced.Add(ctx, 1)
	s.billsCreated.Add(ctx, int64(len(bills)))
	span.SetAttributes(
		attribute.String("order.id", d.order.ID),
		attribute.Int("order.bills", len(bills)),
	)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", d.order.ID),
		zap.String("order_no", d.order.OrderNo),
		zap.String("buyer_id", d.order.BuyerID),
		zap.Int("bills", len(bills)),
		zap.Int64("final_amount", d.order.FinalAmount),
	)

	s.publishInvoices(ctx, d, bills)

	return &PlaceOrderResult{Order: d.order, Bills: bills}, nil
}

// publishInvoices generates every bill's invoice with bounded concurrency.
// It runs detached from the request's cancellation so a disconnecting client
// does not abort uploads midway.
func (s *Service) publishInvoices(ctx context.Context, d *draft, bills []*Bill) {
	if s.invoices == nil || len(bills) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.invoiceTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(s.invoiceConcurrency)
	for _, b := range bills {
		g.Go(func() error {
			_ = s.publishInvoice(ctx, Invoice{
				Order:  d.order,
				Bill:   b,
				Buyer:  d.buyer,
				Seller: d.sellers[b.SellerID],
			})
			return nil
		})
	}
	_ = g.Wait()
}

// publishInvoice renders and uploads one invoice and records its URL on the
// bill. Failures are logged and counted.
func (s *Service) publishInvoice(ctx context.Context, inv Invoice) error {
	lg := zctx.From(ctx).With(
		zap.String("order_id", inv.Order.ID),
		zap.String("bill_number", inv.Bill.BillNumber),
	)

	url, err := s.invoices.Publish(ctx, inv)
	if err != nil {
		s.invoicesFailed.Add(ctx, 1)
		lg.Error("Invoice generation failed", zap.Error(err))
		return errors.Wrap(err, "publish invoice")
	}
	if err := s.bills.SetPDFURL(ctx, inv.Bill.ID, url); err != nil {
		s.invoicesFailed.Add(ctx, 1)
		lg.Error("Invoice url update failed", zap.Error(err))
		return errors.Wrap(err, "set pdf url")
	}
	inv.Bill.PDFURL = url
	return nil
}

// BackfillResult summarizes a BackfillInvoices run.
type BackfillResult struct {
	Attempted int
	Published int
}

// BackfillInvoices regenerates invoices for up to limit bills that have no
// pdf url yet. Lookups run first; uploads then share the invoice
// concurrency limit. Individual failures only lower Published.
func (s *Service) BackfillInvoices(ctx context.Context, limit int) (*BackfillResult, error) {
	if s.invoices == nil {
		return nil, errors.New("invoices are not configured")
	}

	bills, err := s.bills.ListMissingInvoice(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list bills without invoice")
	}

	res := &BackfillResult{Attempted: len(bills)}
	orders := make(map[string]*Order)
	buyers := make(map[string]*buyer.Buyer)
	sellers := make(map[string]*seller.Seller)
	invoices := make([]Invoice, len(bills))
	for i := range bills {
		b := &bills[i]

		o, ok := orders[b.OrderID]
		if !ok {
			if o, err = s.orders.GetByID(ctx, b.OrderID); err != nil {
				return res, errors.Wrapf(err, "get order %s", b.OrderID)
			}
			orders[b.OrderID] = o
		}
		by, ok := buyers[b.BuyerID]
		if !ok {
			if by, err = s.buyers.GetByID(ctx, b.BuyerID); err != nil {
				return res, errors.Wrapf(err, "get buyer %s", b.BuyerID)
			}
			buyers[b.BuyerID] = by
		}
		sl, ok := sellers[b.SellerID]
		if !ok {
			if sl, err = s.sellers.GetByID(ctx, b.SellerID); err != nil {
				return res, errors.Wrapf(err, "get seller %s", b.SellerID)
			}
			sellers[b.SellerID] = sl
		}
		invoices[i] = Invoice{Order: o, Bill: b, Buyer: by, Seller: sl}
	}

	var published atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.invoiceConcurrency)
	for _, inv := range invoices {
		g.Go(func() error {
			if err := s.publishInvoice(ctx, inv); err == nil {
				published.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Published = int(published.Load())
	return res, nil
}

// Get returns an order with its buyer and bills.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapLoadError(err, id)
	}

	b, err := s.buyers.GetByID(ctx, o.BuyerID)
	switch {
	case errors.Is(err, buyer.ErrNotFound):
		b = nil
	case err != nil:
		return nil, errors.Wrap(err, "get buyer")
	}

	bills, err := s.bills.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list bills")
	}

	return &Detail{Order: o, Buyer: b, Bills: bills}, nil
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus applies a lifecycle transition to the order.
func (s *Service) UpdateStatus(ctx context.Context, id string, t Transition) (*Order, error) {
	if _, ok := statuses[t.To]; !ok {
		return nil, &ValidationError{Field: "status", Reason: "is not a known order status"}
	}

	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		t.Apply(o, s.now().UTC())
		return nil
	})
	if err != nil {
		return nil, s.mapLoadError(err, id)
	}

	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", id),
		zap.String("status", string(t.To)),
		zap.String("by", t.By),
	)
	return o, nil
}

// RequestReturn marks the order returned with the given reason.
func (s *Service) RequestReturn(ctx context.Context, id, reason, by string) (*Order, error) {
	return s.UpdateStatus(ctx, id, Transition{
		To:     StatusReturned,
		Note:   "return requested",
		Reason: reason,
		By:     by,
	})
}

// UpdatePayment sets the payment status of the order.
func (s *Service) UpdatePayment(ctx context.Context, id string, p PaymentUpdate) (*Order, error) {
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		return p.Apply(o, s.now().UTC())
	})
	if err != nil {
		return nil, s.mapLoadError(err, id)
	}
	return o, nil
}

// mapLoadError translates errors of a load or locked update: a missing order
// becomes NotFoundError and a rejected mutation keeps its ValidationError.
func (s *Service) mapLoadError(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Kind: "order", ID: id}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return errors.Wrap(err, "load order")
}
