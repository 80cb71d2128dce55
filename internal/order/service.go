// Package order creates, imports and queries taxed orders.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/store"
	"github.com/sells-group/salestax/internal/tax"
)

// ErrInvalidOrder is returned for out-of-range coordinates or a negative subtotal.
var ErrInvalidOrder = errors.New("order: invalid order")

// Quoter prices a subtotal at a coordinate. *tax.Calculator satisfies it.
type Quoter interface {
	ForCoordinates(ctx context.Context, lat, lon float64, subtotal decimal.Decimal) tax.Quote
}

// CreateInput is the data needed to create one order. A nil Timestamp means now.
type CreateInput struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// Validate checks coordinate ranges and the subtotal sign.
func (in CreateInput) Validate() error {
	switch {
	case in.Latitude < -90 || in.Latitude > 90:
		return eris.Wrapf(ErrInvalidOrder, "latitude %v out of range", in.Latitude)
	case in.Longitude < -180 || in.Longitude > 180:
		return eris.Wrapf(ErrInvalidOrder, "longitude %v out of range", in.Longitude)
	case in.Subtotal.IsNegative():
		return eris.Wrapf(ErrInvalidOrder, "subtotal %s is negative", in.Subtotal)
	}
	return nil
}

// Service quotes orders and persists them.
type Service struct {
	store       store.Store
	quoter      Quoter
	concurrency int
	now         func() time.Time
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds the number of quotes run at once during import.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDFunc overrides order id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService returns a Service backed by st and q.
func NewService(st store.Store, q Quoter, opts ...Option) *Service {
	s := &Service{
		store:       st,
		quoter:      q,
		concurrency: 4,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create quotes and stores one order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	o := s.build(ctx, in)
	if err := s.store.CreateOrder(ctx, &o); err != nil {
		return nil, eris.Wrap(err, "order: create")
	}

	zap.L().Info("order: created",
		zap.String("id", o.ID),
		zap.String("jurisdiction", o.Tax.Jurisdiction),
		zap.String("tax", o.Tax.TaxAmount.StringFixed(2)),
		zap.Bool("degraded", o.Tax.Degraded),
	)
	return &o, nil
}

// Get returns one order by id; store.ErrNotFound passes through.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "order: get %s", id)
	}
	return o, nil
}

// List returns one page of orders matching f.
func (s *Service) List(ctx context.Context, f store.OrderFilter) (*store.OrderPage, error) {
	page, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "order: list")
	}
	return page, nil
}

func (s *Service) build(ctx context.Context, in CreateInput) model.Order {
	now := s.now()
	ts := now
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}

	q := s.quoter.ForCoordinates(ctx, in.Latitude, in.Longitude, in.Subtotal)
	return model.Order{
		ID:        s.newID(),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Subtotal:  in.Subtotal,
		Timestamp: ts,
		Tax:       q.TaxBreakdown,
		CreatedAt: now,
	}
}
