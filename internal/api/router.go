// Package api exposes tax quotes and orders over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/order"
	"github.com/sells-group/salestax/internal/schedule"
	"github.com/sells-group/salestax/internal/store"
	"github.com/sells-group/salestax/internal/tax"
)

// Quoter prices a subtotal by place name or coordinate.
type Quoter interface {
	ForLocation(jurisdiction, sub string, subtotal decimal.Decimal) tax.Quote
	ForCoordinates(ctx context.Context, lat, lon float64, subtotal decimal.Decimal) tax.Quote
}

// Orders is the order service surface the API needs.
type Orders interface {
	Create(ctx context.Context, in order.CreateInput) (*model.Order, error)
	Import(ctx context.Context, r io.Reader) (*order.ImportResult, error)
	List(ctx context.Context, f store.OrderFilter) (*store.OrderPage, error)
	Get(ctx context.Context, id string) (*model.Order, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

const defaultMaxUpload = 10 << 20

type handler struct {
	quoter    Quoter
	orders    Orders
	holder    *schedule.Holder
	maxUpload int64
}

// NewRouter builds the HTTP handler. holder may be nil.
func NewRouter(q Quoter, o Orders, holder *schedule.Holder, opts Options) http.Handler {
	h := &handler{quoter: q, orders: o, holder: holder, maxUpload: opts.MaxUploadBytes}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tax", h.taxByLocation)
		r.Get("/tax/coordinates", h.taxByCoordinates)
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Post("/import", h.importOrders)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
