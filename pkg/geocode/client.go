// Package geocode resolves coordinates to administrative place names via the
// Nominatim reverse-geocoding API.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/salestax/internal/resilience"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Reverser turns a coordinate into a place.
type Reverser interface {
	// Reverse resolves a single coordinate.
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)
}

// Place is the administrative hierarchy at a coordinate. Any field may be empty.
type Place struct {
	Region  string `json:"region"` // ISO 3166-2 subdivision without country, e.g. "NY"
	State   string `json:"state"`
	County  string `json:"county"` // trailing " County" removed
	City    string `json:"city"`
	Country string `json:"country"`
}

// Resolved reports whether the place names a county or city.
func (p Place) Resolved() bool {
	return p.County != "" || p.City != ""
}

// InRegion reports whether the place lies in the given subdivision. A place
// without a subdivision code is assumed to be in region.
func (p Place) InRegion(region string) bool {
	return p.Region == "" || strings.EqualFold(p.Region, region)
}

// Option configures the reverser.
type Option func(*nominatim)

// WithBaseURL overrides the Nominatim endpoint.
func WithBaseURL(u string) Option {
	return func(n *nominatim) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) {
		n.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit. Nominatim's usage policy
// allows one request per second. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(n *nominatim) {
		if rps <= 0 {
			n.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each request, including the rate-limit wait.
func WithTimeout(d time.Duration) Option {
	return func(n *nominatim) {
		n.timeout = d
	}
}

// WithUserAgent sets the User-Agent header Nominatim requires.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) {
		n.userAgent = ua
	}
}

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(n *nominatim) {
		n.breaker = cb
	}
}

// NewReverser returns a Nominatim-backed Reverser.
func NewReverser(opts ...Option) Reverser {
	cfg := resilience.DefaultCircuitBreakerConfig("geocode")
	cfg.ShouldTrip = resilience.IsTransient
	n := &nominatim{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(1, 1),
		timeout:    10 * time.Second,
		userAgent:  "salestax/1.0",
		breaker:    resilience.NewCircuitBreaker(cfg),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Resolve reverse-geocodes a coordinate and absorbs every failure into an
// empty Place.
func Resolve(ctx context.Context, r Reverser, lat, lon float64) Place {
	if r == nil {
		return Place{}
	}
	p, err := r.Reverse(ctx, lat, lon)
	if err != nil {
		zap.L().Warn("geocode: reverse failed, treating as unresolved",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return Place{}
	}
	if p == nil {
		return Place{}
	}
	return *p
}
