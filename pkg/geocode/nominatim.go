package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/salestax/internal/resilience"
)

// nominatimResponse is the subset of /reverse?format=jsonv2 we read.
type nominatimResponse struct {
	Error   string           `json:"error"`
	Address nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Hamlet        string `json:"hamlet"`
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
	Municipality  string `json:"municipality"`
	County        string `json:"county"`
	StateDistrict string `json:"state_district"`
	State         string `json:"state"`
	ISO31662      string `json:"ISO3166-2-lvl4"`
	Country       string `json:"country"`
}

type nominatim struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	userAgent  string
	breaker    *resilience.CircuitBreaker
}

func (n *nominatim) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return resilience.ExecuteVal(ctx, n.breaker, func(ctx context.Context) (*Place, error) {
		return n.reverse(ctx, lat, lon)
	})
}

func (n *nominatim) reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"lat":             {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":             {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format":          {"jsonv2"},
		"addressdetails":  {"1"},
		"zoom":            {"14"},
		"accept-language": {"en"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if nr.Error != "" {
		return nil, eris.Errorf("geocode: nominatim: %s", nr.Error)
	}
	return nr.Address.place(), nil
}

func (a nominatimAddress) place() *Place {
	return &Place{
		Region:  strings.TrimPrefix(a.ISO31662, "US-"),
		State:   a.State,
		County:  cleanCounty(firstNonEmpty(a.County, a.StateDistrict)),
		City:    firstNonEmpty(a.City, a.Town, a.Village, a.Municipality, a.Hamlet),
		Country: a.Country,
	}
}

func cleanCounty(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(" County") && strings.EqualFold(s[len(s)-len(" County"):], " County") {
		return strings.TrimSpace(s[:len(s)-len(" County")])
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
