package eastmoney

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jwliu/vantage/pkg/config"
	"github.com/jwliu/vantage/pkg/httputil"
	"github.com/jwliu/vantage/pkg/logger"
)

// Client fetches A-share quotes, money flow and concept membership
// from the Eastmoney push2 endpoints. All requests go through the
// shared retrying HTTP client behind a local rate limiter.
type Client struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	logger     *logger.Logger

	quoteBaseURL   string
	conceptBaseURL string
}

// NewClient creates a new Eastmoney client
func NewClient(cfg config.EastmoneyConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		logger:         log,
		quoteBaseURL:   strings.TrimRight(cfg.QuoteBaseURL, "/"),
		conceptBaseURL: strings.TrimRight(cfg.ConceptBaseURL, "/"),
	}
}

func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.httpClient.GetJSON(ctx, url, dest)
}

// flexFloat tolerates the push2 habit of sending "-" for missing
// numeric fields.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "-" || s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func (f flexFloat) float() float64 { return float64(f) }

// listResponse is the common push2 clist envelope.
type listResponse struct {
	Data *struct {
		Total int               `json:"total"`
		Diff  []json.RawMessage `json:"diff"`
	} `json:"data"`
}
