package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"ygodeck/internal/deck"
	"ygodeck/internal/logging"
	"ygodeck/internal/metrics"
)

const (
	defaultBaseURL = "https://db.ygoprodeck.com/api/v7"
	cardInfoPath   = "/cardinfo.php"
	maxBodyBytes   = 16 << 20
	noMatchMessage = "no card matching"
)

// errNoMatch is the catalog telling us a query matched nothing.
var errNoMatch = errors.New("no matching cards")

// ClientConfig configures a catalog Client.
type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// BanlistFormat selects the tcg, ocg or goat list.
	BanlistFormat string
	Breaker       BreakerConfig
	Logger        *logging.Logger
	Clock         clockwork.Clock
}

// Client talks to the ygoprodeck cardinfo endpoint.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	maxRetries    int
	banlistFormat string
	breaker       *breaker
	logger        *logging.Logger
	clock         clockwork.Clock
	flight        singleflight.Group
}

// NewClient builds a Client, filling unset options with defaults.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	format := strings.ToLower(strings.TrimSpace(cfg.BanlistFormat))
	if format == "" {
		format = "tcg"
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		maxRetries:    max(cfg.MaxRetries, 0),
		banlistFormat: format,
		breaker:       newBreaker(cfg.Breaker, clock),
		logger:        logger.With("component", "catalog"),
		clock:         clock,
	}
}

// Search runs a filtered query and returns normalized cards with stat sorting
// applied. Ban status is left Unlimited; see Enrich.
func (c *Client) Search(ctx context.Context, f Filter) ([]Card, error) {
	q, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	return c.SearchQuery(ctx, q)
}

// SearchQuery is Search for an already normalized query.
func (c *Client) SearchQuery(ctx context.Context, q Query) ([]Card, error) {
	var env cardInfoEnvelope
	if err := c.getJSON(ctx, "search", q.Values(), &env); err != nil {
		if errors.Is(err, errNoMatch) {
			return []Card{}, nil
		}
		return nil, err
	}

	cards := make([]Card, 0, len(env.Data))
	for _, raw := range env.Data {
		if raw.ID <= 0 || raw.Name == "" {
			continue
		}
		cards = append(cards, raw.normalize())
	}
	return q.Apply(cards), nil
}

// Banlist fetches every card that is not Unlimited in the configured format.
func (c *Client) Banlist(ctx context.Context) (Banlist, error) {
	values := url.Values{}
	values.Set("banlist", c.banlistFormat)

	var env cardInfoEnvelope
	if err := c.getJSON(ctx, "banlist", values, &env); err != nil {
		if errors.Is(err, errNoMatch) {
			return Banlist{}, nil
		}
		return nil, err
	}

	out := make(Banlist, len(env.Data))
	for _, raw := range env.Data {
		status := deck.ParseBanStatus(raw.BanlistInfo.status(c.banlistFormat))
		if raw.Name == "" || status == deck.Unlimited {
			continue
		}
		out[raw.Name] = status
	}
	return out, nil
}

// SearchEnriched fetches the search page and the banlist concurrently and
// overlays ban status onto the results.
func (c *Client) SearchEnriched(ctx context.Context, f Filter) ([]Card, error) {
	q, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		cards   []Card
		banlist Banlist
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		cards, err = c.SearchQuery(ctx, q)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		banlist, err = c.Banlist(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return Enrich(cards, banlist), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, values url.Values, target any) error {
	if err := c.breaker.allow(); err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "circuit_open").Inc()
		c.logger.Warn("catalog circuit breaker rejected request", "endpoint", endpoint)
		return crerr.Wrap(ErrUpstreamUnavailable, "circuit open")
	}

	fullURL := c.baseURL + cardInfoPath
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err := c.shared(ctx, fullURL)
	if err != nil {
		switch {
		case errors.Is(err, errNoMatch):
			metrics.CatalogRequests.WithLabelValues(endpoint, "not_found").Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.CatalogRequests.WithLabelValues(endpoint, "canceled").Inc()
		default:
			metrics.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return crerr.Wrapf(ErrUpstreamUnavailable, "unexpected payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
		return crerr.Wrapf(ErrUpstreamUnavailable, "decode catalog payload: %v", err)
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// shared joins callers asking for the same URL onto one upstream request.
// The request outlives any single caller; each caller stops waiting when its
// own context ends.
func (c *Client) shared(ctx context.Context, fullURL string) (any, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(fullURL, func() (any, error) {
		raw, reqErr := c.execute(flightCtx, fullURL)
		if reqErr != nil && isTransient(reqErr) {
			c.breaker.failure()
		} else {
			c.breaker.success()
		}
		return raw, reqErr
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// upstreamError is a transient failure worth retrying and counting against
// the breaker.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var ue *upstreamError
	return errors.As(err, &ue)
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.once(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 250 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(backoff):
		}
	}

	c.logger.Warn("catalog request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &upstreamError{err: crerr.Wrapf(ErrUpstreamUnavailable, "send request: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &upstreamError{err: crerr.Wrapf(ErrUpstreamUnavailable, "read body: %v", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNoMatch
	case resp.StatusCode == http.StatusBadRequest && isNoMatchBody(raw):
		return nil, errNoMatch
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &upstreamError{err: crerr.Wrapf(ErrUpstreamUnavailable, "catalog status=%d", resp.StatusCode)}
	default:
		return nil, crerr.Wrapf(ErrUpstreamUnavailable, "catalog status=%d body=%s", resp.StatusCode, abbreviate(raw))
	}
}

func isNoMatchBody(raw []byte) bool {
	var env cardInfoEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(env.Error), noMatchMessage)
}

func abbreviate(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
