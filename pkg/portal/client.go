package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raterudder/solarrelay/pkg/common"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

// maxBodySize caps how much of a portal response is read. The overview page
// is the largest response and is well under this.
const maxBodySize = 4 << 20

// Client talks to the EG4 monitoring portal. It holds the session cookies in
// memory for the lifetime of the value; nothing is persisted between runs.
type Client struct {
	client     *http.Client
	baseURL    string
	aliases    fieldAliases
	strategies []strategy
	now        func() time.Time
}

// NewClient returns a portal client for baseURL. Every request is bounded by
// timeout. overrides may add key aliases or replace the strategy list.
func NewClient(baseURL string, timeout time.Duration, overrides types.Overrides) (*Client, error) {
	hc, err := common.SessionHTTPClient(timeout)
	if err != nil {
		return nil, err
	}
	return newClient(hc, baseURL, overrides)
}

func newClient(hc *http.Client, baseURL string, overrides types.Overrides) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid portal url (%s): %w", baseURL, err)
	}
	specs := overrides.Strategies
	if len(specs) == 0 {
		specs = defaultStrategies
	}
	strategies, err := buildStrategies(specs)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:     hc,
		baseURL:    baseURL,
		aliases:    newFieldAliases(overrides.Aliases),
		strategies: strategies,
		now:        time.Now,
	}, nil
}

func (c *Client) endpointURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	p, err := url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}
	// the cookie jar only path-matches absolute paths
	u.Path = "/" + strings.TrimPrefix(p, "/")
	return u, nil
}

func (c *Client) newPostFormRequest(ctx context.Context, endpoint string, data url.Values) (*http.Request, error) {
	u, err := c.endpointURL(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := c.endpointURL(endpoint)
	if err != nil {
		return nil, err
	}

	u.RawQuery = params.Encode()
	return http.NewRequestWithContext(ctx, "GET", u.String(), nil)
}

// do sends an authenticated request and returns the body of a 200 response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		log.Ctx(req.Context()).DebugContext(
			req.Context(),
			"portal request failed",
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}
