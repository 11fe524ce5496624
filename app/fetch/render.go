package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// RenderClient fetches through an external browser-rendering proxy that
// executes JavaScript and returns the settled DOM. It is the heavier
// transport for sources that serve nothing useful to a plain client; the
// rest of the pipeline cannot tell the two apart.
type RenderClient struct {
	client   *resty.Client
	endpoint string
}

func NewRenderClient(endpoint string, timeout time.Duration) *RenderClient {
	return &RenderClient{
		client:   resty.New().SetTimeout(timeout),
		endpoint: endpoint,
	}
}

func (r *RenderClient) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{URL: rawURL, Permanent: true, Err: fmt.Errorf("malformed URL")}
	}

	return withRetry(ctx, func() (*Response, error) {
		return r.attempt(ctx, rawURL)
	})
}

func (r *RenderClient) attempt(ctx context.Context, target string) (*Response, error) {
	start := time.Now()

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("url", target).
		SetQueryParam("wait_until", "networkidle").
		Get(r.endpoint)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}

	// The proxy relays the upstream status code.
	if resp.StatusCode() != 200 {
		return nil, &Error{URL: target, Status: resp.StatusCode(), Permanent: permanentStatus(resp.StatusCode())}
	}

	body := resp.Body()
	if len(body) > maxBodySize {
		body = body[:maxBodySize]
	}

	return &Response{
		Status:  resp.StatusCode(),
		Body:    body,
		Latency: time.Since(start),
	}, nil
}
