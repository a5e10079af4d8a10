package fetcher

import (
	"context"
	"io"
	"net/http"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"
)

const maxBodySize = 32 << 20

// HTTPFetcher performs plain requests over a pooled connection, suitable
// for json APIs.
type HTTPFetcher struct {
	// Headers added to every request
	Header http.Header

	// Requests wait for a token before being sent, if set
	Limiter *rate.Limiter

	// Route requests through a transport mimicking a browser handshake
	CloudflareBypass bool

	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Header: http.Header{},
	}
}

func (hf *HTTPFetcher) Fetch(ctx context.Context, link string) (*Page, error) {
	if hf.client == nil {
		hf.client = cleanhttp.DefaultPooledClient()
		if hf.CloudflareBypass {
			hf.client.Transport = cloudflarebp.AddCloudFlareByPass(hf.client.Transport)
		}
	}

	if hf.Limiter != nil {
		err := hf.Limiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range hf.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := hf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// Close drops the underlying connections, a later Fetch will set up a new
// client.
func (hf *HTTPFetcher) Close() error {
	if hf.client != nil {
		hf.client.CloseIdleConnections()
		hf.client = nil
	}
	return nil
}
