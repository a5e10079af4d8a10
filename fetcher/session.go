package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/corpix/uarand"
	colly "github.com/gocolly/colly/v2"
	"github.com/hashicorp/go-cleanhttp"
)

// SessionFetcher browses pages like a returning visitor, keeping cookies
// and the same user agent across requests. The session is created on the
// first Fetch and torn down by Close.
type SessionFetcher struct {
	// A random desktop browser is used if empty
	UserAgent string

	// Route requests through a transport mimicking a browser handshake
	CloudflareBypass bool

	collector *colly.Collector
	client    *http.Client
}

var errNoResponse = errors.New("request completed without a response")

func NewSessionFetcher() *SessionFetcher {
	return &SessionFetcher{
		CloudflareBypass: true,
	}
}

func (sf *SessionFetcher) session() (*colly.Collector, error) {
	if sf.collector != nil {
		return sf.collector, nil
	}

	userAgent := sf.UserAgent
	if userAgent == "" {
		userAgent = uarand.GetRandom()
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(maxBodySize),
	)

	client := cleanhttp.DefaultPooledClient()
	if sf.CloudflareBypass {
		client.Transport = cloudflarebp.AddCloudFlareByPass(client.Transport)
	}
	c.SetClient(client)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.SetCookieJar(jar)

	sf.collector = c
	sf.client = client
	return c, nil
}

func (sf *SessionFetcher) Fetch(ctx context.Context, link string) (*Page, error) {
	session, err := sf.session()
	if err != nil {
		return nil, err
	}

	// Callbacks are bound to a single request, while the clone keeps
	// sharing the client and cookies of the session
	c := session.Clone()
	c.Context = ctx

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})

	err = c.Visit(link)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, errNoResponse
	}
	return page, nil
}

// Close forgets the session and its cookies
func (sf *SessionFetcher) Close() error {
	if sf.client != nil {
		sf.client.CloseIdleConnections()
	}
	sf.collector = nil
	sf.client = nil
	return nil
}
