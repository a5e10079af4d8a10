// Package fetcher retrieves remote pages for the price sources, and takes
// care of surviving the throttling they apply.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited is returned when a page kept being throttled after all
// the retries allowed.
var ErrRateLimited = errors.New("rate limited")

// Page is the raw outcome of a request, whatever its status
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a single page at a time. A transport failure is
// reported as an error, any status code is reported in the Page.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (*Page, error)
	Close() error
}

// StatusError reports an unexpected, non-retriable, status code
type StatusError struct {
	URL        string
	StatusCode int
}

func (se *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d (%s) for %s", se.StatusCode, http.StatusText(se.StatusCode), se.URL)
}

// IsNotFound reports whether err is a 404 StatusError
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Fake is a Fetcher serving canned responses, for tests
type Fake struct {
	// Called for every request, the returned page URL defaults to link
	Handler func(link string) (*Page, error)

	// Every link requested, in order
	Requests []string

	closed int
}

func (f *Fake) Fetch(ctx context.Context, link string) (*Page, error) {
	f.Requests = append(f.Requests, link)
	page, err := f.Handler(link)
	if page != nil && page.URL == "" {
		page.URL = link
	}
	return page, err
}

func (f *Fake) Close() error {
	f.closed++
	return nil
}

// Calls returns the number of requests served
func (f *Fake) Calls() int {
	return len(f.Requests)
}

// Closed returns how many times Close was called
func (f *Fake) Closed() int {
	return f.closed
}
