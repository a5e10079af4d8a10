package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprintf(w, "ua=%s accept=%s", r.Header.Get("User-Agent"), r.Header.Get("Accept"))
		case "/throttled":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/cookie":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			fmt.Fprint(w, "set")
		case "/whoami":
			cookie, err := r.Cookie("session")
			if err != nil {
				fmt.Fprint(w, "anonymous")
				return
			}
			fmt.Fprint(w, cookie.Value)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPFetcher(t *testing.T) {
	ts := newTestServer(t)

	hf := NewHTTPFetcher()
	hf.Header.Set("User-Agent", "cardbudget-test")
	hf.Header.Set("Accept", "application/json")
	defer hf.Close()

	page, err := hf.Fetch(context.Background(), ts.URL+"/ok")
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if page.StatusCode != http.StatusOK || string(page.Body) != "ua=cardbudget-test accept=application/json" {
		t.Errorf("FAIL: Unexpected page %d %q", page.StatusCode, page.Body)
	}

	// Status codes are not errors at this level
	for path, code := range map[string]int{"/throttled": 429, "/missing": 404} {
		page, err := hf.Fetch(context.Background(), ts.URL+path)
		if err != nil {
			t.Errorf("FAIL: %s: unexpected error: %s", path, err.Error())
			continue
		}
		if page.StatusCode != code {
			t.Errorf("FAIL: %s: expected %d, got %d", path, code, page.StatusCode)
		}
	}

	hf.Close()
	_, err = hf.Fetch(context.Background(), ts.URL+"/ok")
	if err != nil {
		t.Errorf("FAIL: Fetch after Close failed: %s", err.Error())
	}
}

func TestHTTPFetcherTransportError(t *testing.T) {
	ts := newTestServer(t)
	link := ts.URL + "/ok"
	ts.Close()

	hf := NewHTTPFetcher()
	_, err := hf.Fetch(context.Background(), link)
	if err == nil {
		t.Errorf("FAIL: Expected error from a closed server")
	}
}

func TestSessionFetcher(t *testing.T) {
	ts := newTestServer(t)

	sf := NewSessionFetcher()
	sf.CloudflareBypass = false
	sf.UserAgent = "cardbudget-session"
	defer sf.Close()

	page, err := sf.Fetch(context.Background(), ts.URL+"/ok")
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if page.StatusCode != http.StatusOK || page.URL != ts.URL+"/ok" {
		t.Errorf("FAIL: Unexpected page %+v", page)
	}

	// Cookies are kept within a session
	_, err = sf.Fetch(context.Background(), ts.URL+"/cookie")
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	for i := 0; i < 2; i++ {
		page, err = sf.Fetch(context.Background(), ts.URL+"/whoami")
		if err != nil {
			t.Fatalf("FAIL: Unexpected error: %s", err.Error())
		}
		if string(page.Body) != "abc" {
			t.Errorf("FAIL: Session cookie lost: %q", page.Body)
		}
	}

	// Error pages are returned
	page, err = sf.Fetch(context.Background(), ts.URL+"/throttled")
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if page.StatusCode != http.StatusTooManyRequests {
		t.Errorf("FAIL: Expected 429, got %d", page.StatusCode)
	}

	// A new session starts anonymous
	sf.Close()
	page, err = sf.Fetch(context.Background(), ts.URL+"/whoami")
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if string(page.Body) != "anonymous" {
		t.Errorf("FAIL: Session survived Close: %q", page.Body)
	}
}

func TestSessionFetcherBackoff(t *testing.T) {
	ts := newTestServer(t)

	sf := NewSessionFetcher()
	sf.CloudflareBypass = false
	defer sf.Close()

	recorder := &sleepRecorder{}
	backoff := NewBackoff()
	backoff.Sleep = recorder.Sleep

	_, err := backoff.Fetch(context.Background(), sf, ts.URL+"/throttled", nil)
	if err == nil {
		t.Errorf("FAIL: Expected rate limit error")
	}
	if len(recorder.delays) != DefaultMaxRetries {
		t.Errorf("FAIL: Expected %d retries, got %d", DefaultMaxRetries, len(recorder.delays))
	}
}

func TestDownload(t *testing.T) {
	ts := newTestServer(t)
	dst := filepath.Join(t.TempDir(), "dumps", "ok.txt")

	n, err := Download(context.Background(), ts.URL+"/ok", dst)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if int64(len(data)) != n || n == 0 {
		t.Errorf("FAIL: Expected %d bytes, got %d", n, len(data))
	}

	_, err = Download(context.Background(), ts.URL+"/missing", dst)
	if !IsNotFound(err) {
		t.Errorf("FAIL: Expected not found, got %v", err)
	}
	// Previous download is untouched
	again, _ := os.ReadFile(dst)
	if string(again) != string(data) {
		t.Errorf("FAIL: Destination was modified by a failed download")
	}
}
