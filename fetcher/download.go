package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// Download saves the resource at link to dst, replacing any existing file
// only once the transfer is complete. Transient failures are retried.
func Download(ctx context.Context, link, dst string) (int64, error) {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = DefaultMaxRetries

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{
			URL:        link,
			StatusCode: resp.StatusCode,
		}
	}

	dir := filepath.Dir(dst)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("download of %s interrupted: %w", link, err)
	}
	err = tmp.Close()
	if err != nil {
		return 0, err
	}

	return n, os.Rename(tmp.Name(), dst)
}
