package priceindex

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/hashicorp/go-cleanhttp"
	xzReader "github.com/xi2/xz"
)

var ErrArrayNotFound = errors.New("array not found")

// OpenDump opens a local file or a remote http(s) resource, decompressing
// it according to its extension.
func OpenDump(pathOpt string) (io.ReadCloser, error) {
	var reader io.ReadCloser

	u, err := url.Parse(pathOpt)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		resp, err := cleanhttp.DefaultClient().Get(pathOpt)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, pathOpt)
		}

		reader = resp.Body
	default:
		file, err := os.Open(pathOpt)
		if err != nil {
			return nil, err
		}

		reader = file
	}

	if strings.HasSuffix(pathOpt, "xz") {
		xzReader, err := xzReader.NewReader(reader, 0)
		if err != nil {
			reader.Close()
			return nil, err
		}
		reader = &wrappedReader{Reader: xzReader, closer: reader}
	} else if strings.HasSuffix(pathOpt, "bz2") {
		bz2Reader, err := bzip2.NewReader(reader, nil)
		if err != nil {
			reader.Close()
			return nil, err
		}
		reader = &wrappedReader{Reader: bz2Reader, closer: reader}
	} else if strings.HasSuffix(pathOpt, "gz") {
		zipReader, err := gzip.NewReader(reader)
		if err != nil {
			reader.Close()
			return nil, err
		}
		reader = &wrappedReader{Reader: zipReader, closer: reader}
	}

	return reader, nil
}

// Closes the underlying file along with the decompressor
type wrappedReader struct {
	io.Reader
	closer io.Closer
}

func (wr *wrappedReader) Close() error {
	if c, ok := wr.Reader.(io.Closer); ok {
		c.Close()
	}
	return wr.closer.Close()
}

// StreamArray walks a json document one array element at a time, calling
// fn with the decoder positioned on each element. The array is either the
// document itself, or the value of the top-level key matching key
// case-insensitively. fn must consume exactly one value.
func StreamArray(r io.Reader, key string, fn func(dec *json.Decoder) error) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case json.Delim('['):
		return streamElements(dec, fn)
	case json.Delim('{'):
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		if key != "" && strings.EqualFold(field, key) {
			tok, err = dec.Token()
			if err != nil {
				return err
			}
			if tok != json.Delim('[') {
				return fmt.Errorf("%s is not an array", field)
			}
			return streamElements(dec, fn)
		}

		// Skip over the value of any other key
		var skip json.RawMessage
		err = dec.Decode(&skip)
		if err != nil {
			return err
		}
	}

	return ErrArrayNotFound
}

func streamElements(dec *json.Decoder, fn func(dec *json.Decoder) error) error {
	for dec.More() {
		err := fn(dec)
		if err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}
