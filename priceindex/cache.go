package priceindex

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/scizorman/go-ndjson"
	"github.com/ulikunitz/xz"
)

// Persist overwrites the cache file at path with records, one json object
// per line. The file is compressed if path ends in .xz or .bz2.
func Persist(path string, records []Record) error {
	output, err := ndjson.Marshal(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = writeCompressed(tmp, path, output)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func writeCompressed(file io.Writer, path string, data []byte) error {
	var writer io.WriteCloser
	var err error

	if strings.HasSuffix(path, ".xz") {
		writer, err = xz.NewWriter(file)
	} else if strings.HasSuffix(path, ".bz2") {
		writer, err = bzip2.NewWriter(file, nil)
	} else {
		_, err = file.Write(data)
		return err
	}
	if err != nil {
		return err
	}

	_, err = writer.Write(data)
	if err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// ReadCache loads the records stored in a cache file
func ReadCache(path string) ([]Record, error) {
	reader, err := OpenDump(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	err = ndjson.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("malformed cache %s: %w", path, err)
	}
	return records, nil
}

// Load builds an index from a cache file. A missing or malformed file is
// not an error, a warning is logged and an empty index is returned.
func Load(path string, log func(format string, a ...interface{})) *Index {
	records, err := ReadCache(path)
	if err != nil {
		if log != nil {
			if os.IsNotExist(err) {
				log("no price cache found at %s", path)
			} else {
				log("warning: unable to load price cache: %s", err.Error())
			}
		}
		return New(nil)
	}
	return New(records)
}
