package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	"github.com/mtgban/go-mtgbudget/mtgbudget"
)

// reportFormat returns the format of the file at path, from its extension
func reportFormat(path string) (string, error) {
	base := strings.ToLower(path)
	base = strings.TrimSuffix(base, ".xz")
	base = strings.TrimSuffix(base, ".bz2")

	for _, format := range []string{"ndjson", "json", "csv"} {
		if strings.HasSuffix(base, "."+format) {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported output format for %s, use .csv, .json or .ndjson", path)
}

func writeReport(report *mtgbudget.Report, path string) error {
	format, err := reportFormat(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	err = encodeReport(file, report, path, format)
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// encodeReport writes report to w in the given format, compressing it when
// path ends in .xz or .bz2
func encodeReport(w io.Writer, report *mtgbudget.Report, path, format string) error {
	var compressor io.WriteCloser
	var err error
	if strings.HasSuffix(path, ".xz") {
		compressor, err = xz.NewWriter(w)
	} else if strings.HasSuffix(path, ".bz2") {
		compressor, err = bzip2.NewWriter(w, nil)
	}
	if err != nil {
		return err
	}

	writer := w
	if compressor != nil {
		writer = compressor
	}

	switch format {
	case "csv":
		err = mtgbudget.WriteReportToCSV(report, writer)
	case "json":
		err = mtgbudget.WriteReportToJSON(report, writer)
	case "ndjson":
		err = mtgbudget.WriteReportToNDJSON(report, writer)
	default:
		err = fmt.Errorf("unsupported output format %s", format)
	}

	if compressor == nil {
		return err
	}
	if err != nil {
		compressor.Close()
		return err
	}
	return compressor.Close()
}
