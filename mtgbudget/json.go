package mtgbudget

import (
	"encoding/json"
	"io"

	"github.com/scizorman/go-ndjson"
)

type reportJSON struct {
	Report
	Verdict string      `json:"verdict,omitempty"`
	Stats   ReportStats `json:"stats"`
}

func WriteReportToJSON(report *Report, w io.Writer) error {
	data := reportJSON{
		Report:  *report,
		Verdict: report.Verdict(),
		Stats:   report.Stats(),
	}
	return json.NewEncoder(w).Encode(&data)
}

// WriteReportToNDJSON outputs one line per entry, without totals
func WriteReportToNDJSON(report *Report, w io.Writer) error {
	output, err := ndjson.Marshal(report.Entries)
	if err != nil {
		return err
	}

	_, err = w.Write(output)
	return err
}
