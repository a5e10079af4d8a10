package mtgbudget

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// The canonical header present in all exported reports
var ReportHeader = []string{
	"Symbol", "Count", "Price", "Total", "Info", "Name",
}

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
}

// FormatPrice renders an amount with two decimals and the symbol of currency
func FormatPrice(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + currencySymbols[currency]
}

// WriteReportToCSV exports the report as a semicolon separated file, with
// a trailing TOTAL row containing the number of cards, the total and the
// verdict (if any limit was set).
func WriteReportToCSV(report *Report, w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'

	err := csvWriter.Write(ReportHeader)
	if err != nil {
		return err
	}

	for _, entry := range report.Entries {
		err = csvWriter.Write([]string{
			entry.Status.Symbol(),
			fmt.Sprint(entry.Count),
			FormatPrice(entry.UnitPrice, report.Currency),
			FormatPrice(entry.TotalPrice, report.Currency),
			entry.Info(&report.Rules),
			entry.Name,
		})
		if err != nil {
			return err
		}
	}

	err = csvWriter.Write([]string{
		"TOTAL",
		fmt.Sprint(report.CardCount),
		"",
		FormatPrice(report.Total, report.Currency),
		report.Verdict(),
		"",
	})
	if err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
