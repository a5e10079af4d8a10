package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/mtgbudget"
)

func formatAverage(avg decimal.NullDecimal, currency string) string {
	if !avg.Valid {
		return ""
	}
	return mtgbudget.FormatPrice(avg.Decimal, currency)
}

// renderTable prints one row per entry, with the offer averages when verbose
func renderTable(w io.Writer, report *mtgbudget.Report, verbose bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	header := table.Row{"", "Count", "Name", "Price", "Total", "Info"}
	if verbose {
		header = append(header, "Avg10", "Avg50")
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 7, Align: text.AlignRight},
			{Number: 8, Align: text.AlignRight},
		})
	}
	t.AppendHeader(header)
	for i := range report.Entries {
		entry := &report.Entries[i]

		price := mtgbudget.FormatPrice(entry.UnitPrice, report.Currency)
		if entry.ExceedsLimit {
			price = text.FgRed.Sprint(price)
		}
		row := table.Row{
			entry.Status.Symbol(),
			entry.Count,
			entry.Name,
			price,
			mtgbudget.FormatPrice(entry.TotalPrice, report.Currency),
			entry.Info(&report.Rules),
		}
		if verbose {
			row = append(row,
				formatAverage(entry.Avg10, report.Currency),
				formatAverage(entry.Avg50, report.Currency))
		}
		t.AppendRow(row)
	}

	verdict := report.Verdict()
	if verdict == "FAILED" {
		verdict = text.FgRed.Sprint(verdict)
	} else if verdict == "PASSED" {
		verdict = text.FgGreen.Sprint(verdict)
	}
	footer := table.Row{
		"TOTAL",
		report.CardCount,
		"",
		"",
		mtgbudget.FormatPrice(report.Total, report.Currency),
		verdict,
	}
	if verbose {
		footer = append(footer, "", "")
	}
	t.AppendFooter(footer)
	t.Render()
}

func renderStats(w io.Writer, report *mtgbudget.Report) {
	stats := report.Stats()
	if stats.Found == 0 {
		fmt.Fprintln(w, "No card found")
		return
	}
	fmt.Fprintf(w, "%d of %d entries found, mean price %s, median price %s\n",
		stats.Found, len(report.Entries),
		mtgbudget.FormatPrice(stats.Mean.Decimal, report.Currency),
		mtgbudget.FormatPrice(stats.Median.Decimal, report.Currency))
}
