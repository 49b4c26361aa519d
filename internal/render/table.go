// Package render draws transactions and session metrics as terminal tables,
// markdown and PNG charts.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// NewMarker flags the most recent transaction in the table
const NewMarker = "NEW"

// TransactionTable writes the transaction list, newest first
func TransactionTable(w io.Writer, txs []transactions.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Amount", "Location", "Time", "Status", "Risk", ""})
	table.SetAutoWrapText(false)

	for _, tx := range txs {
		marker := ""
		if tx.IsNew {
			marker = NewMarker
		}
		table.Append([]string{
			tx.ID,
			"$" + tx.Amount.StringFixed(2),
			tx.Location,
			tx.DisplayTime(),
			strings.ToUpper(string(tx.Status)),
			fmt.Sprintf("%d%% (%s)", tx.RiskScore, transactions.RiskBand(tx.RiskScore)),
			marker,
		})
	}

	table.SetFooter([]string{"", "", "", "", "", "", fmt.Sprintf("%d shown", len(txs))})
	table.Render()
}

// SessionSummary writes the counters and per-operation timings of a session
func SessionSummary(w io.Writer, result *metrics.SessionResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	fillSummary(table, result)
	table.Render()
}

// SessionMarkdown writes the session summary as a markdown document
func SessionMarkdown(w io.Writer, result *metrics.SessionResult) {
	fmt.Fprintf(w, "# FraudShield Session %s\n\n", result.SessionID)
	fmt.Fprintf(w, "Started: %s\n", result.StartTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n\n", result.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	fillSummary(table, result)
	table.Render()
}

func fillSummary(table *tablewriter.Table, result *metrics.SessionResult) {
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	keys := make([]string, 0, len(result.Summary))
	for k := range result.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, formatValue(k, result.Summary[k])})
	}
}

// formatValue renders durations recorded in nanoseconds as milliseconds.
// Values read back from JSON arrive as float64.
func formatValue(key string, v interface{}) string {
	isDuration := strings.HasSuffix(key, ".avgDuration") ||
		strings.HasSuffix(key, ".p50") ||
		strings.HasSuffix(key, ".p90") ||
		strings.HasSuffix(key, ".p99")

	switch n := v.(type) {
	case int64:
		if isDuration {
			return fmt.Sprintf("%.3f ms", float64(n)/1e6)
		}
		return fmt.Sprintf("%d", n)
	case float64:
		if isDuration {
			return fmt.Sprintf("%.3f ms", n/1e6)
		}
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}
