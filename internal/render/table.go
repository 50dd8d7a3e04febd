package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/memecoin-scanner/internal/types"
)

// TopN is the number of records shown in the detail view
const TopN = 5

// TableRenderer prints a summary table followed by a detail view of the best records
type TableRenderer struct {
	w     io.Writer
	chain string
	p     painter
}

// NewTableRenderer creates a table renderer writing to w. Colour is enabled only
// when w is a terminal.
func NewTableRenderer(w io.Writer, chain string) *TableRenderer {
	return NewTableRendererWithColor(w, chain, IsTerminal(w))
}

// NewTableRendererWithColor creates a table renderer with explicit colour control
func NewTableRendererWithColor(w io.Writer, chain string, color bool) *TableRenderer {
	return &TableRenderer{w: w, chain: chain, p: painter{enabled: color}}
}

// Render implements service.Renderer
func (r *TableRenderer) Render(records []types.ScanRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(r.w, "\nNo trending tokens found")
		return err
	}

	sorted := SortRecords(records)

	if err := r.renderSummary(sorted); err != nil {
		return err
	}
	return r.renderDetails(sorted)
}

func (r *TableRenderer) renderSummary(records []types.ScanRecord) error {
	title := fmt.Sprintf("TRENDING %s MEMECOINS", strings.ToUpper(r.chain))

	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(r.w, r.p.paint(title, colorBold, colorYellow))
	fmt.Fprintln(r.w, strings.Repeat("=", 80)+"\n")

	// colour codes confuse tabwriter's width accounting, so the table is uncoloured
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Symbol\tName\tPrice 24h\tVolume\tVol Change\tMarket Cap\tScore\tSignal\tToken Address")
	fmt.Fprintln(tw, "------\t----\t---------\t------\t----------\t----------\t-----\t------\t-------------")

	for _, rec := range records {
		q := rec.Item.Quote
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Item.Symbol,
			truncateName(rec.Item.Name),
			formatPercent(q.PercentChange24h),
			formatMillions(q.Volume24h),
			formatVolumeChange(q.VolumeChange24h),
			formatMillions(q.MarketCap),
			rec.Analysis.ScoreString(),
			rec.Analysis.Interpretation,
			rec.Metadata.TokenAddress,
		)
	}
	return tw.Flush()
}

func (r *TableRenderer) renderDetails(records []types.ScanRecord) error {
	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", 40))
	fmt.Fprintln(r.w, r.p.paint(fmt.Sprintf("TOP %d DETAILED VIEW", TopN), colorBold, colorYellow))
	fmt.Fprintln(r.w, strings.Repeat("=", 40))

	n := len(records)
	if n > TopN {
		n = TopN
	}

	for i, rec := range records[:n] {
		q := rec.Item.Quote

		fmt.Fprintf(r.w, "\n%s %s - %s\n",
			r.p.paint(fmt.Sprintf("#%d", i+1), colorBold, colorCyan),
			r.p.paint(rec.Item.Symbol, colorBold, colorYellow),
			rec.Item.Name)
		fmt.Fprintln(r.w, strings.Repeat("=", 50))

		fmt.Fprintf(r.w, "Price Change: %s\n", r.p.paint(formatPercent(q.PercentChange24h), signColor(q.PercentChange24h)))
		fmt.Fprintf(r.w, "Volume: %s\n", formatUSD(q.Volume24h))
		fmt.Fprintf(r.w, "Volume Change: %s\n", r.p.paint(formatPercent(q.VolumeChange24h), signColor(q.VolumeChange24h)))
		fmt.Fprintf(r.w, "Market Cap: %s\n", formatUSD(q.MarketCap))
		fmt.Fprintf(r.w, "Score: %s\n", r.p.paint(rec.Analysis.ScoreString(), colorCyan))
		fmt.Fprintf(r.w, "Signal: %s\n", r.p.paint(rec.Analysis.Interpretation, colorYellow))
		fmt.Fprintf(r.w, "\nToken Address: %s\n", r.p.paint(rec.Metadata.TokenAddress, colorBlue))

		if rec.Metadata.Twitter != "" {
			fmt.Fprintf(r.w, "Twitter: %s\n", rec.Metadata.Twitter)
		}
		if rec.Metadata.Telegram != "" {
			fmt.Fprintf(r.w, "Telegram: %s\n", rec.Metadata.Telegram)
		}
		if rec.Metadata.Explorer != "" {
			fmt.Fprintf(r.w, "Explorer: %s\n", rec.Metadata.Explorer)
		}
		if _, err := fmt.Fprintln(r.w, strings.Repeat("=", 50)); err != nil {
			return err
		}
	}
	return nil
}
