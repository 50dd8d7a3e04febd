// Package render formats scan records for terminals and machines.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/memecoin-scanner/internal/types"
)

const nameMaxLen = 15

// ANSI colour codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SortRecords returns a copy of records ordered by score, then 24h change, both
// descending. Records without a score come after every scored record.
func SortRecords(records []types.ScanRecord) []types.ScanRecord {
	sorted := make([]types.ScanRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Analysis, sorted[j].Analysis
		if a.HasScore() != b.HasScore() {
			return a.HasScore()
		}
		if a.HasScore() && *a.Score != *b.Score {
			return *a.Score > *b.Score
		}
		return sorted[i].Item.Quote.PercentChange24h > sorted[j].Item.Quote.PercentChange24h
	})
	return sorted
}

// paint wraps s in colour codes when enabled
type painter struct {
	enabled bool
}

func (p painter) paint(s string, codes ...string) string {
	if !p.enabled || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + colorReset
}

// signColor picks green for positive values and red otherwise
func signColor(v float64) string {
	if v > 0 {
		return colorGreen
	}
	return colorRed
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// formatVolumeChange renders a zero change as N/A, as the provider omits it for new listings
func formatVolumeChange(v float64) string {
	if v == 0 {
		return types.NotAvailable
	}
	return formatPercent(v)
}

// formatMillions renders a USD amount as $x.xxM
func formatMillions(v float64) string {
	return "$" + groupThousands(fmt.Sprintf("%.2f", v/1e6)) + "M"
}

// formatUSD renders a USD amount with thousands separators
func formatUSD(v float64) string {
	return "$" + groupThousands(fmt.Sprintf("%.2f", v))
}

// groupThousands inserts commas into the integer part of a formatted decimal
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}

// truncateName keeps at most nameMaxLen runes, marking cut names with an ellipsis
func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= nameMaxLen {
		return name
	}
	return string([]rune(name)[:nameMaxLen]) + "..."
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
