// Package format turns raw decimal strings and timestamps into display strings.
// Every function is total: unparseable input yields a fixed placeholder.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tradedash/internal/models"
)

const DefaultPriceDecimals = 4

var (
	printer = message.NewPrinter(language.English)

	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	hundred  = decimal.NewFromInt(100)
)

func parse(value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Price renders a value with en-US grouping and a fixed number of decimals.
func Price(value string, decimals int) string {
	d, ok := parse(value)
	if !ok {
		return "0.00"
	}
	if decimals < 0 {
		decimals = DefaultPriceDecimals
	}
	rounded := d.Round(int32(decimals)).InexactFloat64()
	return printer.Sprintf("%."+strconv.Itoa(decimals)+"f", rounded)
}

func Volume(value string) string {
	d, ok := parse(value)
	if !ok {
		return "0"
	}

	switch {
	case d.GreaterThanOrEqual(billion):
		return d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return d.Div(million).StringFixed(2) + "M"
	case d.GreaterThanOrEqual(thousand):
		return d.Div(thousand).StringFixed(2) + "K"
	}
	return d.StringFixed(2)
}

func PnL(value string) string {
	d, ok := parse(value)
	if !ok {
		return "0.00"
	}
	return signed(d) + d.StringFixed(2)
}

func Percent(value string) string {
	d, ok := parse(value)
	if !ok {
		return "0.00%"
	}
	return signed(d) + d.StringFixed(2) + "%"
}

func signed(d decimal.Decimal) string {
	if d.Sign() >= 0 {
		return "+"
	}
	return ""
}

// Time renders epoch milliseconds as a 24h HH:MM:SS clock. A nil location means local time.
func Time(ms float64, loc *time.Location) string {
	t, ok := toTime(ms, loc)
	if !ok {
		return "--"
	}
	return t.Format("15:04:05")
}

func Date(ms float64, loc *time.Location) string {
	t, ok := toTime(ms, loc)
	if !ok {
		return "--"
	}
	return t.Format("01/02/2006")
}

func DateTime(ms float64, loc *time.Location) string {
	if _, ok := toTime(ms, loc); !ok {
		return "--"
	}
	return Date(ms, loc) + " " + Time(ms, loc)
}

// Millis is Time for optional model timestamps.
func Millis(ms *models.EpochMillis, loc *time.Location) string {
	if ms == nil {
		return "--"
	}
	return Time(ms.Float(), loc)
}

// Elapsed renders a duration as an HH:MM:SS clock. Negative durations clamp to zero.
func Elapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func toTime(ms float64, loc *time.Location) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(int64(ms)).In(loc), true
}

func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if maxLength < 0 || len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "..."
}

func OrderSize(filled, total string) string {
	if _, ok := parse(filled); !ok {
		return "0/0"
	}
	if _, ok := parse(total); !ok {
		return "0/0"
	}
	return Price(filled, 6) + "/" + Price(total, 6)
}

// FillPercent is filled/total*100, or 0 when either side is invalid or total is zero.
func FillPercent(filled, total string) float64 {
	f, ok := parse(filled)
	if !ok {
		return 0
	}
	t, ok := parse(total)
	if !ok || t.IsZero() {
		return 0
	}
	return f.Div(t).Mul(hundred).InexactFloat64()
}

func FillPercentString(filled, total string) string {
	return strconv.FormatFloat(FillPercent(filled, total), 'f', 1, 64)
}

// SumPnL adds up position pnl values; unparseable entries count as zero.
func SumPnL(positions []models.Position) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range positions {
		if d, ok := parse(p.PnL); ok {
			sum = sum.Add(d)
		}
	}
	return sum
}
