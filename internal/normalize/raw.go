package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// text accepts a JSON string, number or bool. Anything else leaves it unset.
type text struct {
	value string
	set   bool
}

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		t.value, t.set = s, true
	case 't', 'f':
		t.value, t.set = string(data), true
	case 'n', '{', '[':
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil
		}
		t.value, t.set = n.String(), true
	}
	return nil
}

// present reports whether the value is usable as an identity component.
func (t text) present() bool {
	return t.set && strings.TrimSpace(t.value) != ""
}

// millis is a timestamp that may arrive as a number or a numeric string.
// Strings that do not parse become NaN.
type millis struct {
	value float64
	set   bool
}

func (m *millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' {
		return nil
	}

	m.set = true
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			m.value = math.NaN()
			return nil
		}
		m.value = coerceNumber(s)
	case 't':
		m.value = 1
	case 'f':
		m.value = 0
	case '{', '[':
		m.value = math.NaN()
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			v = math.NaN()
		}
		m.value = v
	}
	return nil
}

// coerceNumber converts a numeric string; blank strings are zero.
func coerceNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

type rawOrder struct {
	ID        text   `json:"id"`
	OrderID   text   `json:"orderId"`
	ClientOID text   `json:"clientOid"`
	Symbol    text   `json:"symbol"`
	Side      text   `json:"side"`
	Type      text   `json:"type"`
	OrderType text   `json:"orderType"`
	Amount    text   `json:"amount"`
	Size      text   `json:"size"`
	Price     text   `json:"price"`
	Filled    text   `json:"filled"`
	Remaining text   `json:"remaining"`
	Status    text   `json:"status"`
	CreatedAt millis `json:"createdAt"`
	UpdatedAt millis `json:"updatedAt"`
	CTime     millis `json:"cTime"`
	UTime     millis `json:"uTime"`
}

type rawPosition struct {
	ID               text   `json:"id"`
	Symbol           text   `json:"symbol"`
	Side             text   `json:"side"`
	HoldSide         text   `json:"holdSide"`
	Size             text   `json:"size"`
	NotionalSize     text   `json:"notionalSize"`
	AvgPrice         text   `json:"avgPrice"`
	MarkPrice        text   `json:"markPrice"`
	PnL              text   `json:"pnl"`
	PnLPercent       text   `json:"pnlPercent"`
	Margin           text   `json:"margin"`
	LiquidationPrice text   `json:"liquidationPrice"`
	CreatedAt        millis `json:"createdAt"`
	UpdatedAt        millis `json:"updatedAt"`
	CTime            millis `json:"cTime"`
	UTime            millis `json:"uTime"`
}

type rawTicker struct {
	Symbol           text   `json:"symbol"`
	InstID           text   `json:"instId"`
	Price            text   `json:"price"`
	LastPr           text   `json:"lastPr"`
	Change24h        text   `json:"change24h"`
	Change24hPercent text   `json:"change24hPercent"`
	Volume24h        text   `json:"volume24h"`
	BaseVolume       text   `json:"baseVolume"`
	High24h          text   `json:"high24h"`
	Low24h           text   `json:"low24h"`
	Timestamp        millis `json:"timestamp"`
	TS               millis `json:"ts"`
}

// firstText returns the first set value in precedence order.
func firstText(candidates ...text) string {
	for _, c := range candidates {
		if c.set {
			return c.value
		}
	}
	return ""
}

// firstPresent is firstText for identity fields, where blank values do not count.
func firstPresent(candidates ...text) (string, bool) {
	for _, c := range candidates {
		if c.present() {
			return c.value, true
		}
	}
	return "", false
}

func firstMillis(candidates ...millis) (float64, bool) {
	for _, c := range candidates {
		if c.set {
			return c.value, true
		}
	}
	return 0, false
}
