package dashboard

import (
	"strings"
	"time"

	"tradedash/internal/format"
	"tradedash/internal/models"
	"tradedash/internal/store"
)

// View is the render-ready form of a store snapshot: every number is already
// formatted and every row carries the tone used to colour it.
type View struct {
	Connected bool          `json:"connected"`
	Loading   bool          `json:"loading"`
	Error     string        `json:"error,omitempty"`
	Ticker    *TickerView   `json:"ticker"`
	Orders    []OrderRow    `json:"orders"`
	Positions []PositionRow `json:"positions"`
	TotalPnL  string        `json:"totalPnl"`
	PnLTone   format.Tone   `json:"pnlTone"`
	Version   uint64        `json:"version"`
}

type TickerView struct {
	Symbol        string      `json:"symbol"`
	Price         string      `json:"price"`
	Change        string      `json:"change"`
	ChangePercent string      `json:"changePercent"`
	ChangeTone    format.Tone `json:"changeTone"`
	Volume        string      `json:"volume"`
	High          string      `json:"high"`
	Low           string      `json:"low"`
	Updated       string      `json:"updated"`
}

type OrderRow struct {
	ID          string      `json:"id"`
	ShortID     string      `json:"shortId"`
	Symbol      string      `json:"symbol"`
	Side        string      `json:"side"`
	SideTone    format.Tone `json:"sideTone"`
	Type        string      `json:"type"`
	Price       string      `json:"price"`
	Size        string      `json:"size"`
	FillPercent string      `json:"fillPercent"`
	Status      string      `json:"status"`
	StatusTone  format.Tone `json:"statusTone"`
	Created     string      `json:"created"`
}

type PositionRow struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        string      `json:"side"`
	SideTone    format.Tone `json:"sideTone"`
	Size        string      `json:"size"`
	AvgPrice    string      `json:"avgPrice"`
	MarkPrice   string      `json:"markPrice"`
	Margin      string      `json:"margin"`
	PnL         string      `json:"pnl"`
	PnLPercent  string      `json:"pnlPercent"`
	PnLTone     format.Tone `json:"pnlTone"`
	Liquidation string      `json:"liquidation"`
	Updated     string      `json:"updated"`
}

const (
	idLength     = 8
	sizeDecimals = 6
	noValue      = "--"
)

func BuildView(st store.State, loc *time.Location) View {
	view := View{
		Connected: st.IsConnected,
		Loading:   st.IsLoading,
		Orders:    make([]OrderRow, 0, len(st.Orders)),
		Positions: make([]PositionRow, 0, len(st.Positions)),
		Version:   st.Version,
	}
	if st.Error != nil {
		view.Error = *st.Error
	}
	if st.Ticker != nil {
		view.Ticker = tickerView(*st.Ticker, loc)
	}
	for _, o := range st.Orders {
		view.Orders = append(view.Orders, orderRow(o, loc))
	}
	for _, p := range st.Positions {
		view.Positions = append(view.Positions, positionRow(p, loc))
	}

	total := format.SumPnL(st.Positions).String()
	view.TotalPnL = format.PnL(total)
	view.PnLTone = format.Change(total)
	return view
}

func tickerView(t models.Ticker, loc *time.Location) *TickerView {
	updated := noValue
	if t.Timestamp > 0 {
		updated = format.Time(float64(t.Timestamp), loc)
	}
	return &TickerView{
		Symbol:        t.Symbol,
		Price:         format.Price(t.Price, 2),
		Change:        format.PnL(t.Change24h),
		ChangePercent: format.Percent(t.Change24hPercent),
		ChangeTone:    format.Change(t.Change24hPercent),
		Volume:        format.Volume(t.Volume24h),
		High:          format.Price(t.High24h, 2),
		Low:           format.Price(t.Low24h, 2),
		Updated:       updated,
	}
}

func orderRow(o models.Order, loc *time.Location) OrderRow {
	return OrderRow{
		ID:          o.ID,
		ShortID:     format.Truncate(o.ID, idLength),
		Symbol:      o.Symbol,
		Side:        label(string(o.Side)),
		SideTone:    format.OrderSideTone(o.Side),
		Type:        label(string(o.Type)),
		Price:       format.Price(o.Price, 4),
		Size:        format.OrderSize(o.Filled, o.Amount),
		FillPercent: format.FillPercentString(o.Filled, o.Amount),
		Status:      label(string(o.Status)),
		StatusTone:  format.StatusTone(o.Status),
		Created:     format.Millis(o.CreatedAt, loc),
	}
}

func positionRow(p models.Position, loc *time.Location) PositionRow {
	return PositionRow{
		ID:          p.ID,
		Symbol:      p.Symbol,
		Side:        label(string(p.Side)),
		SideTone:    format.PositionSideTone(p.Side),
		Size:        format.Price(p.Size, sizeDecimals),
		AvgPrice:    format.Price(p.AvgPrice, 4),
		MarkPrice:   format.Price(p.MarkPrice, 4),
		Margin:      format.Price(p.Margin, 4),
		PnL:         format.PnL(p.PnL),
		PnLPercent:  format.Percent(p.PnLPercent),
		PnLTone:     format.Change(p.PnL),
		Liquidation: format.Price(p.LiquidationPrice, 4),
		Updated:     format.Millis(p.UpdatedAt, loc),
	}
}

func label(s string) string {
	if s == "" {
		return noValue
	}
	return strings.ToUpper(s)
}
