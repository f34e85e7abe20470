package format

import "tradedash/internal/models"

// Tone is the color class a value is rendered with.
type Tone string

const (
	ToneGain    Tone = "gain"
	ToneLoss    Tone = "loss"
	ToneNeutral Tone = "neutral"
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
)

func Change(value string) Tone {
	d, ok := parse(value)
	if !ok {
		return ToneNeutral
	}
	switch d.Sign() {
	case 1:
		return ToneGain
	case -1:
		return ToneLoss
	}
	return ToneNeutral
}

func StatusTone(status models.OrderStatus) Tone {
	switch status {
	case models.OrderStatusFilled:
		return ToneGain
	case models.OrderStatusCancelled:
		return ToneLoss
	case models.OrderStatusPartial:
		return ToneWarning
	}
	return ToneInfo
}

func OrderSideTone(side models.OrderSide) Tone {
	if side == models.OrderSideBuy {
		return ToneGain
	}
	return ToneLoss
}

func PositionSideTone(side models.PositionSide) Tone {
	if side == models.PositionSideLong {
		return ToneGain
	}
	return ToneLoss
}
