package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Trade outcome labels. A flat trade (zero P&L) counts as a loss.
const (
	WinLossWin  = "Win"
	WinLossLoss = "Loss"
)

// Trade is a completed round-trip trade (buy/sell pair), the atomic fact
// from which all returns are derived. Only the six source fields are
// persisted; everything else is recomputed on demand.
type Trade struct {
	ID        int64     `json:"id,omitempty"` // Database primary key
	BuyDate   time.Time `json:"buy_date"`
	SellDate  time.Time `json:"sell_date"`
	Stock     string    `json:"stock"`
	BuyPrice  float64   `json:"buy_price"`
	SellPrice float64   `json:"sell_price"`
	Quantity  float64   `json:"quantity"`
}

// ProfitLoss returns the realized P&L of the trade.
func (t Trade) ProfitLoss() float64 {
	return (t.SellPrice - t.BuyPrice) * t.Quantity
}

// PositionSize returns the capital committed at entry.
func (t Trade) PositionSize() float64 {
	return t.BuyPrice * t.Quantity
}

// ReturnPct returns the per-trade return relative to the buy price.
// Buy price is validated as positive at import time.
func (t Trade) ReturnPct() float64 {
	if t.BuyPrice == 0 {
		return 0
	}
	return (t.SellPrice - t.BuyPrice) / t.BuyPrice * 100
}

// WinLoss classifies the trade by sign of its P&L.
func (t Trade) WinLoss() string {
	if t.ProfitLoss() > 0 {
		return WinLossWin
	}
	return WinLossLoss
}

// IsDayTrade reports whether the position was opened and closed on the same day.
func (t Trade) IsDayTrade() bool {
	by, bm, bd := t.BuyDate.Date()
	sy, sm, sd := t.SellDate.Date()
	return by == sy && bm == sm && bd == sd
}

// Signature is the identity/dedup key of the trade. Two trades with the
// same signature are the same trade and must not be double-counted.
func (t Trade) Signature() string {
	return fmt.Sprintf("%s_%s_%s_%g_%g_%g",
		t.BuyDate.Format("2006-01-02"),
		t.SellDate.Format("2006-01-02"),
		t.Stock,
		t.BuyPrice,
		t.SellPrice,
		t.Quantity,
	)
}

// HashID is the hex SHA-256 of the signature, stored under a UNIQUE index
// so repeated imports cannot double-count a trade.
func (t Trade) HashID() string {
	sum := sha256.Sum256([]byte(t.Signature()))
	return hex.EncodeToString(sum[:])
}
