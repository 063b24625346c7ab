package entity

import "time"

// TradeSide is the direction of a trading signal.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// EventKind is the lifecycle transition derived from a signal row.
type EventKind string

const (
	EventKindOpened EventKind = "opened"
	EventKindClosed EventKind = "closed"
)

// SignalEvent is one lifecycle row of a trading instrument's signal. Rows are
// written by the trading engine; this service only observes them.
type SignalEvent struct {
	ID             int64     `json:"id"`
	ClientTradeID  string    `gorm:"not null" json:"client_trade_id"`
	InstrumentName string    `gorm:"not null" json:"instrument_name"`
	TradeSide      TradeSide `gorm:"not null" json:"trade_side"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      *float64  `json:"exit_price"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SignalEvent) TableName() string {
	return "signal_events"
}

// Kind derives the lifecycle transition for the row: opened while the exit
// price is absent, closed once it is present.
func (e *SignalEvent) Kind() EventKind {
	if e.ExitPrice == nil {
		return EventKindOpened
	}
	return EventKindClosed
}
