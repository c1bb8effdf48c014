package model

import "time"

// TrackerState is the persisted caller-side signal book. Unreported holds
// signals that expired inside Add and have not yet been returned by Expire.
type TrackerState struct {
	Active       []TradingSignal      `json:"active"`
	History      []TradingSignal      `json:"history"`
	Unreported   []TradingSignal      `json:"unreported_expired,omitempty"`
	LastSignalAt map[string]time.Time `json:"last_signal_at"`
	SignalsToday int                  `json:"signals_today"`
	TradingDay   string               `json:"trading_day"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
