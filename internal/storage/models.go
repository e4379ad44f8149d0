package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertState tracks which side of its threshold an asset was on after the
// last scan. Alerts fire only on the below -> above transition.
type AlertState string

const (
	AlertBelow AlertState = "below"
	AlertAbove AlertState = "above"
)

// Wallet is a tracked address.
type Wallet struct {
	Address           string
	Label             string
	Chain             string
	NativeThreshold   decimal.Decimal
	StableThreshold   decimal.Decimal
	LastNativeBalance decimal.Decimal
	LastStableBalance decimal.Decimal
	NativeAlertState  AlertState
	StableAlertState  AlertState
	CreatedAt         time.Time
}

// BalanceEvent is one immutable balance observation.
type BalanceEvent struct {
	ID         int64
	ObservedAt time.Time
	Address    string
	Label      string
	Chain      string
	Asset      string
	Change     decimal.Decimal
	NewBalance decimal.Decimal
}

// Observation is a single asset reading inside a scan update.
type Observation struct {
	Asset   string
	Balance decimal.Decimal
}

// ScanUpdate carries everything a scan cycle learned about one wallet.
// Nil balance pointers mean the corresponding read failed and the wallet's
// last-known value and alert state must be left untouched.
type ScanUpdate struct {
	Address string
	Label   string
	Chain   string

	Observations []Observation

	Native           *decimal.Decimal
	NativeAlertState AlertState

	Stable           *decimal.Decimal
	StableAlertState AlertState
}
