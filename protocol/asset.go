package protocol

import (
	"fmt"
)

// NativeSymbol is the only asset symbol accepted by worker operations.
const NativeSymbol = "GOLOS"

// Asset is an integer amount of the smallest unit of a symbol.
type Asset struct {
	Amount int64  `json:"amount" yaml:"amount"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// Native returns amount in the native symbol.
func Native(amount int64) Asset {
	return Asset{Amount: amount, Symbol: NativeSymbol}
}

func (a Asset) Add(b Asset) Asset {
	a.mustMatch(b)
	return Asset{Amount: a.Amount + b.Amount, Symbol: a.symbolWith(b)}
}

func (a Asset) Sub(b Asset) Asset {
	a.mustMatch(b)
	return Asset{Amount: a.Amount - b.Amount, Symbol: a.symbolWith(b)}
}

func (a Asset) Less(b Asset) bool {
	a.mustMatch(b)
	return a.Amount < b.Amount
}

func (a Asset) IsZero() bool { return a.Amount == 0 }

func (a Asset) String() string {
	return fmt.Sprintf("%d %s", a.Amount, a.Symbol)
}

func (a Asset) mustMatch(b Asset) {
	if a.Symbol != b.Symbol && a.Symbol != "" && b.Symbol != "" {
		panic(fmt.Sprintf("asset symbol mismatch: %s vs %s", a.Symbol, b.Symbol))
	}
}

func (a Asset) symbolWith(b Asset) string {
	if a.Symbol == "" {
		return b.Symbol
	}
	return a.Symbol
}
