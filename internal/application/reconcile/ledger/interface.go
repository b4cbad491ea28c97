// Package ledger defines the reconciler's view of the ledger RPC provider.
package ledger

import (
	"context"
	"time"
)

const (
	// CoinDecimals is the number of decimal places for the native coin
	CoinDecimals = 9
	// CoinUnit is the multiplier to convert whole coins to minor units
	CoinUnit = 1_000_000_000
)

// Transaction represents a confirmed inbound transfer on an escrow contract
type Transaction struct {
	Hash        string
	FromAddress string
	ToAddress   string
	Amount      int64  // Attached value in minor units
	Comment     string // Decoded text marker, empty when none
	LogicalTime uint64
	ConfirmedAt time.Time
}

// AmountCoins returns the amount as a float64 for display purposes only
func (t *Transaction) AmountCoins() float64 {
	return float64(t.Amount) / float64(CoinUnit)
}

// ContractState is a point-in-time snapshot of a deployed escrow contract
type ContractState struct {
	Address         string
	Balance         int64
	SubscriberCount int
	TotalForwarded  int64
}

// Client provides read access to the ledger. Implementations are responsible
// for retries and rate limiting; callers see only the final outcome.
type Client interface {
	// GetTransactions returns confirmed inbound transactions on the address
	// with a confirmation time at or after since, oldest first
	GetTransactions(ctx context.Context, address string, since time.Time) ([]Transaction, error)

	// GetContractState fetches the current state of a deployed contract
	GetContractState(ctx context.Context, address string) (*ContractState, error)

	// Ping verifies the provider is reachable
	Ping(ctx context.Context) error
}
