package vaultstate

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Leg names one of the two option-purchase auction participations of a round.
type Leg string

const (
	LegPut  Leg = "put"
	LegCall Leg = "call"
)

// VaultParams is the immutable per-vault configuration. Written once at
// initialization; decimals never change for the vault lifetime.
type VaultParams struct {
	Asset     ethcommon.Address
	Decimals  uint8
	Cap       *big.Int // max assets the vault accepts
	MinSupply *big.Int // dust floor for the share supply
}

// VaultState is the mutable round bookkeeping, owned by the round
// controller and read by everything else.
type VaultState struct {
	Round                uint32   // monotonic, +1 per rollover
	TotalPending         *big.Int // deposits awaiting round-close pricing
	LockedAmount         *big.Int // balance locked at the last rollover
	TotalSupply          *big.Int // outstanding shares (held + vault custody)
	OptionAllocation     uint16   // percentage, 2 implied decimals
	BalanceBeforePremium *big.Int // locked balance recorded before bids
	CurrentOption        ethcommon.Address
}

// DepositReceipt tracks one depositor's not-yet-priced deposit.
// Round and Amount are only meaningful together: with a zero amount the
// round is irrelevant.
type DepositReceipt struct {
	Round            uint32   // round the pending amount was deposited in
	Amount           *big.Int // pending assets not yet converted to shares
	UnredeemedShares *big.Int // shares computed but still in vault custody
}
