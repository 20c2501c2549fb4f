// Package custody is the boundary to the underlying token transfer and
// custody primitive. The vault never owns token state; it only reads
// balances and moves assets through this port.
package custody

import (
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientAssetBalance = errors.New("insufficient asset balance")
	ErrInvalidTransferAmount    = errors.New("transfer amount is nil or not positive")
)

// AssetCustodian moves and reports the vault's underlying asset.
type AssetCustodian interface {
	// BalanceOf returns the asset balance held by the holder.
	BalanceOf(holder ethcommon.Address) (*big.Int, error)

	// Transfer moves amount from one holder to another. The whole
	// enclosing vault operation fails if the transfer fails.
	Transfer(from, to ethcommon.Address, amount *big.Int) error
}
