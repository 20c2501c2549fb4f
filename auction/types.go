package auction

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// BidParams are the real parameters of a sell-side auction bid: the vault
// sells `allocation` of its locked asset balance and buys option tokens
// priced at `premium` asset units per whole option.
type BidParams struct {
	AuctionID     *big.Int          // live auction on the counterparty vault
	OptionID      ethcommon.Address // option token being purchased
	Asset         ethcommon.Address // bidding asset
	AssetDecimals uint8
	LockedBalance *big.Int // vault balance locked for this round
	Allocation    uint16   // percentage with 2 implied decimals, 100 == 1%
	Premium       *big.Int // asset units per whole option token
	Bidder        ethcommon.Address
}

// SellOrder is the vault's record of one placed bid. It is consumed
// (zeroed) once the auction settlement has been claimed.
type SellOrder struct {
	SellAmount *big.Int // asset units committed to the auction
	BuyAmount  *big.Int // option tokens bid for
	UserID     uint64   // auction participant id, 0 means no order
}

// Empty reports whether the order has been consumed or never placed.
func (o SellOrder) Empty() bool {
	return o.UserID == 0 || o.SellAmount == nil || o.SellAmount.Sign() == 0
}
