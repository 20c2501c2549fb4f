package auction

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// AuctionHouse is the external auction protocol the vault bids into.
// Bid placement and claim are trusted synchronous calls: either the
// whole call takes effect or the enclosing vault operation is aborted.
type AuctionHouse interface {
	// PlaceBid submits a sell order into the given auction and returns
	// the recorded order. Funds leave the bidder when the bid is placed.
	PlaceBid(params *BidParams) (SellOrder, error)

	// Claim settles a previously placed order against the counterparty
	// vault: purchased option tokens and any unfilled asset portion are
	// returned to the bidder. Claiming an already-settled order is a no-op.
	Claim(order SellOrder, counterparty ethcommon.Address) error
}

// CounterpartyVault is one of the two option-selling vaults (put leg,
// call leg) this vault buys from. Only its public surface is consumed.
type CounterpartyVault interface {
	// Address identifies the counterparty on the auction house.
	Address() ethcommon.Address

	// CurrentAuctionID returns the live auction of the counterparty.
	CurrentAuctionID() (*big.Int, error)

	// Asset returns the counterparty's bidding asset. Checked once at
	// vault initialization to equal this vault's asset.
	Asset() (ethcommon.Address, error)
}

// OptionsIssuer is the options-issuance protocol that mints the option
// tokens a round bids for.
type OptionsIssuer interface {
	// NextOption returns the option token identifier for the upcoming round.
	NextOption(asset ethcommon.Address, round uint32) (ethcommon.Address, error)
}
