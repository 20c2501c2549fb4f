package vault

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/vaultstate"
)

// RollToNextOption advances the round and bids the options budget into
// both counterparty auctions: one put leg, one call leg. Keeper only.
//
// The legs are placed independently but the operation is atomic: any
// failure rolls back the round advance and the already-placed leg.
// Returns the new round's option identifier.
func (v *Vault) RollToNextOption(caller ethcommon.Address, putPremium, callPremium *big.Int) (ethcommon.Address, error) {
	if caller != v.cfg.Keeper {
		return ethcommon.Address{}, ErrNotKeeper
	}
	if putPremium == nil || putPremium.Sign() <= 0 ||
		callPremium == nil || callPremium.Sign() <= 0 {
		return ethcommon.Address{}, ErrInvalidPremium
	}
	if err := v.lock(); err != nil {
		return ethcommon.Address{}, err
	}
	defer v.opMu.Unlock()

	txn, err := v.statedb.Begin()
	if err != nil {
		return ethcommon.Address{}, err
	}
	defer txn.Rollback()

	option, locked, err := v.ctl.AdvanceRound(txn)
	if err != nil {
		return ethcommon.Address{}, err
	}
	if err := txn.SetBalanceBeforePremium(locked); err != nil {
		return ethcommon.Address{}, err
	}

	params, _, err := txn.GetParams()
	if err != nil {
		return ethcommon.Address{}, err
	}
	state, err := txn.GetState()
	if err != nil {
		return ethcommon.Address{}, err
	}

	if err := v.placeLegBid(txn, vaultstate.LegPut, v.putVault, option, locked, state.OptionAllocation, putPremium, params.Decimals); err != nil {
		return ethcommon.Address{}, err
	}
	if err := v.placeLegBid(txn, vaultstate.LegCall, v.callVault, option, locked, state.OptionAllocation, callPremium, params.Decimals); err != nil {
		return ethcommon.Address{}, err
	}

	// funds are committed now, fix the new round's price
	if _, err := v.updatePPS(txn, false); err != nil {
		return ethcommon.Address{}, err
	}
	if err := txn.Commit(); err != nil {
		return ethcommon.Address{}, err
	}

	logger.WithFields(logger.Fields{
		"round":  state.Round,
		"option": option.Hex(),
		"locked": locked.String(),
	}).Info("rolled to next option")
	return option, nil
}

func (v *Vault) placeLegBid(
	txn *vaultstate.Txn,
	leg vaultstate.Leg,
	counterparty auction.CounterpartyVault,
	option ethcommon.Address,
	locked *big.Int,
	allocation uint16,
	premium *big.Int,
	decimals uint8,
) error {
	auctionID, err := counterparty.CurrentAuctionID()
	if err != nil {
		return err
	}
	order, err := v.house.PlaceBid(&auction.BidParams{
		AuctionID:     auctionID,
		OptionID:      option,
		Asset:         v.cfg.Asset,
		AssetDecimals: decimals,
		LockedBalance: locked,
		Allocation:    allocation,
		Premium:       premium,
		Bidder:        v.cfg.VaultAddr,
	})
	if err != nil {
		return err
	}
	return txn.PutSellOrder(leg, order)
}
