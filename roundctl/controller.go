// Package roundctl advances the vault round: it fixes the closing
// round's price, mints shares for that round's pending deposits,
// assesses the management fee, and computes the newly locked balance.
package roundctl

import (
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/custody"
	"github.com/openhedge/straddle-go/sharemath"
	"github.com/openhedge/straddle-go/vaultstate"
)

var (
	ErrRoundNotSettled    = errors.New("current round still has outstanding auction orders")
	ErrSupplyBelowMinimum = errors.New("share supply would fall below the vault minimum")
	ErrFeeOutOfBounds     = errors.New("management fee must be below 100%")
	ErrNotInitialized     = errors.New("vault is not initialized")
)

type Controller struct {
	vaultAddr     ethcommon.Address
	feeRecipient  ethcommon.Address
	managementFee uint16 // per-round fee on the locked balance, 2 implied decimals
	custodian     custody.AssetCustodian
	issuer        auction.OptionsIssuer
}

func NewController(
	vaultAddr, feeRecipient ethcommon.Address,
	managementFee uint16,
	custodian custody.AssetCustodian,
	issuer auction.OptionsIssuer,
) (*Controller, error) {
	if managementFee >= 100*common.PercentMultiplier {
		return nil, ErrFeeOutOfBounds
	}
	return &Controller{
		vaultAddr:     vaultAddr,
		feeRecipient:  feeRecipient,
		managementFee: managementFee,
		custodian:     custodian,
		issuer:        issuer,
	}, nil
}

// AdvanceRound closes the current round and opens the next one. It is
// rejected while either auction leg of the current round is still
// outstanding, which is what enforces round monotonicity: a second
// rollover cannot run until the first one's auctions were claimed.
//
// Returns the next round's option identifier and the newly locked balance.
func (c *Controller) AdvanceRound(txn *vaultstate.Txn) (ethcommon.Address, *big.Int, error) {
	params, ok, err := txn.GetParams()
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	if !ok {
		return ethcommon.Address{}, nil, ErrNotInitialized
	}
	state, err := txn.GetState()
	if err != nil {
		return ethcommon.Address{}, nil, err
	}

	for _, leg := range []vaultstate.Leg{vaultstate.LegPut, vaultstate.LegCall} {
		order, err := txn.GetSellOrder(leg)
		if err != nil {
			return ethcommon.Address{}, nil, err
		}
		if !order.Empty() {
			return ethcommon.Address{}, nil, ErrRoundNotSettled
		}
	}

	balance, err := c.custodian.BalanceOf(c.vaultAddr)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}

	// fix the closing round's settlement price
	price, err := sharemath.PricePerShare(state.TotalSupply, balance, state.TotalPending, params.Decimals)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	if err := txn.SetRoundPrice(state.Round, price); err != nil {
		return ethcommon.Address{}, nil, err
	}

	// pending deposits of the closing round become vault-custodied shares
	minted, err := sharemath.AssetToShares(state.TotalPending, price, params.Decimals)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	if err := txn.MintShares(c.vaultAddr, minted); err != nil {
		return ethcommon.Address{}, nil, err
	}
	supply := new(big.Int).Add(state.TotalSupply, minted)
	if supply.Sign() > 0 && supply.Cmp(params.MinSupply) < 0 {
		return ethcommon.Address{}, nil, ErrSupplyBelowMinimum
	}

	// management fee is charged on capital that was at work, not on
	// the deposits that only just arrived
	feeBase := new(big.Int).Sub(balance, state.TotalPending)
	fee := new(big.Int).Mul(feeBase, big.NewInt(int64(c.managementFee)))
	fee.Quo(fee, big.NewInt(100*common.PercentMultiplier))
	if fee.Sign() > 0 {
		if err := c.custodian.Transfer(c.vaultAddr, c.feeRecipient, fee); err != nil {
			return ethcommon.Address{}, nil, err
		}
		balance = new(big.Int).Sub(balance, fee)
	}

	newRound := state.Round + 1
	if err := txn.SetTotalPending(big.NewInt(0)); err != nil {
		return ethcommon.Address{}, nil, err
	}
	if err := txn.SetRound(newRound); err != nil {
		return ethcommon.Address{}, nil, err
	}
	locked := common.BigIntClone(balance)
	if err := txn.SetLockedAmount(locked); err != nil {
		return ethcommon.Address{}, nil, err
	}

	option, err := c.issuer.NextOption(params.Asset, newRound)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	if err := txn.SetCurrentOption(option); err != nil {
		return ethcommon.Address{}, nil, err
	}

	logger.WithFields(logger.Fields{
		"round":  newRound,
		"locked": locked.String(),
		"price":  price.String(),
		"minted": minted.String(),
		"fee":    fee.String(),
		"option": option.Hex(),
	}).Info("round advanced")

	return option, locked, nil
}
