package vault

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/sharemath"
	"github.com/openhedge/straddle-go/vaultstate"
)

// WithdrawInstantly pays out the requested share count immediately,
// sourcing first from the caller's unpriced pending deposit of the
// current round, then from already-minted shares (held directly or
// custodied by the vault). Returns the asset payout.
//
// The whole request is priced at the current round's fixed price; a
// withdrawal may establish that price but never move an existing one.
func (v *Vault) WithdrawInstantly(caller ethcommon.Address, share *big.Int) (*big.Int, error) {
	if share == nil || share.Sign() <= 0 {
		return nil, ErrZeroShares
	}
	if err := v.lock(); err != nil {
		return nil, err
	}
	defer v.opMu.Unlock()

	txn, err := v.statedb.Begin()
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	params, ok, err := txn.GetParams()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vaultstate.ErrNotInitialized
	}
	state, err := txn.GetState()
	if err != nil {
		return nil, err
	}

	price, err := v.updatePPS(txn, true)
	if err != nil {
		return nil, err
	}

	sharesFromPending, err := v.withdrawFromNewDeposit(txn, caller, share, price, state, params.Decimals)
	if err != nil {
		return nil, err
	}

	sharesLeft := new(big.Int).Sub(share, sharesFromPending)
	if sharesLeft.Sign() > 0 {
		if err := v.withdrawFromMintedShares(txn, caller, sharesLeft, state, params.Decimals); err != nil {
			return nil, err
		}
	}

	// the payout is priced over the original request as a whole: both
	// sub-components settle at the same round price
	payout, err := sharemath.SharesToAsset(share, price, params.Decimals)
	if err != nil {
		return nil, err
	}
	if payout.Sign() > 0 {
		if err := v.custodian.Transfer(v.cfg.VaultAddr, caller, payout); err != nil {
			return nil, err
		}
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"caller":      caller.Hex(),
		"shares":      share.String(),
		"fromPending": sharesFromPending.String(),
		"payout":      payout.String(),
		"round":       state.Round,
	}).Info("instant withdrawal")
	return payout, nil
}

// withdrawFromNewDeposit reconciles the request against the caller's
// unpriced pending deposit of the current round. Funds deposited this
// round were never locked into an options purchase, so they can leave
// without waiting for settlement. Returns the share count covered.
func (v *Vault) withdrawFromNewDeposit(
	txn *vaultstate.Txn,
	caller ethcommon.Address,
	share *big.Int,
	price *big.Int,
	state *vaultstate.VaultState,
	decimals uint8,
) (*big.Int, error) {
	receipt, err := txn.GetDepositReceipt(caller)
	if err != nil {
		return nil, err
	}
	if receipt.Round != state.Round || receipt.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}

	receiptShares, err := sharemath.AssetToShares(receipt.Amount, price, decimals)
	if err != nil {
		return nil, err
	}
	sharesFromPending := share
	if receiptShares.Cmp(share) < 0 {
		sharesFromPending = receiptShares
	}

	// write back the unconsumed remainder in asset units and account
	// the removed assets out of the round's pending total
	remainderShares := new(big.Int).Sub(receiptShares, sharesFromPending)
	remainderAssets, err := sharemath.SharesToAsset(remainderShares, price, decimals)
	if err != nil {
		return nil, err
	}
	assetsRemoved := new(big.Int).Sub(receipt.Amount, remainderAssets)
	if assetsRemoved.Sign() < 0 {
		return nil, vaultstate.ErrInvalidAmount
	}

	receipt.Amount = remainderAssets
	if err := txn.PutDepositReceipt(caller, receipt); err != nil {
		return nil, err
	}
	newPending := new(big.Int).Sub(state.TotalPending, assetsRemoved)
	if err := txn.SetTotalPending(newPending); err != nil {
		return nil, err
	}
	state.TotalPending = newPending
	return sharesFromPending, nil
}

// withdrawFromMintedShares burns sharesLeft from the caller, first
// force-redeeming vault-custodied shares when the directly held
// balance alone cannot cover the request.
func (v *Vault) withdrawFromMintedShares(
	txn *vaultstate.Txn,
	caller ethcommon.Address,
	sharesLeft *big.Int,
	state *vaultstate.VaultState,
	decimals uint8,
) error {
	held, err := txn.ShareBalanceOf(caller)
	if err != nil {
		return err
	}
	custodied, err := v.custodiedShares(txn, caller, state, decimals)
	if err != nil {
		return err
	}
	if new(big.Int).Add(held, custodied).Cmp(sharesLeft) < 0 {
		return ErrWithdrawExceedsBalance
	}
	if held.Cmp(sharesLeft) < 0 {
		if _, err := v.redeemAll(txn, caller); err != nil {
			return err
		}
	}
	return txn.BurnShares(caller, sharesLeft)
}

// custodiedShares values everything the vault holds on the caller's
// behalf: unredeemed shares plus the share value of a prior-round
// pending amount that has a fixed price but was never converted.
func (v *Vault) custodiedShares(
	txn *vaultstate.Txn,
	caller ethcommon.Address,
	state *vaultstate.VaultState,
	decimals uint8,
) (*big.Int, error) {
	receipt, err := txn.GetDepositReceipt(caller)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(receipt.UnredeemedShares)
	if receipt.Amount.Sign() > 0 && receipt.Round < state.Round {
		price, ok, err := txn.GetRoundPrice(receipt.Round)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRoundNotPriced
		}
		shares, err := sharemath.AssetToShares(receipt.Amount, price, decimals)
		if err != nil {
			return nil, err
		}
		total.Add(total, shares)
	}
	return total, nil
}
