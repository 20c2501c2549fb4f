package vault

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/sharemath"
	"github.com/openhedge/straddle-go/vaultstate"
)

// Deposit pulls assets from the depositor into the vault and records
// them as pending for the current round. A leftover receipt from an
// earlier round is first settled into unredeemed shares at that
// round's fixed price.
func (v *Vault) Deposit(depositor ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidDepositAmount
	}
	if err := v.lock(); err != nil {
		return err
	}
	defer v.opMu.Unlock()

	txn, err := v.statedb.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	params, ok, err := txn.GetParams()
	if err != nil {
		return err
	}
	if !ok {
		return vaultstate.ErrNotInitialized
	}
	state, err := txn.GetState()
	if err != nil {
		return err
	}

	balance, err := v.custodian.BalanceOf(v.cfg.VaultAddr)
	if err != nil {
		return err
	}
	if new(big.Int).Add(balance, amount).Cmp(params.Cap) > 0 {
		return ErrVaultCapExceeded
	}

	if err := v.custodian.Transfer(depositor, v.cfg.VaultAddr, amount); err != nil {
		return err
	}

	receipt, err := txn.GetDepositReceipt(depositor)
	if err != nil {
		return err
	}
	receipt, err = settleStaleReceipt(txn, receipt, state.Round, params.Decimals)
	if err != nil {
		return err
	}
	receipt.Round = state.Round
	receipt.Amount = new(big.Int).Add(receipt.Amount, amount)
	if err := txn.PutDepositReceipt(depositor, receipt); err != nil {
		return err
	}

	if err := txn.SetTotalPending(new(big.Int).Add(state.TotalPending, amount)); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"depositor": depositor.Hex(),
		"amount":    amount.String(),
		"round":     state.Round,
	}).Info("deposit recorded")
	return nil
}

// MaxRedeem moves every share the vault custodies for the depositor
// (already-computed unredeemed shares plus the share value of any
// prior-round pending amount) to the depositor's own balance.
// Returns the share count redeemed.
func (v *Vault) MaxRedeem(depositor ethcommon.Address) (*big.Int, error) {
	if err := v.lock(); err != nil {
		return nil, err
	}
	defer v.opMu.Unlock()

	txn, err := v.statedb.Begin()
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	shares, err := v.redeemAll(txn, depositor)
	if err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return shares, nil
}

// redeemAll is MaxRedeem inside an existing transaction; the
// withdrawal engine uses it for its force-redeem step.
func (v *Vault) redeemAll(txn *vaultstate.Txn, depositor ethcommon.Address) (*big.Int, error) {
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

	receipt, err := txn.GetDepositReceipt(depositor)
	if err != nil {
		return nil, err
	}
	receipt, err = settleStaleReceipt(txn, receipt, state.Round, params.Decimals)
	if err != nil {
		return nil, err
	}

	shares := receipt.UnredeemedShares
	if shares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	receipt.UnredeemedShares = big.NewInt(0)
	if err := txn.PutDepositReceipt(depositor, receipt); err != nil {
		return nil, err
	}
	if err := txn.TransferShares(v.cfg.VaultAddr, depositor, shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// settleStaleReceipt converts a receipt's pending amount from a past
// round into unredeemed shares at that round's fixed price. A receipt
// for the current round is returned untouched.
func settleStaleReceipt(txn *vaultstate.Txn, receipt *vaultstate.DepositReceipt, currentRound uint32, decimals uint8) (*vaultstate.DepositReceipt, error) {
	if receipt.Amount.Sign() == 0 || receipt.Round >= currentRound {
		return receipt, nil
	}
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
	receipt.UnredeemedShares = new(big.Int).Add(receipt.UnredeemedShares, shares)
	receipt.Amount = big.NewInt(0)
	return receipt, nil
}
