package vault

import (
	"math/big"

	"github.com/openhedge/straddle-go/sharemath"
	"github.com/openhedge/straddle-go/vaultstate"
)

// updatePPS fixes the current round's price per share from live vault
// totals and returns it.
//
// The linchpin rule: once a round's price was set by a non-withdrawal
// event it is immutable for that round. A withdrawal therefore reuses
// an existing price instead of recomputing it, but the very first
// pricing event of a round establishes the price even when it is a
// withdrawal.
func (v *Vault) updatePPS(txn *vaultstate.Txn, isWithdraw bool) (*big.Int, error) {
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

	if isWithdraw {
		if price, priced, err := txn.GetRoundPrice(state.Round); err != nil {
			return nil, err
		} else if priced {
			return price, nil
		}
	}

	balance, err := v.custodian.BalanceOf(v.cfg.VaultAddr)
	if err != nil {
		return nil, err
	}
	price, err := sharemath.PricePerShare(state.TotalSupply, balance, state.TotalPending, params.Decimals)
	if err != nil {
		return nil, err
	}
	if err := txn.SetRoundPrice(state.Round, price); err != nil {
		return nil, err
	}
	return price, nil
}
