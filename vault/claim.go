package vault

import (
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/vaultstate"
)

// ClaimAuctionOtokens claims settlement proceeds for both legs, then
// re-prices the round once so assets returned from unfilled auction
// portions are reflected. Open to any caller.
//
// A leg that cannot be claimed yet aborts the whole operation; use the
// per-leg entry points to retry legs independently.
func (v *Vault) ClaimAuctionOtokens() error {
	return v.claim(vaultstate.LegPut, vaultstate.LegCall)
}

// ClaimPutOtokens claims the put leg only.
func (v *Vault) ClaimPutOtokens() error {
	return v.claim(vaultstate.LegPut)
}

// ClaimCallOtokens claims the call leg only.
func (v *Vault) ClaimCallOtokens() error {
	return v.claim(vaultstate.LegCall)
}

func (v *Vault) claim(legs ...vaultstate.Leg) error {
	if err := v.lock(); err != nil {
		return err
	}
	defer v.opMu.Unlock()

	txn, err := v.statedb.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for _, leg := range legs {
		if err := v.claimLeg(txn, leg); err != nil {
			return err
		}
	}
	if _, err := v.updatePPS(txn, false); err != nil {
		return err
	}
	return txn.Commit()
}

// claimLeg settles one leg's sell order and consumes it. Claiming a
// leg with no outstanding order is a no-op, which is what makes the
// bundled entry point safe when one leg already settled.
func (v *Vault) claimLeg(txn *vaultstate.Txn, leg vaultstate.Leg) error {
	order, err := txn.GetSellOrder(leg)
	if err != nil {
		return err
	}
	if order.Empty() {
		return nil
	}

	counterparty := v.legCounterparty(leg)
	if err := v.house.Claim(order, counterparty.Address()); err != nil {
		return err
	}
	if err := txn.ClearSellOrder(leg); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"leg":  string(leg),
		"user": order.UserID,
		"sell": order.SellAmount.String(),
	}).Info("auction leg claimed")
	return nil
}

func (v *Vault) legCounterparty(leg vaultstate.Leg) auction.CounterpartyVault {
	if leg == vaultstate.LegPut {
		return v.putVault
	}
	return v.callVault
}
