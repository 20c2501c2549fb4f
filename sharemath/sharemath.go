// Pure conversions between asset amounts and vault shares.
//
// All amounts are integer base units (no decimals), all divisions floor.
// A round that has not been priced yet has no price-per-share at all;
// callers hold (price, ok) pairs and must not call in here with ok == false.
package sharemath

import (
	"errors"
	"math/big"

	"github.com/openhedge/straddle-go/common"
)

var (
	ErrUnsetPricePerShare    = errors.New("price per share is unset or not positive")
	ErrInvalidAmount         = errors.New("amount is nil or negative")
	ErrPendingExceedsBalance = errors.New("total pending exceeds total balance")
)

// AssetToShares converts an asset amount to shares at the given round price.
//
//	shares = assetAmount * 10^decimals / pricePerShare
func AssetToShares(assetAmount, pricePerShare *big.Int, decimals uint8) (*big.Int, error) {
	if assetAmount == nil || assetAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if pricePerShare == nil || pricePerShare.Sign() <= 0 {
		return nil, ErrUnsetPricePerShare
	}
	shares := new(big.Int).Mul(assetAmount, common.Pow10(decimals))
	return shares.Quo(shares, pricePerShare), nil
}

// SharesToAsset converts a share count to an asset amount at the given round price.
//
//	assets = shares * pricePerShare / 10^decimals
func SharesToAsset(shares, pricePerShare *big.Int, decimals uint8) (*big.Int, error) {
	if shares == nil || shares.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if pricePerShare == nil || pricePerShare.Sign() <= 0 {
		return nil, ErrUnsetPricePerShare
	}
	assets := new(big.Int).Mul(shares, pricePerShare)
	return assets.Quo(assets, common.Pow10(decimals)), nil
}

// PricePerShare computes the round settlement price from live vault totals.
//
// Pending deposits have not been put to work yet, so they are excluded from
// the valuation base; counting them would let late depositors move the price
// against earlier ones. With no supply outstanding the price is one unit.
func PricePerShare(totalSupply, totalBalance, totalPending *big.Int, decimals uint8) (*big.Int, error) {
	if totalSupply == nil || totalSupply.Sign() < 0 ||
		totalBalance == nil || totalBalance.Sign() < 0 ||
		totalPending == nil || totalPending.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if totalSupply.Sign() == 0 {
		return common.Pow10(decimals), nil
	}
	if totalBalance.Cmp(totalPending) < 0 {
		return nil, ErrPendingExceedsBalance
	}
	price := new(big.Int).Sub(totalBalance, totalPending)
	price.Mul(price, common.Pow10(decimals))
	return price.Quo(price, totalSupply), nil
}
