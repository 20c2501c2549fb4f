package vault

import "errors"

var (
	// invariant violations, rejected at the call boundary
	ErrZeroAddress           = errors.New("required address is zero")
	ErrAssetMismatch         = errors.New("counterparty vault asset does not match vault asset")
	ErrAllocationOutOfBounds = errors.New("option allocation must be above 0% and below 10%")
	ErrFeeOutOfBounds        = errors.New("fee rate must be below 100%")
	ErrEmptyTokenMetadata    = errors.New("share token name and symbol are required")
	ErrInvalidCap            = errors.New("vault cap must be positive")
	ErrInvalidMinSupply      = errors.New("vault minimum supply must be non-negative")
	ErrZeroShares            = errors.New("withdrawal share count must be positive")
	ErrInvalidDepositAmount  = errors.New("deposit amount must be positive")
	ErrInvalidPremium        = errors.New("auction premium must be positive")

	// insufficient resources
	ErrWithdrawExceedsBalance = errors.New("withdrawal exceeds held, custodied and pending shares")
	ErrVaultCapExceeded       = errors.New("deposit would exceed the vault cap")

	// access control
	ErrNotOwner  = errors.New("caller is not the vault owner")
	ErrNotKeeper = errors.New("caller is not the vault keeper")

	// serialization discipline
	ErrReentrantCall = errors.New("another vault operation is in progress")

	// arithmetic / pricing faults
	ErrRoundNotPriced = errors.New("round has no recorded price per share")
)
