// Package vault is the long-straddle options vault core: round-based
// share/asset accounting, two-leg auction coordination and instant
// withdrawal reconciliation.
package vault

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/custody"
	"github.com/openhedge/straddle-go/vaultstate"
)

// initialRound is the round number a freshly initialized vault starts in.
const initialRound = uint32(1)

// RoundController advances the round counter and computes the newly
// locked balance. Implemented by roundctl.Controller.
type RoundController interface {
	AdvanceRound(txn *vaultstate.Txn) (newOption ethcommon.Address, lockedBalance *big.Int, err error)
}

// Config carries everything the initialization entry point accepts.
type Config struct {
	VaultAddr    ethcommon.Address // the vault's own custody address
	Owner        ethcommon.Address
	Keeper       ethcommon.Address
	FeeRecipient ethcommon.Address

	TokenName   string // share token metadata
	TokenSymbol string

	Asset     ethcommon.Address
	Decimals  uint8
	Cap       *big.Int
	MinSupply *big.Int

	ManagementFee  uint16 // 2 implied decimals, consumed by the round controller
	PerformanceFee uint16 // 2 implied decimals, reserved for premium accounting

	OptionAllocation uint16 // 2 implied decimals, 0 < x < 1000
}

// Vault owns the ledger exclusively. Every public operation runs under
// the operation lock and inside one ledger transaction, so operations
// are serialized and all-or-nothing.
type Vault struct {
	cfg       *Config
	statedb   *vaultstate.StateDB
	custodian custody.AssetCustodian
	house     auction.AuctionHouse
	putVault  auction.CounterpartyVault
	callVault auction.CounterpartyVault
	ctl       RoundController

	// reentrancy guard: a nested or concurrent entry fails fast
	// instead of interleaving with the running operation
	opMu sync.Mutex
}

// New validates the configuration, wires the collaborators and
// initializes the ledger. Nothing is persisted if any check fails.
func New(
	cfg *Config,
	statedb *vaultstate.StateDB,
	custodian custody.AssetCustodian,
	house auction.AuctionHouse,
	putVault, callVault auction.CounterpartyVault,
	ctl RoundController,
) (*Vault, error) {
	if err := validateConfig(cfg, putVault, callVault); err != nil {
		return nil, err
	}

	txn, err := statedb.Begin()
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	_, initialized, err := txn.GetParams()
	if err != nil {
		return nil, err
	}
	if !initialized {
		if err := txn.InitParams(&vaultstate.VaultParams{
			Asset:     cfg.Asset,
			Decimals:  cfg.Decimals,
			Cap:       cfg.Cap,
			MinSupply: cfg.MinSupply,
		}); err != nil {
			return nil, err
		}
		if err := txn.InitState(initialRound, cfg.OptionAllocation); err != nil {
			return nil, err
		}
		if err := txn.Commit(); err != nil {
			return nil, err
		}
		logger.WithFields(logger.Fields{
			"asset": cfg.Asset.Hex(),
			"token": cfg.TokenSymbol,
			"cap":   cfg.Cap.String(),
		}).Info("vault ledger initialized")
	}

	return &Vault{
		cfg:       cfg,
		statedb:   statedb,
		custodian: custodian,
		house:     house,
		putVault:  putVault,
		callVault: callVault,
		ctl:       ctl,
	}, nil
}

func validateConfig(cfg *Config, putVault, callVault auction.CounterpartyVault) error {
	for _, addr := range []ethcommon.Address{
		cfg.VaultAddr, cfg.Owner, cfg.Keeper, cfg.FeeRecipient, cfg.Asset,
	} {
		if common.IsZeroAddress(addr) {
			return ErrZeroAddress
		}
	}
	if cfg.TokenName == "" || cfg.TokenSymbol == "" {
		return ErrEmptyTokenMetadata
	}
	if cfg.Cap == nil || cfg.Cap.Sign() <= 0 {
		return ErrInvalidCap
	}
	if cfg.MinSupply == nil || cfg.MinSupply.Sign() < 0 {
		return ErrInvalidMinSupply
	}
	if err := checkAllocation(cfg.OptionAllocation); err != nil {
		return err
	}
	if cfg.ManagementFee >= 100*common.PercentMultiplier ||
		cfg.PerformanceFee >= 100*common.PercentMultiplier {
		return ErrFeeOutOfBounds
	}
	for _, cp := range []auction.CounterpartyVault{putVault, callVault} {
		if cp == nil || common.IsZeroAddress(cp.Address()) {
			return ErrZeroAddress
		}
		asset, err := cp.Asset()
		if err != nil {
			return err
		}
		if asset != cfg.Asset {
			return ErrAssetMismatch
		}
	}
	return nil
}

func checkAllocation(allocation uint16) error {
	if allocation == 0 || allocation >= 10*common.PercentMultiplier {
		return ErrAllocationOutOfBounds
	}
	return nil
}

// lock acquires the operation guard or fails fast.
func (v *Vault) lock() error {
	if !v.opMu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

// SetOptionAllocation updates the per-round options budget. Owner only.
func (v *Vault) SetOptionAllocation(caller ethcommon.Address, newAllocation uint16) error {
	if caller != v.cfg.Owner {
		return ErrNotOwner
	}
	if err := checkAllocation(newAllocation); err != nil {
		return err
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
	if err := txn.SetOptionAllocation(newAllocation); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{"allocation": newAllocation}).Info("option allocation updated")
	return nil
}

// StateDB exposes the ledger for read-only consumers (reporter).
func (v *Vault) StateDB() *vaultstate.StateDB { return v.statedb }

// Address returns the vault's own custody address.
func (v *Vault) Address() ethcommon.Address { return v.cfg.VaultAddr }
