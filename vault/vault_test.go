package vault

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/custody"
	"github.com/openhedge/straddle-go/roundctl"
	"github.com/openhedge/straddle-go/vaultstate"
)

const testDecimals = uint8(8)

// coins converts whole asset units to base units at 8 decimals.
func coins(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(100_000_000))
}

type testEnv struct {
	vault     *Vault
	statedb   *vaultstate.StateDB
	custodian *custody.SimulatedCustodian
	house     *auction.SimulatedAuctionHouse
	putVault  *auction.SimulatedCounterpartyVault
	callVault *auction.SimulatedCounterpartyVault
	cfg       *Config
}

func defaultConfig() *Config {
	return &Config{
		VaultAddr:        common.RandEthAddress(),
		Owner:            common.RandEthAddress(),
		Keeper:           common.RandEthAddress(),
		FeeRecipient:     common.RandEthAddress(),
		TokenName:        "Straddle ETH Vault",
		TokenSymbol:      "svETH",
		Asset:            common.RandEthAddress(),
		Decimals:         testDecimals,
		Cap:              coins(1_000_000),
		MinSupply:        big.NewInt(10_000_000), // 0.1 share
		ManagementFee:    0,
		PerformanceFee:   0,
		OptionAllocation: 500, // 5%
	}
}

func newTestEnv(t *testing.T) *testEnv {
	cfg := defaultConfig()

	statedb, sqlDB := vaultstate.NewMemoryStateDB()
	t.Cleanup(func() {
		statedb.Close()
		sqlDB.Close()
	})

	custodian := custody.NewSimulatedCustodian()
	house := auction.NewSimulatedAuctionHouse(common.RandEthAddress(), custodian)
	putVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	callVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)

	ctl, err := roundctl.NewController(
		cfg.VaultAddr, cfg.FeeRecipient, cfg.ManagementFee, custodian, auction.SimulatedOptionsIssuer{},
	)
	require.NoError(t, err)

	v, err := New(cfg, statedb, custodian, house, putVault, callVault, ctl)
	require.NoError(t, err)

	return &testEnv{
		vault:     v,
		statedb:   statedb,
		custodian: custodian,
		house:     house,
		putVault:  putVault,
		callVault: callVault,
		cfg:       cfg,
	}
}

func (e *testEnv) state(t *testing.T) *vaultstate.VaultState {
	var state *vaultstate.VaultState
	err := e.statedb.View(func(txn *vaultstate.Txn) error {
		var err error
		state, err = txn.GetState()
		return err
	})
	require.NoError(t, err)
	return state
}

func (e *testEnv) roundPrice(t *testing.T, round uint32) (*big.Int, bool) {
	var price *big.Int
	var ok bool
	err := e.statedb.View(func(txn *vaultstate.Txn) error {
		var err error
		price, ok, err = txn.GetRoundPrice(round)
		return err
	})
	require.NoError(t, err)
	return price, ok
}

func (e *testEnv) depositAs(t *testing.T, depositor ethcommon.Address, amount *big.Int) {
	e.custodian.Fund(depositor, amount)
	require.NoError(t, e.vault.Deposit(depositor, amount))
}

// ---- initialization ----

func TestInitCounterpartyAssetMismatch(t *testing.T) {
	cfg := defaultConfig()
	statedb, sqlDB := vaultstate.NewMemoryStateDB()
	defer func() {
		statedb.Close()
		sqlDB.Close()
	}()

	custodian := custody.NewSimulatedCustodian()
	house := auction.NewSimulatedAuctionHouse(common.RandEthAddress(), custodian)
	putVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	// call leg sells a different asset
	callVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), common.RandEthAddress())

	ctl, err := roundctl.NewController(cfg.VaultAddr, cfg.FeeRecipient, 0, custodian, auction.SimulatedOptionsIssuer{})
	require.NoError(t, err)

	_, err = New(cfg, statedb, custodian, house, putVault, callVault, ctl)
	assert.ErrorIs(t, err, ErrAssetMismatch)

	// the vault must remain uninitialized
	err = statedb.View(func(txn *vaultstate.Txn) error {
		_, ok, err := txn.GetParams()
		assert.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	assert.NoError(t, err)
}

func TestInitZeroAddressRejected(t *testing.T) {
	cfg := defaultConfig()
	cfg.Keeper = ethcommon.Address{}

	statedb, sqlDB := vaultstate.NewMemoryStateDB()
	defer func() {
		statedb.Close()
		sqlDB.Close()
	}()
	custodian := custody.NewSimulatedCustodian()
	house := auction.NewSimulatedAuctionHouse(common.RandEthAddress(), custodian)
	putVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	callVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	ctl, err := roundctl.NewController(cfg.VaultAddr, cfg.FeeRecipient, 0, custodian, auction.SimulatedOptionsIssuer{})
	require.NoError(t, err)

	_, err = New(cfg, statedb, custodian, house, putVault, callVault, ctl)
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestInitAllocationBounds(t *testing.T) {
	for allocation, wantErr := range map[uint16]error{
		0:    ErrAllocationOutOfBounds,
		1000: ErrAllocationOutOfBounds, // exactly 10% is excluded
		1001: ErrAllocationOutOfBounds,
		999:  nil,
		1:    nil,
	} {
		cfg := defaultConfig()
		cfg.OptionAllocation = allocation
		err := validateConfig(cfg,
			auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset),
			auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset),
		)
		if wantErr == nil {
			assert.NoError(t, err, "allocation=%d", allocation)
		} else {
			assert.ErrorIs(t, err, wantErr, "allocation=%d", allocation)
		}
	}
}

func TestSetOptionAllocation(t *testing.T) {
	env := newTestEnv(t)

	assert.ErrorIs(t, env.vault.SetOptionAllocation(common.RandEthAddress(), 300), ErrNotOwner)
	assert.ErrorIs(t, env.vault.SetOptionAllocation(env.cfg.Owner, 0), ErrAllocationOutOfBounds)
	assert.ErrorIs(t, env.vault.SetOptionAllocation(env.cfg.Owner, 1000), ErrAllocationOutOfBounds)

	assert.NoError(t, env.vault.SetOptionAllocation(env.cfg.Owner, 999))
	assert.Equal(t, uint16(999), env.state(t).OptionAllocation)
}

// ---- roll + claim ----

func TestRollToNextOption(t *testing.T) {
	env := newTestEnv(t)
	alice := common.RandEthAddress()
	env.depositAs(t, alice, coins(100))

	_, err := env.vault.RollToNextOption(common.RandEthAddress(), coins(1), coins(1))
	assert.ErrorIs(t, err, ErrNotKeeper)

	_, err = env.vault.RollToNextOption(env.cfg.Keeper, big.NewInt(0), coins(1))
	assert.ErrorIs(t, err, ErrInvalidPremium)

	option, err := env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)
	assert.False(t, common.IsZeroAddress(option))

	state := env.state(t)
	assert.Equal(t, uint32(2), state.Round)
	assert.Equal(t, int64(0), state.TotalPending.Int64())
	assert.Equal(t, coins(100), state.LockedAmount)
	assert.Equal(t, coins(100), state.BalanceBeforePremium)
	assert.Equal(t, option, state.CurrentOption)
	// all 100 pending assets became vault-custodied shares at unit price
	assert.Equal(t, coins(100), state.TotalSupply)

	// round 1 was priced at unit, round 2 net of the 5%+5% premium spend
	price1, ok := env.roundPrice(t, 1)
	require.True(t, ok)
	assert.Equal(t, coins(1), price1)
	price2, ok := env.roundPrice(t, 2)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(90_000_000), price2)

	// both legs hold independent sell orders of 5 coins each
	err = env.statedb.View(func(txn *vaultstate.Txn) error {
		for _, leg := range []vaultstate.Leg{vaultstate.LegPut, vaultstate.LegCall} {
			order, err := txn.GetSellOrder(leg)
			require.NoError(t, err)
			assert.False(t, order.Empty())
			assert.Equal(t, coins(5), order.SellAmount)
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestRollTwiceWithoutSettlementRejected(t *testing.T) {
	env := newTestEnv(t)
	env.depositAs(t, common.RandEthAddress(), coins(100))

	_, err := env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)
	stateBefore := env.state(t)

	_, err = env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	assert.ErrorIs(t, err, roundctl.ErrRoundNotSettled)

	stateAfter := env.state(t)
	assert.Equal(t, stateBefore.Round, stateAfter.Round)
	assert.Equal(t, stateBefore.TotalSupply, stateAfter.TotalSupply)

	// after claiming both legs the next roll goes through
	require.NoError(t, env.vault.ClaimAuctionOtokens())
	_, err = env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), env.state(t).Round)
}

func TestClaimRefundsUnfilledPortion(t *testing.T) {
	env := newTestEnv(t)
	env.depositAs(t, common.RandEthAddress(), coins(100))
	_, err := env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)

	// only 60% of each 5-coin sell order gets filled
	env.house.SetFillPercent(60)
	require.NoError(t, env.vault.ClaimAuctionOtokens())

	balance, err := env.custodian.BalanceOf(env.cfg.VaultAddr)
	require.NoError(t, err)
	assert.Equal(t, coins(94), balance)

	// the claim re-priced the round upward to include the refunds
	price2, ok := env.roundPrice(t, 2)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(94_000_000), price2)

	// both orders consumed
	err = env.statedb.View(func(txn *vaultstate.Txn) error {
		for _, leg := range []vaultstate.Leg{vaultstate.LegPut, vaultstate.LegCall} {
			order, err := txn.GetSellOrder(leg)
			require.NoError(t, err)
			assert.True(t, order.Empty())
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestClaimAbortsWhenOneLegNotClaimable(t *testing.T) {
	env := newTestEnv(t)
	env.depositAs(t, common.RandEthAddress(), coins(100))

	// distinct auction ids per counterparty so one leg can be blocked
	env.callVault.StartNextAuction()
	_, err := env.vault.RollToNextOption(env.cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)

	putAuction, err := env.putVault.CurrentAuctionID()
	require.NoError(t, err)
	env.house.SetClaimable(putAuction, false)

	// bundled claim aborts whole; ledger keeps both orders
	err = env.vault.ClaimAuctionOtokens()
	assert.ErrorIs(t, err, auction.ErrAuctionNotClaimable)
	err = env.statedb.View(func(txn *vaultstate.Txn) error {
		order, err := txn.GetSellOrder(vaultstate.LegPut)
		require.NoError(t, err)
		assert.False(t, order.Empty())
		order, err = txn.GetSellOrder(vaultstate.LegCall)
		require.NoError(t, err)
		assert.False(t, order.Empty())
		return nil
	})
	assert.NoError(t, err)

	// the call leg can be claimed on its own
	require.NoError(t, env.vault.ClaimCallOtokens())
	// then the put leg once its auction settles
	env.house.SetClaimable(putAuction, true)
	require.NoError(t, env.vault.ClaimPutOtokens())
}

func TestManagementFeeChargedOnLockedCapital(t *testing.T) {
	cfg := defaultConfig()
	cfg.ManagementFee = 200 // 2% per round

	statedb, sqlDB := vaultstate.NewMemoryStateDB()
	defer func() {
		statedb.Close()
		sqlDB.Close()
	}()
	custodian := custody.NewSimulatedCustodian()
	house := auction.NewSimulatedAuctionHouse(common.RandEthAddress(), custodian)
	putVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	callVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	ctl, err := roundctl.NewController(cfg.VaultAddr, cfg.FeeRecipient, cfg.ManagementFee, custodian, auction.SimulatedOptionsIssuer{})
	require.NoError(t, err)
	v, err := New(cfg, statedb, custodian, house, putVault, callVault, ctl)
	require.NoError(t, err)

	alice := common.RandEthAddress()
	custodian.Fund(alice, coins(100))
	require.NoError(t, v.Deposit(alice, coins(100)))

	// round 1: everything is pending, nothing was at work, no fee
	_, err = v.RollToNextOption(cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)
	feeBal, _ := custodian.BalanceOf(cfg.FeeRecipient)
	assert.Equal(t, int64(0), feeBal.Int64())

	// round 2: the 90 remaining coins were at work, 2% fee applies
	require.NoError(t, v.ClaimAuctionOtokens())
	_, err = v.RollToNextOption(cfg.Keeper, coins(1), coins(1))
	require.NoError(t, err)
	feeBal, _ = custodian.BalanceOf(cfg.FeeRecipient)
	assert.Equal(t, big.NewInt(180_000_000), feeBal) // 1.8 coins
}

// reentrantHouse calls back into the vault mid-bid, like a malicious
// auction contract would.
type reentrantHouse struct {
	inner *auction.SimulatedAuctionHouse
	vault *Vault
	seen  error
}

func (h *reentrantHouse) PlaceBid(params *auction.BidParams) (auction.SellOrder, error) {
	_, h.seen = h.vault.WithdrawInstantly(params.Bidder, big.NewInt(1))
	return h.inner.PlaceBid(params)
}

func (h *reentrantHouse) Claim(order auction.SellOrder, counterparty ethcommon.Address) error {
	return h.inner.Claim(order, counterparty)
}

func TestReentrantCallbackFailsFast(t *testing.T) {
	cfg := defaultConfig()
	statedb, sqlDB := vaultstate.NewMemoryStateDB()
	defer func() {
		statedb.Close()
		sqlDB.Close()
	}()
	custodian := custody.NewSimulatedCustodian()
	house := &reentrantHouse{inner: auction.NewSimulatedAuctionHouse(common.RandEthAddress(), custodian)}
	putVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	callVault := auction.NewSimulatedCounterpartyVault(common.RandEthAddress(), cfg.Asset)
	ctl, err := roundctl.NewController(cfg.VaultAddr, cfg.FeeRecipient, 0, custodian, auction.SimulatedOptionsIssuer{})
	require.NoError(t, err)
	v, err := New(cfg, statedb, custodian, house, putVault, callVault, ctl)
	require.NoError(t, err)
	house.vault = v

	alice := common.RandEthAddress()
	custodian.Fund(alice, coins(100))
	require.NoError(t, v.Deposit(alice, coins(100)))

	_, err = v.RollToNextOption(cfg.Keeper, coins(1), coins(1))
	assert.NoError(t, err, "the roll itself must succeed")
	assert.ErrorIs(t, house.seen, ErrReentrantCall)
}
