package custody

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhedge/straddle-go/common"
)

func TestSimulatedCustodianTransfer(t *testing.T) {
	sc := NewSimulatedCustodian()
	alice := common.RandEthAddress()
	bob := common.RandEthAddress()

	sc.Fund(alice, big.NewInt(100))
	require.NoError(t, sc.Transfer(alice, bob, big.NewInt(40)))

	aliceBal, err := sc.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(60), aliceBal.Int64())
	bobBal, err := sc.BalanceOf(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(40), bobBal.Int64())
}

func TestSimulatedCustodianRejectsBadTransfers(t *testing.T) {
	sc := NewSimulatedCustodian()
	alice := common.RandEthAddress()
	bob := common.RandEthAddress()
	sc.Fund(alice, big.NewInt(10))

	assert.ErrorIs(t, sc.Transfer(alice, bob, big.NewInt(11)), ErrInsufficientAssetBalance)
	assert.ErrorIs(t, sc.Transfer(alice, bob, big.NewInt(0)), ErrInvalidTransferAmount)
	assert.ErrorIs(t, sc.Transfer(alice, bob, nil), ErrInvalidTransferAmount)

	// a failed transfer moves nothing
	aliceBal, _ := sc.BalanceOf(alice)
	assert.Equal(t, int64(10), aliceBal.Int64())
}

func TestSimulatedCustodianBalanceIsACopy(t *testing.T) {
	sc := NewSimulatedCustodian()
	alice := common.RandEthAddress()
	sc.Fund(alice, big.NewInt(5))

	bal, err := sc.BalanceOf(alice)
	require.NoError(t, err)
	bal.SetInt64(999)

	again, err := sc.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(5), again.Int64())
}
