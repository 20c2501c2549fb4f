package custody

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/openhedge/straddle-go/common"
)

// SimulatedCustodian is an in-memory token ledger for tests and the
// local demo server.
type SimulatedCustodian struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
}

func NewSimulatedCustodian() *SimulatedCustodian {
	return &SimulatedCustodian{
		balances: make(map[ethcommon.Address]*big.Int),
	}
}

// Fund credits a holder out of thin air. Test setup only.
func (sc *SimulatedCustodian) Fund(holder ethcommon.Address, amount *big.Int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.balances[holder] = new(big.Int).Add(sc.balanceLocked(holder), amount)
}

func (sc *SimulatedCustodian) BalanceOf(holder ethcommon.Address) (*big.Int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return common.BigIntClone(sc.balanceLocked(holder)), nil
}

func (sc *SimulatedCustodian) Transfer(from, to ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTransferAmount
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	fromBal := sc.balanceLocked(from)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientAssetBalance
	}
	sc.balances[from] = new(big.Int).Sub(fromBal, amount)
	sc.balances[to] = new(big.Int).Add(sc.balanceLocked(to), amount)
	return nil
}

func (sc *SimulatedCustodian) balanceLocked(holder ethcommon.Address) *big.Int {
	if bal, ok := sc.balances[holder]; ok {
		return bal
	}
	return big.NewInt(0)
}
