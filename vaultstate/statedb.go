package vaultstate

import (
	"database/sql"
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/database"
)

var (
	ErrAlreadyInitialized = errors.New("vault ledger is already initialized")
	ErrNotInitialized     = errors.New("vault ledger is not initialized")
	ErrInvalidPrice       = errors.New("round price must be positive")
	ErrInvalidAmount      = errors.New("amount is nil or negative")
	ErrInsufficientShares = errors.New("insufficient share balance")
	ErrCorruptAmount      = errors.New("stored amount is not a valid integer")
)

// StateDB is the durable vault ledger. All mutating access goes through
// a Txn so each vault operation commits or rolls back as a whole.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	tables := paramsTable + stateTable + receiptTable +
		roundPriceTable + shareBalanceTable + sellOrderTable
	if _, err := db.Exec(tables); err != nil {
		return nil, err
	}
	return &StateDB{db: db, stmtCache: database.NewStmtCache(db)}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

// Begin opens a ledger transaction. Callers must Commit or Rollback;
// deferring Rollback is safe after a Commit.
func (st *StateDB) Begin() (*Txn, error) {
	tx, err := st.db.Begin()
	if err != nil {
		return nil, err
	}
	return &Txn{tx: tx, sc: st.stmtCache}, nil
}

// View runs fn in a transaction that is always rolled back. Used by
// read-only consumers such as the reporter.
func (st *StateDB) View(fn func(*Txn) error) error {
	txn, err := st.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(txn)
}

// Txn is one all-or-nothing view of the ledger.
type Txn struct {
	tx   *sql.Tx
	sc   *database.StmtCache
	done bool
}

func (t *Txn) Commit() error {
	t.done = true
	return t.tx.Commit()
}

func (t *Txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

func (t *Txn) stmt(query string) (*sql.Stmt, error) {
	return t.sc.InTx(t.tx, query)
}

// ---- vault params ----

// InitParams writes the immutable vault parameters. Fails if the vault
// was initialized before.
func (t *Txn) InitParams(p *VaultParams) error {
	if _, ok, err := t.GetParams(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	stmt, err := t.stmt(`INSERT INTO vault_params (id, asset, decimals, cap, minSupply) VALUES (1, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(
		common.AddrToDbHex(p.Asset),
		p.Decimals,
		common.BigIntToDbStr(p.Cap),
		common.BigIntToDbStr(p.MinSupply),
	)
	return err
}

func (t *Txn) GetParams() (*VaultParams, bool, error) {
	stmt, err := t.stmt(`SELECT asset, decimals, cap, minSupply FROM vault_params WHERE id = 1`)
	if err != nil {
		return nil, false, err
	}
	var asset, capStr, minSupply string
	var decimals uint8
	if err := stmt.QueryRow().Scan(&asset, &decimals, &capStr, &minSupply); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	capAmount := common.DbStrToBigInt(capStr)
	minAmount := common.DbStrToBigInt(minSupply)
	if capAmount == nil || minAmount == nil {
		return nil, false, ErrCorruptAmount
	}
	return &VaultParams{
		Asset:     common.DbHexToAddr(asset),
		Decimals:  decimals,
		Cap:       capAmount,
		MinSupply: minAmount,
	}, true, nil
}

// ---- vault round state ----

// InitState seeds the mutable round state at the initial round.
func (t *Txn) InitState(initialRound uint32, optionAllocation uint16) error {
	stmt, err := t.stmt(`INSERT INTO vault_state
		(id, round, totalPending, lockedAmount, totalSupply, optionAllocation, balanceBeforePremium, currentOption)
		VALUES (1, ?, '0', '0', '0', ?, '0', ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(initialRound, optionAllocation, common.AddrToDbHex(ethcommon.Address{}))
	return err
}

func (t *Txn) GetState() (*VaultState, error) {
	stmt, err := t.stmt(`SELECT round, totalPending, lockedAmount, totalSupply, optionAllocation, balanceBeforePremium, currentOption
		FROM vault_state WHERE id = 1`)
	if err != nil {
		return nil, err
	}
	var round uint32
	var pending, locked, supply, beforePremium, option string
	var allocation uint16
	if err := stmt.QueryRow().Scan(&round, &pending, &locked, &supply, &allocation, &beforePremium, &option); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	s := &VaultState{
		Round:                round,
		TotalPending:         common.DbStrToBigInt(pending),
		LockedAmount:         common.DbStrToBigInt(locked),
		TotalSupply:          common.DbStrToBigInt(supply),
		OptionAllocation:     allocation,
		BalanceBeforePremium: common.DbStrToBigInt(beforePremium),
		CurrentOption:        common.DbHexToAddr(option),
	}
	if s.TotalPending == nil || s.LockedAmount == nil || s.TotalSupply == nil || s.BalanceBeforePremium == nil {
		return nil, ErrCorruptAmount
	}
	return s, nil
}

func (t *Txn) setStateColumn(column string, value interface{}) error {
	stmt, err := t.stmt(`UPDATE vault_state SET ` + column + ` = ? WHERE id = 1`)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(value)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotInitialized
	}
	return nil
}

func (t *Txn) SetRound(round uint32) error {
	return t.setStateColumn("round", round)
}

func (t *Txn) SetTotalPending(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.setStateColumn("totalPending", common.BigIntToDbStr(v))
}

func (t *Txn) SetLockedAmount(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.setStateColumn("lockedAmount", common.BigIntToDbStr(v))
}

func (t *Txn) SetOptionAllocation(allocation uint16) error {
	return t.setStateColumn("optionAllocation", allocation)
}

func (t *Txn) SetBalanceBeforePremium(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.setStateColumn("balanceBeforePremium", common.BigIntToDbStr(v))
}

func (t *Txn) SetCurrentOption(option ethcommon.Address) error {
	return t.setStateColumn("currentOption", common.AddrToDbHex(option))
}

// ---- deposit receipts ----

// GetDepositReceipt returns the depositor's receipt, or a zeroed one if
// the depositor never deposited.
func (t *Txn) GetDepositReceipt(depositor ethcommon.Address) (*DepositReceipt, error) {
	stmt, err := t.stmt(`SELECT round, amount, unredeemedShares FROM deposit_receipt WHERE depositor = ?`)
	if err != nil {
		return nil, err
	}
	var round uint32
	var amount, unredeemed string
	if err := stmt.QueryRow(common.AddrToDbHex(depositor)).Scan(&round, &amount, &unredeemed); err != nil {
		if err == sql.ErrNoRows {
			return &DepositReceipt{Amount: big.NewInt(0), UnredeemedShares: big.NewInt(0)}, nil
		}
		return nil, err
	}
	r := &DepositReceipt{
		Round:            round,
		Amount:           common.DbStrToBigInt(amount),
		UnredeemedShares: common.DbStrToBigInt(unredeemed),
	}
	if r.Amount == nil || r.UnredeemedShares == nil {
		return nil, ErrCorruptAmount
	}
	return r, nil
}

func (t *Txn) PutDepositReceipt(depositor ethcommon.Address, r *DepositReceipt) error {
	if r.Amount == nil || r.Amount.Sign() < 0 ||
		r.UnredeemedShares == nil || r.UnredeemedShares.Sign() < 0 {
		return ErrInvalidAmount
	}
	stmt, err := t.stmt(`INSERT OR REPLACE INTO deposit_receipt (depositor, round, amount, unredeemedShares) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(
		common.AddrToDbHex(depositor),
		r.Round,
		common.BigIntToDbStr(r.Amount),
		common.BigIntToDbStr(r.UnredeemedShares),
	)
	return err
}

// ---- round price table ----

// GetRoundPrice returns the finalized price for the round. ok is false
// while the round is unpriced (the placeholder sentinel).
func (t *Txn) GetRoundPrice(round uint32) (*big.Int, bool, error) {
	stmt, err := t.stmt(`SELECT price FROM round_price WHERE round = ?`)
	if err != nil {
		return nil, false, err
	}
	var price string
	if err := stmt.QueryRow(round).Scan(&price); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	v := common.DbStrToBigInt(price)
	if v == nil {
		return nil, false, ErrCorruptAmount
	}
	return v, true, nil
}

// SetRoundPrice overwrites the round's price. The write-once-for-
// withdrawals policy lives in the vault, not here.
func (t *Txn) SetRoundPrice(round uint32, price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	stmt, err := t.stmt(`INSERT OR REPLACE INTO round_price (round, price) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(round, common.BigIntToDbStr(price))
	return err
}

// ---- share balances ----

func (t *Txn) ShareBalanceOf(holder ethcommon.Address) (*big.Int, error) {
	stmt, err := t.stmt(`SELECT balance FROM share_balance WHERE holder = ?`)
	if err != nil {
		return nil, err
	}
	var balance string
	if err := stmt.QueryRow(common.AddrToDbHex(holder)).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	v := common.DbStrToBigInt(balance)
	if v == nil {
		return nil, ErrCorruptAmount
	}
	return v, nil
}

func (t *Txn) setShareBalance(holder ethcommon.Address, balance *big.Int) error {
	stmt, err := t.stmt(`INSERT OR REPLACE INTO share_balance (holder, balance) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(common.AddrToDbHex(holder), common.BigIntToDbStr(balance))
	return err
}

// MintShares credits the holder and grows the total supply.
func (t *Txn) MintShares(holder ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := t.ShareBalanceOf(holder)
	if err != nil {
		return err
	}
	if err := t.setShareBalance(holder, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	state, err := t.GetState()
	if err != nil {
		return err
	}
	return t.setStateColumn("totalSupply", common.BigIntToDbStr(new(big.Int).Add(state.TotalSupply, amount)))
}

// BurnShares debits the holder and shrinks the total supply.
func (t *Txn) BurnShares(holder ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := t.ShareBalanceOf(holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	if err := t.setShareBalance(holder, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	state, err := t.GetState()
	if err != nil {
		return err
	}
	supply := new(big.Int).Sub(state.TotalSupply, amount)
	if supply.Sign() < 0 {
		return ErrInsufficientShares
	}
	return t.setStateColumn("totalSupply", common.BigIntToDbStr(supply))
}

// TransferShares moves shares between holders without touching supply.
func (t *Txn) TransferShares(from, to ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := t.ShareBalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	toBal, err := t.ShareBalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.setShareBalance(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return t.setShareBalance(to, new(big.Int).Add(toBal, amount))
}

// ---- auction sell orders ----

// GetSellOrder returns the stored order of the leg; an empty order if
// the leg never bid or was already claimed.
func (t *Txn) GetSellOrder(leg Leg) (auction.SellOrder, error) {
	stmt, err := t.stmt(`SELECT sellAmount, buyAmount, userID FROM sell_order WHERE leg = ?`)
	if err != nil {
		return auction.SellOrder{}, err
	}
	var sellAmount, buyAmount string
	var userID uint64
	if err := stmt.QueryRow(string(leg)).Scan(&sellAmount, &buyAmount, &userID); err != nil {
		if err == sql.ErrNoRows {
			return auction.SellOrder{}, nil
		}
		return auction.SellOrder{}, err
	}
	sell := common.DbStrToBigInt(sellAmount)
	buy := common.DbStrToBigInt(buyAmount)
	if sell == nil || buy == nil {
		return auction.SellOrder{}, ErrCorruptAmount
	}
	return auction.SellOrder{SellAmount: sell, BuyAmount: buy, UserID: userID}, nil
}

func (t *Txn) PutSellOrder(leg Leg, order auction.SellOrder) error {
	stmt, err := t.stmt(`INSERT OR REPLACE INTO sell_order (leg, sellAmount, buyAmount, userID) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(
		string(leg),
		common.BigIntToDbStr(order.SellAmount),
		common.BigIntToDbStr(order.BuyAmount),
		order.UserID,
	)
	return err
}

// ClearSellOrder consumes the leg's order after a successful claim.
func (t *Txn) ClearSellOrder(leg Leg) error {
	stmt, err := t.stmt(`DELETE FROM sell_order WHERE leg = ?`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(string(leg))
	return err
}
