package vaultstate

// Addresses are stored as 40-char hex without 0x prefix; amounts are
// stored as base-10 TEXT since sqlite integers are signed 64-bit and
// token amounts are not.
var (
	paramsTable = `CREATE TABLE IF NOT EXISTS vault_params (
		id INTEGER PRIMARY KEY NOT NULL,
		asset CHAR(40) NOT NULL,
		decimals INTEGER NOT NULL,
		cap VARCHAR(78) NOT NULL,
		minSupply VARCHAR(78) NOT NULL,
		CONSTRAINT chk_singleton CHECK (id = 1),
		CONSTRAINT chk_decimals CHECK (decimals BETWEEN 0 AND 38)
	);`

	stateTable = `CREATE TABLE IF NOT EXISTS vault_state (
		id INTEGER PRIMARY KEY NOT NULL,
		round INTEGER NOT NULL,
		totalPending VARCHAR(78) NOT NULL,
		lockedAmount VARCHAR(78) NOT NULL,
		totalSupply VARCHAR(78) NOT NULL,
		optionAllocation INTEGER NOT NULL,
		balanceBeforePremium VARCHAR(78) NOT NULL,
		currentOption CHAR(40) NOT NULL,
		CONSTRAINT chk_singleton CHECK (id = 1),
		CONSTRAINT chk_round CHECK (round >= 1)
	);`

	receiptTable = `CREATE TABLE IF NOT EXISTS deposit_receipt (
		depositor CHAR(40) PRIMARY KEY NOT NULL,
		round INTEGER NOT NULL,
		amount VARCHAR(78) NOT NULL,
		unredeemedShares VARCHAR(78) NOT NULL
	);`

	// a missing row is the "unpriced round" sentinel; only real prices
	// are ever inserted
	roundPriceTable = `CREATE TABLE IF NOT EXISTS round_price (
		round INTEGER PRIMARY KEY NOT NULL,
		price VARCHAR(78) NOT NULL,
		CONSTRAINT chk_price CHECK (price != '0')
	);`

	shareBalanceTable = `CREATE TABLE IF NOT EXISTS share_balance (
		holder CHAR(40) PRIMARY KEY NOT NULL,
		balance VARCHAR(78) NOT NULL
	);`

	sellOrderTable = `CREATE TABLE IF NOT EXISTS sell_order (
		leg VARCHAR(4) PRIMARY KEY NOT NULL,
		sellAmount VARCHAR(78) NOT NULL,
		buyAmount VARCHAR(78) NOT NULL,
		userID BIGINT NOT NULL,
		CONSTRAINT chk_leg CHECK (leg IN ('put', 'call'))
	);`
)
