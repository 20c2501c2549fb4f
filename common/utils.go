package common

import (
	"crypto/rand"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// PercentMultiplier scales percentages with 2 implied decimals:
// 100 == 1%, 1000 == 10%.
const PercentMultiplier = 100

func Trim0xPrefix(hexStr string) string {
	if strings.HasPrefix(hexStr, "0x") || strings.HasPrefix(hexStr, "0X") {
		return hexStr[2:]
	}
	return hexStr
}

func Prepend0xPrefix(hexStr string) string {
	if strings.HasPrefix(hexStr, "0x") || strings.HasPrefix(hexStr, "0X") {
		return hexStr
	}
	return "0x" + hexStr
}

// AddrToDbHex renders an address as a lowercase 40-char hex string
// without the 0x prefix, the form stored in CHAR(40) columns.
func AddrToDbHex(addr ethcommon.Address) string {
	return strings.ToLower(Trim0xPrefix(addr.Hex()))
}

// DbHexToAddr is the inverse of AddrToDbHex.
func DbHexToAddr(hexStr string) ethcommon.Address {
	return ethcommon.HexToAddress(hexStr)
}

// BigIntToDbStr renders an amount as a base-10 string for TEXT columns.
// sqlite's integer columns are signed 64-bit, too small for token amounts.
func BigIntToDbStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.Text(10)
}

// DbStrToBigInt is the inverse of BigIntToDbStr. Returns nil on garbage.
func DbStrToBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

func BigIntClone(v *big.Int) *big.Int {
	return new(big.Int).Set(v)
}

// Pow10 returns 10^n as a big int.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func IsZeroAddress(addr ethcommon.Address) bool {
	return addr == (ethcommon.Address{})
}

func RandEthAddress() ethcommon.Address {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ethcommon.Address{}
	}
	return ethcommon.BytesToAddress(b)
}
