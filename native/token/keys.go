package token

import "encoding/hex"

var (
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
	supplyPrefix    = []byte("token/supply/")
)

func balanceKey(symbol string, addr [20]byte) []byte {
	encoded := hex.EncodeToString(addr[:])
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+len(encoded))
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, '/')
	buf = append(buf, encoded...)
	return buf
}

func allowanceKey(symbol string, owner, spender [20]byte) []byte {
	ownerHex := hex.EncodeToString(owner[:])
	spenderHex := hex.EncodeToString(spender[:])
	buf := make([]byte, 0, len(allowancePrefix)+len(symbol)+2+len(ownerHex)+len(spenderHex))
	buf = append(buf, allowancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, '/')
	buf = append(buf, ownerHex...)
	buf = append(buf, '/')
	buf = append(buf, spenderHex...)
	return buf
}

func supplyKey(symbol string) []byte {
	buf := make([]byte, 0, len(supplyPrefix)+len(symbol))
	buf = append(buf, supplyPrefix...)
	buf = append(buf, symbol...)
	return buf
}
