package pool

import "encoding/hex"

var (
	stableReserveKey = []byte("pool/reserve/stable")
	assetReserveKey  = []byte("pool/reserve/asset")
	totalSharesKey   = []byte("pool/shares/total")
	sharesPrefix     = []byte("pool/shares/")
	sourcesKey       = []byte("pool/sources")
	statsBoughtKey   = []byte("pool/stats/bought")
	statsSoldKey     = []byte("pool/stats/sold")
	statsFeesKey     = []byte("pool/stats/fees")
)

func shareKey(provider [20]byte) []byte {
	encoded := hex.EncodeToString(provider[:])
	buf := make([]byte, 0, len(sharesPrefix)+len(encoded))
	buf = append(buf, sharesPrefix...)
	buf = append(buf, encoded...)
	return buf
}
