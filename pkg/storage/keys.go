package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Key schema:
//
//	mkt:<8-byte-be market id>       → Market (JSON)
//	mktid                           → next market id (8-byte-be)
//	pos:<8-byte-be id>:<address>    → Position (JSON)
//	acc:<address>                   → Account (JSON)
const (
	prefixMarket   = "mkt:"
	keyNextMarket  = "mktid"
	prefixPosition = "pos:"
	prefixAccount  = "acc:"
)

func u64be(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func marketKey(id uint64) []byte {
	return append([]byte(prefixMarket), u64be(id)...)
}

func positionKey(marketID uint64, owner common.Address) []byte {
	k := append([]byte(prefixPosition), u64be(marketID)...)
	k = append(k, ':')
	return append(k, []byte(owner.Hex())...)
}

func accountKey(addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixAccount, addr.Hex()))
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix, for pebble iterator bounds.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff, no upper bound
}
