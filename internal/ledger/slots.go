package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Slot derives a storage key from a namespace and key parts.
func Slot(namespace string, parts ...[]byte) common.Hash {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(namespace))
	data = append(data, parts...)
	return crypto.Keccak256Hash(data...)
}

func WordFromUint256(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func Uint256FromWord(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func WordFromUint64(v uint64) common.Hash {
	var h common.Hash
	binary.BigEndian.PutUint64(h[24:], v)
	return h
}

func Uint64FromWord(h common.Hash) uint64 {
	return binary.BigEndian.Uint64(h[24:])
}

// WordFromBool stores true as 1 and false as the empty word.
func WordFromBool(v bool) common.Hash {
	if v {
		return WordFromUint64(1)
	}
	return common.Hash{}
}

func BoolFromWord(h common.Hash) bool {
	return h != (common.Hash{})
}
