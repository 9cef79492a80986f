package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

var programNamespace = []byte("agora-court/v1")

// DeriveAddress maps an ordered list of seeds to a deterministic address. Each
// seed is length-prefixed so ("ab","c") and ("a","bc") never collide, and the
// program namespace keeps derived addresses disjoint from key-based ones.
func DeriveAddress(seeds ...[]byte) [AddressLength]byte {
	parts := make([][]byte, 0, 2*len(seeds)+1)
	parts = append(parts, programNamespace)
	for _, seed := range seeds {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(seed)))
		parts = append(parts, size[:], seed)
	}
	hash := crypto.Keccak256(parts...)
	var out [AddressLength]byte
	copy(out[:], hash[len(hash)-AddressLength:])
	return out
}

// Uint64Seed encodes an index as the big-endian seed used for dispute
// addresses.
func Uint64Seed(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
