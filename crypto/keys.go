package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part used when rendering addresses.
type AddressPrefix string

const (
	// AgoraPrefix is the default prefix for every account, court, dispute and
	// vault address.
	AgoraPrefix AddressPrefix = "agora"

	// AddressLength is the raw size of an address in bytes.
	AddressLength = 20
)

// Address represents a 20-byte account address with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress wraps raw bytes. The slice must be exactly AddressLength bytes.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes, got %d", AddressLength, len(b))
	}
	var raw [AddressLength]byte
	copy(raw[:], b)
	return Address{prefix: prefix, bytes: raw}, nil
}

// MustNewAddress is NewAddress that panics on malformed input. Only use it with
// compile-time constant inputs.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// FromRaw wraps an already sized address under the default prefix.
func FromRaw(raw [AddressLength]byte) Address {
	return Address{prefix: AgoraPrefix, bytes: raw}
}

func (a Address) String() string {
	prefix := a.prefix
	if prefix == "" {
		prefix = AgoraPrefix
	}
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		return hex.EncodeToString(a.bytes[:])
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		return hex.EncodeToString(a.bytes[:])
	}
	return encoded
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes[:]...)
}

// Raw returns the fixed-size address.
func (a Address) Raw() [AddressLength]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether every byte of the address is zero.
func (a Address) IsZero() bool {
	return a.bytes == [AddressLength]byte{}
}

// DecodeAddress parses a bech32 address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ParseAddress accepts either the bech32 form or a 0x-prefixed/bare hex string
// and returns the raw bytes.
func ParseAddress(value string) ([AddressLength]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [AddressLength]byte{}, fmt.Errorf("crypto: empty address")
	}
	if strings.HasPrefix(strings.ToLower(trimmed), string(AgoraPrefix)+"1") {
		addr, err := DecodeAddress(trimmed)
		if err != nil {
			return [AddressLength]byte{}, err
		}
		return addr.Raw(), nil
	}
	hexStr := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return [AddressLength]byte{}, fmt.Errorf("crypto: invalid address %q", value)
	}
	addr, err := NewAddress(AgoraPrefix, decoded)
	if err != nil {
		return [AddressLength]byte{}, err
	}
	return addr.Raw(), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	var raw [AddressLength]byte
	copy(raw[:], crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	return FromRaw(raw)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
