package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IlliniBlockchain/agora-courts/crypto"
)

var (
	ErrMintNotFound        = errors.New("token: mint not found")
	ErrMintExists          = errors.New("token: mint already registered")
	ErrAccountExists       = errors.New("token: account already exists")
	ErrAccountNotFound     = errors.New("token: account not found")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrUnauthorizedMint    = errors.New("token: signer is not the mint authority")
	ErrOverflow            = errors.New("token: amount overflow")
	ErrInvalidSymbol       = errors.New("token: invalid symbol")
	ErrProgramAccount      = errors.New("token: account is program-owned")
	ErrSelfTransfer        = errors.New("token: source and destination owner are the same")
)

// Mint describes a fungible asset. Only the authority may create new supply.
type Mint struct {
	Address   [20]byte
	Symbol    string
	Decimals  uint8
	Authority [20]byte
	Supply    uint64
}

// Clone returns a copy safe for mutation.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Account is a balance of one mint held on behalf of an owner. Every
// (owner, mint) pair has exactly one associated account address. Program
// accounts (dispute vaults) only pay out through Release.
type Account struct {
	Address [20]byte
	Owner   [20]byte
	Mint    [20]byte
	Balance uint64
	Program bool
}

// Clone returns a copy safe for mutation.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// NormalizeSymbol trims and upper-cases a ticker, rejecting empty or oversized
// values.
func NormalizeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" || len(trimmed) > 16 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return trimmed, nil
}

// MintAddress derives the address of the mint registered under symbol.
func MintAddress(symbol string) ([20]byte, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return [20]byte{}, err
	}
	return crypto.DeriveAddress([]byte("mint"), []byte(normalized)), nil
}

// AccountAddress derives the associated account address for owner and mint.
func AccountAddress(owner, mint [20]byte) [20]byte {
	return crypto.DeriveAddress([]byte("ata"), owner[:], mint[:])
}
