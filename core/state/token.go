package state

import (
	"fmt"

	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// TokenMintGet loads the mint stored at addr.
func (m *Manager) TokenMintGet(addr [20]byte) (*token.Mint, bool, error) {
	var mint token.Mint
	ok, err := m.KVGet(prefixedKey(tokenMintPrefix, addr[:]), &mint)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mint, true, nil
}

// TokenMintPut persists a mint.
func (m *Manager) TokenMintPut(mint *token.Mint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	return m.KVPut(prefixedKey(tokenMintPrefix, mint.Address[:]), mint)
}

// TokenAccountGet loads the token account stored at addr.
func (m *Manager) TokenAccountGet(addr [20]byte) (*token.Account, bool, error) {
	var acc token.Account
	ok, err := m.KVGet(prefixedKey(tokenAccountPrefix, addr[:]), &acc)
	if err != nil || !ok {
		return nil, false, err
	}
	return &acc, true, nil
}

// TokenAccountPut persists a token account.
func (m *Manager) TokenAccountPut(acc *token.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil token account")
	}
	return m.KVPut(prefixedKey(tokenAccountPrefix, acc.Address[:]), acc)
}
