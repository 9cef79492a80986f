package token

import (
	"errors"
	"fmt"
	"math"

	"github.com/IlliniBlockchain/agora-courts/core/events"
	"github.com/IlliniBlockchain/agora-courts/core/types"
)

var errNilState = errors.New("token ledger: state not configured")

type ledgerState interface {
	TokenMintGet(addr [20]byte) (*Mint, bool, error)
	TokenMintPut(m *Mint) error
	TokenAccountGet(addr [20]byte) (*Account, bool, error)
	TokenAccountPut(a *Account) error
}

// Ledger implements the token primitive consumed by the court engine:
// create-account, transfer and mint-to. Every call either fully applies or
// returns an error before touching state; multi-call atomicity is provided by
// the host journal.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger creates a ledger with a no-op emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger. Passing nil resets
// the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(event *types.Event) {
	if l == nil || l.emitter == nil || event == nil {
		return
	}
	l.emitter.Emit(tokenEvent{evt: event})
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return nil
}

// RegisterMint creates a new asset whose address is derived from symbol.
func (l *Ledger) RegisterMint(symbol string, decimals uint8, authority [20]byte) (*Mint, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if authority == ([20]byte{}) {
		return nil, fmt.Errorf("token: mint authority required")
	}
	addr, err := MintAddress(normalized)
	if err != nil {
		return nil, err
	}
	if _, ok, err := l.state.TokenMintGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrMintExists, normalized)
	}
	mint := &Mint{Address: addr, Symbol: normalized, Decimals: decimals, Authority: authority}
	if err := l.state.TokenMintPut(mint); err != nil {
		return nil, err
	}
	l.emit(newMintRegisteredEvent(mint))
	return mint.Clone(), nil
}

// Mint loads the mint stored at addr.
func (l *Ledger) Mint(addr [20]byte) (*Mint, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	mint, ok, err := l.state.TokenMintGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	return mint, nil
}

// CreateAccount opens the associated account for owner. It fails with
// ErrAccountExists when the address is already occupied.
func (l *Ledger) CreateAccount(owner, mint [20]byte) (*Account, error) {
	return l.createAccount(owner, mint, false)
}

// CreateProgramAccount opens a vault account. Its balance can only leave
// through Release.
func (l *Ledger) CreateProgramAccount(owner, mint [20]byte) (*Account, error) {
	return l.createAccount(owner, mint, true)
}

func (l *Ledger) createAccount(owner, mint [20]byte, program bool) (*Account, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if _, err := l.Mint(mint); err != nil {
		return nil, err
	}
	addr := AccountAddress(owner, mint)
	if _, ok, err := l.state.TokenAccountGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAccountExists
	}
	acc := &Account{Address: addr, Owner: owner, Mint: mint, Program: program}
	if err := l.state.TokenAccountPut(acc); err != nil {
		return nil, err
	}
	l.emit(newAccountCreatedEvent(acc))
	return acc.Clone(), nil
}

// Account returns the associated account of owner for mint.
func (l *Ledger) Account(owner, mint [20]byte) (*Account, bool, error) {
	if err := l.ready(); err != nil {
		return nil, false, err
	}
	return l.state.TokenAccountGet(AccountAddress(owner, mint))
}

// Balance returns the owner's balance; a missing account reads as zero.
func (l *Ledger) Balance(owner, mint [20]byte) (uint64, error) {
	acc, ok, err := l.Account(owner, mint)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return acc.Balance, nil
}

func (l *Ledger) openAccount(owner, mint [20]byte) (*Account, error) {
	acc, ok, err := l.Account(owner, mint)
	if err != nil {
		return nil, err
	}
	if ok {
		return acc, nil
	}
	return l.CreateAccount(owner, mint)
}

// MintTo creates amount new tokens in the owner's account. The signer must be
// the mint authority.
func (l *Ledger) MintTo(mintAddr, authority, owner [20]byte, amount uint64) error {
	if err := l.ready(); err != nil {
		return err
	}
	mint, err := l.Mint(mintAddr)
	if err != nil {
		return err
	}
	if authority != mint.Authority {
		return ErrUnauthorizedMint
	}
	if amount == 0 {
		return nil
	}
	if math.MaxUint64-mint.Supply < amount {
		return ErrOverflow
	}
	acc, err := l.openAccount(owner, mintAddr)
	if err != nil {
		return err
	}
	if math.MaxUint64-acc.Balance < amount {
		return ErrOverflow
	}
	mint.Supply += amount
	acc.Balance += amount
	if err := l.state.TokenMintPut(mint); err != nil {
		return err
	}
	if err := l.state.TokenAccountPut(acc); err != nil {
		return err
	}
	l.emit(newMintedEvent(mintAddr, owner, amount))
	return nil
}

// Transfer moves amount of mint from the from owner's account to the to
// owner's account, opening the destination when needed. The caller is
// responsible for having authenticated from as the signer. Program accounts
// are refused as a source.
func (l *Ledger) Transfer(mintAddr, from, to [20]byte, amount uint64) error {
	return l.move(mintAddr, from, to, amount, false)
}

// Release pays amount out of a program account. Only the court engine calls
// it, while executing a validated settlement.
func (l *Ledger) Release(mintAddr, program, to [20]byte, amount uint64) error {
	return l.move(mintAddr, program, to, amount, true)
}

func (l *Ledger) move(mintAddr, from, to [20]byte, amount uint64, release bool) error {
	if err := l.ready(); err != nil {
		return err
	}
	if from == to {
		return ErrSelfTransfer
	}
	if _, err := l.Mint(mintAddr); err != nil {
		return err
	}
	src, ok, err := l.Account(from, mintAddr)
	if err != nil {
		return err
	}
	if release && (!ok || !src.Program) {
		return fmt.Errorf("%w: no program account to release from", ErrAccountNotFound)
	}
	if !release && ok && src.Program {
		return ErrProgramAccount
	}
	if amount == 0 {
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: need %d, have 0", ErrInsufficientBalance, amount)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, amount, src.Balance)
	}
	dst, err := l.openAccount(to, mintAddr)
	if err != nil {
		return err
	}
	if math.MaxUint64-dst.Balance < amount {
		return ErrOverflow
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := l.state.TokenAccountPut(src); err != nil {
		return err
	}
	if err := l.state.TokenAccountPut(dst); err != nil {
		return err
	}
	l.emit(newTransferredEvent(mintAddr, from, to, amount))
	return nil
}
