package token

import (
	"encoding/hex"
	"strconv"

	"github.com/IlliniBlockchain/agora-courts/core/types"
)

const (
	EventTypeMintRegistered = "token.mint.registered"
	EventTypeAccountCreated = "token.account.created"
	EventTypeMinted         = "token.minted"
	EventTypeTransferred    = "token.transferred"
)

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

func newMintRegisteredEvent(m *Mint) *types.Event {
	return &types.Event{Type: EventTypeMintRegistered, Attributes: map[string]string{
		"mint":      hex.EncodeToString(m.Address[:]),
		"symbol":    m.Symbol,
		"decimals":  strconv.FormatUint(uint64(m.Decimals), 10),
		"authority": hex.EncodeToString(m.Authority[:]),
	}}
}

func newAccountCreatedEvent(a *Account) *types.Event {
	return &types.Event{Type: EventTypeAccountCreated, Attributes: map[string]string{
		"account": hex.EncodeToString(a.Address[:]),
		"owner":   hex.EncodeToString(a.Owner[:]),
		"mint":    hex.EncodeToString(a.Mint[:]),
	}}
}

func newMintedEvent(mint, owner [20]byte, amount uint64) *types.Event {
	return &types.Event{Type: EventTypeMinted, Attributes: map[string]string{
		"mint":   hex.EncodeToString(mint[:]),
		"to":     hex.EncodeToString(owner[:]),
		"amount": strconv.FormatUint(amount, 10),
	}}
}

func newTransferredEvent(mint, from, to [20]byte, amount uint64) *types.Event {
	return &types.Event{Type: EventTypeTransferred, Attributes: map[string]string{
		"mint":   hex.EncodeToString(mint[:]),
		"from":   hex.EncodeToString(from[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": strconv.FormatUint(amount, 10),
	}}
}
