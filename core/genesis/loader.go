// core/genesis/loader.go
package genesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/IlliniBlockchain/agora-courts/core"
	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// Target is the host the genesis actions run against. *core.Node satisfies
// it; every step is a committed action of its own.
type Target interface {
	RegisterMint(ctx context.Context, symbol string, decimals uint8, authority [20]byte) (*token.Mint, *core.Receipt, error)
	MintTo(ctx context.Context, mint, authority, owner [20]byte, amount uint64) (*core.Receipt, error)
	CreateCourt(ctx context.Context, params court.CreateCourtParams) (*court.Court, *core.Receipt, error)
}

// Allocations returns the resolved balances ordered by owner then symbol so
// genesis replays deterministically.
func (s *GenesisSpec) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0)
	for addr, balances := range s.Alloc {
		owner, err := crypto.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", addr, err)
		}
		for symbol, raw := range balances {
			amount, err := parseAmount(raw)
			if err != nil {
				return nil, fmt.Errorf("alloc %q %s: %w", addr, symbol, err)
			}
			out = append(out, Allocation{
				Owner:  owner,
				Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
				Amount: amount,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return string(out[i].Owner[:]) < string(out[j].Owner[:])
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

// Apply registers the tokens (sorted by symbol), mints the allocations and
// creates the courts in declaration order.
func Apply(ctx context.Context, spec *GenesisSpec, target Target) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if target == nil {
		return fmt.Errorf("genesis target must not be nil")
	}
	if spec.tokens == nil {
		if err := spec.validate(); err != nil {
			return err
		}
	}

	tokens := append([]TokenSpec(nil), spec.Tokens...)
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })
	mints := make(map[string][20]byte, len(tokens))
	for _, tok := range tokens {
		mint, _, err := target.RegisterMint(ctx, tok.Symbol, tok.Decimals, tok.authority)
		if err != nil {
			return fmt.Errorf("register token %q: %w", tok.Symbol, err)
		}
		mints[tok.Symbol] = mint.Address
	}

	allocations, err := spec.Allocations()
	if err != nil {
		return err
	}
	for _, alloc := range allocations {
		tok := spec.tokens[alloc.Symbol]
		if _, err := target.MintTo(ctx, mints[alloc.Symbol], tok.authority, alloc.Owner, alloc.Amount); err != nil {
			return fmt.Errorf("alloc %s %s: %w", crypto.FromRaw(alloc.Owner), alloc.Symbol, err)
		}
	}

	for _, c := range spec.Courts {
		if _, _, err := target.CreateCourt(ctx, court.CreateCourtParams{
			Name:            c.Name,
			RepMint:         mints[c.RepMint],
			PayMint:         mints[c.PayMint],
			Protocol:        c.protocol,
			Authority:       c.authority,
			MaxDisputeVotes: c.MaxDisputeVotes,
		}); err != nil {
			return fmt.Errorf("create court %q: %w", c.Name, err)
		}
	}
	return nil
}
