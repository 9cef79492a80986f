// core/genesis/spec.go
package genesis

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// GenesisSpec seeds an empty node with mints, balances and courts.
type GenesisSpec struct {
	Tokens []TokenSpec                  `yaml:"tokens"`
	Alloc  map[string]map[string]string `yaml:"alloc"` // addr -> symbol -> amount
	Courts []CourtSpec                  `yaml:"courts"`

	tokens map[string]*TokenSpec
}

type TokenSpec struct {
	Symbol        string `yaml:"symbol"`
	Decimals      uint8  `yaml:"decimals"`
	MintAuthority string `yaml:"mintAuthority"`

	authority [20]byte
}

type CourtSpec struct {
	Name            string `yaml:"name"`
	RepMint         string `yaml:"repMint"` // token symbol
	PayMint         string `yaml:"payMint"` // token symbol
	Protocol        string `yaml:"protocol"`
	Authority       string `yaml:"authority,omitempty"`
	MaxDisputeVotes uint64 `yaml:"maxDisputeVotes,omitempty"`

	protocol  [20]byte
	authority [20]byte
}

// Allocation is a resolved genesis balance.
type Allocation struct {
	Owner  [20]byte
	Symbol string
	Amount uint64
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML document. Unknown fields are
// rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) validate() error {
	s.tokens = make(map[string]*TokenSpec, len(s.Tokens))
	for i := range s.Tokens {
		tok := &s.Tokens[i]
		symbol, err := token.NormalizeSymbol(tok.Symbol)
		if err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if _, dup := s.tokens[symbol]; dup {
			return fmt.Errorf("tokens[%d]: duplicate symbol %q", i, symbol)
		}
		tok.Symbol = symbol
		tok.authority, err = crypto.ParseAddress(tok.MintAuthority)
		if err != nil {
			return fmt.Errorf("token %q mintAuthority: %w", symbol, err)
		}
		s.tokens[symbol] = tok
	}

	for addr, balances := range s.Alloc {
		if _, err := crypto.ParseAddress(addr); err != nil {
			return fmt.Errorf("alloc %q: %w", addr, err)
		}
		for symbol, amount := range balances {
			if _, ok := s.tokens[strings.ToUpper(strings.TrimSpace(symbol))]; !ok {
				return fmt.Errorf("alloc %q: unknown token %q", addr, symbol)
			}
			if _, err := parseAmount(amount); err != nil {
				return fmt.Errorf("alloc %q %s: %w", addr, symbol, err)
			}
		}
	}

	names := make(map[string]struct{}, len(s.Courts))
	for i := range s.Courts {
		c := &s.Courts[i]
		name, err := court.NormalizeCourtName(c.Name)
		if err != nil {
			return fmt.Errorf("courts[%d]: %w", i, err)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("courts[%d]: duplicate court %q", i, name)
		}
		names[name] = struct{}{}
		c.Name = name
		for _, symbol := range []*string{&c.RepMint, &c.PayMint} {
			*symbol = strings.ToUpper(strings.TrimSpace(*symbol))
			if _, ok := s.tokens[*symbol]; !ok {
				return fmt.Errorf("court %q: unknown token %q", name, *symbol)
			}
		}
		if c.RepMint == c.PayMint {
			return fmt.Errorf("court %q: repMint and payMint must differ", name)
		}
		if c.protocol, err = crypto.ParseAddress(c.Protocol); err != nil {
			return fmt.Errorf("court %q protocol: %w", name, err)
		}
		if strings.TrimSpace(c.Authority) != "" {
			if c.authority, err = crypto.ParseAddress(c.Authority); err != nil {
				return fmt.Errorf("court %q authority: %w", name, err)
			}
		}
	}
	return nil
}

func parseAmount(value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount must not be empty")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
