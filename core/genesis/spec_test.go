// core/genesis/spec_test.go
package genesis

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IlliniBlockchain/agora-courts/core"
	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
	"github.com/IlliniBlockchain/agora-courts/storage"
)

func testAddr(fill byte) [20]byte {
	var out [20]byte
	copy(out[:], bytes.Repeat([]byte{fill}, 20))
	return out
}

func sampleGenesis() string {
	authority := crypto.FromRaw(testAddr(0xA0)).String()
	protocol := crypto.FromRaw(testAddr(0xB0)).String()
	alice := crypto.FromRaw(testAddr(0x01)).String()
	return fmt.Sprintf(`tokens:
  - symbol: rep
    decimals: 0
    mintAuthority: %[1]s
  - symbol: PAY
    decimals: 6
    mintAuthority: %[1]s
alloc:
  %[3]s:
    REP: "100"
    pay: "2500"
courts:
  - name: General
    repMint: REP
    payMint: PAY
    protocol: %[2]s
    maxDisputeVotes: 3
`, authority, protocol, alice)
}

func TestLoadGenesisSpecAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(sampleGenesis()), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.Tokens[0].Symbol != "REP" {
		t.Fatalf("symbol not normalised: %q", spec.Tokens[0].Symbol)
	}

	node, err := core.NewNode(storage.NewMemDB(), core.WithClock(func() int64 { return 1_000 }))
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	if err := Apply(context.Background(), spec, node); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rep, _ := token.MintAddress("REP")
	pay, _ := token.MintAddress("PAY")
	alice := testAddr(0x01)
	if bal, _ := node.Balance(alice, rep); bal != 100 {
		t.Fatalf("unexpected REP balance %d", bal)
	}
	if bal, _ := node.Balance(alice, pay); bal != 2500 {
		t.Fatalf("unexpected PAY balance %d", bal)
	}
	c, err := node.Court("General")
	if err != nil {
		t.Fatalf("court: %v", err)
	}
	if c.RepMint != rep || c.PayMint != pay || c.MaxDisputeVotes != 3 || c.Protocol != testAddr(0xB0) {
		t.Fatalf("unexpected court %+v", c)
	}

	// Applying twice collides on the existing mints.
	if err := Apply(context.Background(), spec, node); err == nil {
		t.Fatalf("expected second apply to fail")
	}
}

func TestGenesisIsDeterministic(t *testing.T) {
	roots := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		spec, err := ParseGenesisSpec([]byte(sampleGenesis()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		node, err := core.NewNode(storage.NewMemDB(), core.WithClock(func() int64 { return 1_000 }))
		if err != nil {
			t.Fatalf("node: %v", err)
		}
		if err := Apply(context.Background(), spec, node); err != nil {
			t.Fatalf("apply: %v", err)
		}
		roots = append(roots, node.StateRoot())
	}
	if roots[0] != roots[1] {
		t.Fatalf("genesis roots differ: %s vs %s", roots[0], roots[1])
	}
}

func TestParseGenesisSpecRejectsInvalid(t *testing.T) {
	authority := crypto.FromRaw(testAddr(0xA0)).String()
	cases := map[string]string{
		"unknown field":       "tokens: []\nvalidators: []\n",
		"dup symbol":          fmt.Sprintf("tokens:\n  - {symbol: REP, mintAuthority: %s}\n  - {symbol: rep, mintAuthority: %s}\n", authority, authority),
		"bad authority":       "tokens:\n  - {symbol: REP, mintAuthority: nope}\n",
		"unknown alloc token": fmt.Sprintf("tokens:\n  - {symbol: REP, mintAuthority: %s}\nalloc:\n  %s: {PAY: \"1\"}\n", authority, authority),
		"bad amount":          fmt.Sprintf("tokens:\n  - {symbol: REP, mintAuthority: %s}\nalloc:\n  %s: {REP: \"-1\"}\n", authority, authority),
		"same mints":          fmt.Sprintf("tokens:\n  - {symbol: REP, mintAuthority: %s}\ncourts:\n  - {name: general, repMint: REP, payMint: REP, protocol: %s}\n", authority, authority),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseGenesisSpec([]byte(doc)); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestParseGenesisSpecRejectsBadCourtNames(t *testing.T) {
	for _, name := range []string{`""`, strings.Repeat("x", court.MaxCourtNameLength+1)} {
		doc := strings.Replace(sampleGenesis(), "name: General", "name: "+name, 1)
		if _, err := ParseGenesisSpec([]byte(doc)); err == nil {
			t.Fatalf("expected court name %s to be rejected", name)
		}
	}
}
