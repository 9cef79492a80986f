package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IlliniBlockchain/agora-courts/core/events"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
	"github.com/IlliniBlockchain/agora-courts/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(evt events.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt.EventType())
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func addr(fill byte) [20]byte {
	var out [20]byte
	copy(out[:], bytes.Repeat([]byte{fill}, 20))
	return out
}

var (
	authority = addr(0xA0)
	protocol  = addr(0xB0)
	alice     = addr(0x01)
	bob       = addr(0x02)
	carol     = addr(0x03)
)

type fixture struct {
	node  *Node
	now   int64
	sink  *recorder
	rep   [20]byte
	pay   [20]byte
	court *court.Court
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: 1_000, sink: &recorder{}}
	node, err := NewNode(storage.NewMemDB(),
		WithClock(func() int64 { return f.now }),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithEmitter(f.sink),
	)
	require.NoError(t, err)
	f.node = node

	ctx := context.Background()
	rep, _, err := node.RegisterMint(ctx, "REP", 0, authority)
	require.NoError(t, err)
	pay, _, err := node.RegisterMint(ctx, "PAY", 0, authority)
	require.NoError(t, err)
	f.rep, f.pay = rep.Address, pay.Address

	f.court, _, err = node.CreateCourt(ctx, court.CreateCourtParams{
		Name:      "general",
		RepMint:   f.rep,
		PayMint:   f.pay,
		Protocol:  protocol,
		Authority: authority,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) fund(t *testing.T, user [20]byte, rep, pay uint64) {
	t.Helper()
	_, err := f.node.MintTo(context.Background(), f.rep, authority, user, rep)
	require.NoError(t, err)
	_, err = f.node.MintTo(context.Background(), f.pay, authority, user, pay)
	require.NoError(t, err)
}

func (f *fixture) config() court.DisputeConfig {
	return court.DisputeConfig{
		GraceEndsAt:      f.now + 100,
		InitCasesEndsAt:  f.now + 200,
		EndsAt:           f.now + 300,
		VoterRepRequired: 5,
		VoterRepCost:     1,
		RepCost:          10,
		PayCost:          20,
		MinVotes:         1,
	}
}

func TestNodeFullDisputeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, alice, 50, 50)
	f.fund(t, bob, 50, 50)
	f.fund(t, carol, 10, 0)

	d, receipt, err := f.node.InitializeDispute(ctx, court.InitializeDisputeParams{
		Court:  f.court.Address,
		Config: f.config(),
		Payer:  alice,
	})
	require.NoError(t, err)
	require.Equal(t, "initializeDispute", receipt.Action)
	require.Equal(t, court.EventTypeDisputeCreated, receipt.Events[len(receipt.Events)-1].Type)

	_, _, err = f.node.BindParty(ctx, d.Address, 0, alice, 10, 20)
	require.NoError(t, err)
	_, _, err = f.node.BindParty(ctx, d.Address, 1, bob, 10, 20)
	require.NoError(t, err)

	f.now = 1_250
	phase, err := f.node.Phase(d.Address)
	require.NoError(t, err)
	require.Equal(t, court.PhaseVoting, phase)

	_, _, err = f.node.CastVote(ctx, d.Address, carol, court.SidePartyA)
	require.NoError(t, err)

	f.now = 1_301
	res, receipt, err := f.node.Resolve(ctx, d.Address)
	require.NoError(t, err)
	require.Equal(t, court.OutcomePartyA, res.Dispute.Outcome)
	require.NotEmpty(t, receipt.Events)

	bobPay, err := f.node.Balance(bob, f.pay)
	require.NoError(t, err)
	require.Equal(t, uint64(30), bobPay)
	alicePay, err := f.node.Balance(alice, f.pay)
	require.NoError(t, err)
	require.Equal(t, uint64(50), alicePay)

	stored, err := f.node.DisputeAt(f.court.Address, 0)
	require.NoError(t, err)
	require.True(t, stored.Resolved())
	require.Contains(t, f.sink.types(), court.EventTypeDisputeResolved)
}

func TestNodeRollsBackFailedAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Push the REP supply to the edge so the protocol reward mint overflows
	// after both vaults have already been opened.
	_, err := f.node.MintTo(ctx, f.rep, authority, carol, math.MaxUint64-1)
	require.NoError(t, err)

	rootBefore := f.node.StateRoot()
	seen := len(f.sink.types())

	cfg := f.config()
	cfg.ProtocolRep = 5
	auth := authority
	_, _, err = f.node.InitializeDispute(ctx, court.InitializeDisputeParams{
		Court:         f.court.Address,
		Config:        cfg,
		Payer:         alice,
		MintAuthority: &auth,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, court.ErrMintFailed))
	require.Equal(t, court.KindFunding, court.KindOf(err))

	require.Equal(t, rootBefore, f.node.StateRoot())
	require.Len(t, f.sink.types(), seen, "rejected action must not publish events")

	next, err := f.node.NextDisputeIndex(f.court.Address)
	require.NoError(t, err)
	require.Zero(t, next)

	vault := court.DisputeAddress(f.court.Address, 0)
	_, ok, err := f.node.ledger.Account(vault, f.rep)
	require.NoError(t, err)
	require.False(t, ok, "vault creation must be rolled back")

	// The node keeps working after the rollback.
	cfg.ProtocolRep = 0
	d, _, err := f.node.InitializeDispute(ctx, court.InitializeDisputeParams{Court: f.court.Address, Config: cfg})
	require.NoError(t, err)
	require.Equal(t, vault, d.Address)
}

func TestNodeClockNeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.now = 2_000
	receipt, err := f.node.MintTo(ctx, f.rep, authority, alice, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2_000), receipt.Time)

	f.now = 1_500
	receipt, err = f.node.MintTo(ctx, f.rep, authority, alice, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2_000), receipt.Time)
}

func TestNodeRejectsUnauthorizedMint(t *testing.T) {
	f := newFixture(t)
	_, err := f.node.MintTo(context.Background(), f.rep, alice, alice, 10)
	require.ErrorIs(t, err, token.ErrUnauthorizedMint)
	bal, err := f.node.Balance(alice, f.rep)
	require.NoError(t, err)
	require.Zero(t, bal)
}

func TestNodePersistsAcrossRestart(t *testing.T) {
	db := storage.NewMemDB()
	node, err := NewNode(db, WithClock(func() int64 { return 1_000 }))
	require.NoError(t, err)
	mint, _, err := node.RegisterMint(context.Background(), "REP", 0, authority)
	require.NoError(t, err)
	root := node.StateRoot()

	reopened, err := NewNode(db)
	require.NoError(t, err)
	require.Equal(t, root, reopened.StateRoot())
	got, err := reopened.Mint(mint.Address)
	require.NoError(t, err)
	require.Equal(t, "REP", got.Symbol)
}
