package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/IlliniBlockchain/agora-courts/core/events"
	"github.com/IlliniBlockchain/agora-courts/core/state"
	"github.com/IlliniBlockchain/agora-courts/core/types"
	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
	"github.com/IlliniBlockchain/agora-courts/observability"
	telemetry "github.com/IlliniBlockchain/agora-courts/observability/otel"
	"github.com/IlliniBlockchain/agora-courts/storage"
)

// Receipt describes a committed action.
type Receipt struct {
	Action    string         `json:"action"`
	Time      int64          `json:"time"`
	StateRoot string         `json:"stateRoot"`
	Events    []*types.Event `json:"events"`
}

// Option customises a Node.
type Option func(*Node)

// WithClock overrides the wall clock. The node never lets the reading move
// backwards between actions.
func WithClock(clock func() int64) Option {
	return func(n *Node) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithEmitter attaches a subscriber that receives events after their action
// commits.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) {
		if emitter != nil {
			n.subscribers = append(n.subscribers, emitter)
		}
	}
}

// Node is the host environment for the court engine. It serialises actions,
// hands each action a single trusted clock reading, and runs the action inside
// a state journal so every action either commits in full or leaves no trace.
type Node struct {
	mu          sync.Mutex
	db          storage.Database
	state       *state.Manager
	ledger      *token.Ledger
	engine      *court.Engine
	buffer      *events.Buffer
	subscribers events.Fanout
	clock       func() int64
	now         int64
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.CourtMetrics
}

// NewNode wires the state manager, ledger and engine over db.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	manager, err := state.NewManager(db)
	if err != nil {
		return nil, err
	}
	n := &Node{
		db:          db,
		state:       manager,
		ledger:      token.NewLedger(),
		engine:      court.NewEngine(),
		buffer:      &events.Buffer{},
		subscribers: events.Fanout{observability.EventCounter{}},
		clock:       func() int64 { return time.Now().Unix() },
		logger:      slog.Default(),
		tracer:      telemetry.Tracer(),
		metrics:     observability.Court(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.ledger.SetState(manager)
	n.ledger.SetEmitter(n.buffer)
	n.engine.SetState(manager)
	n.engine.SetLedger(n.ledger)
	n.engine.SetEmitter(n.buffer)
	n.engine.SetNowFunc(func() int64 { return n.now })
	return n, nil
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Discard()
	n.db.Close()
}

func (n *Node) tick() int64 {
	now := n.clock()
	if now < n.now {
		now = n.now
	}
	n.now = now
	return now
}

// execute runs fn as one atomic action.
func (n *Node) execute(ctx context.Context, action string, attrs []attribute.KeyValue, fn func() error) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, span := n.tracer.Start(ctx, "court."+action, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()
	now := n.tick()

	fail := func(err error) (*Receipt, error) {
		n.state.Discard()
		n.buffer.Reset()
		kind := court.KindOf(err)
		n.metrics.ObserveAction(action, string(kind), time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logger.Warn("court action rejected",
			"action", action,
			"kind", string(kind),
			"code", court.CodeOf(err),
			"error", err.Error())
		return nil, err
	}

	if err := fn(); err != nil {
		return fail(err)
	}
	root, err := n.state.Commit()
	if err != nil {
		return fail(err)
	}
	n.metrics.RecordCommit()
	committed := n.buffer.Flush(n.subscribers)
	receipt := &Receipt{
		Action:    action,
		Time:      now,
		StateRoot: hex.EncodeToString(root[:]),
		Events:    events.Payloads(committed),
	}
	duration := time.Since(start)
	n.metrics.ObserveAction(action, "", duration)
	span.SetAttributes(attribute.Int("court.events", len(receipt.Events)))
	n.logger.Info("court action committed",
		"action", action,
		"events", len(receipt.Events),
		"root", receipt.StateRoot,
		"duration_ms", duration.Milliseconds())
	return receipt, nil
}

func addrAttr(key string, addr [20]byte) attribute.KeyValue {
	return attribute.String(key, crypto.FromRaw(addr).String())
}

// RegisterMint creates a token mint. It backs genesis and administrative
// tooling; the court itself only consumes existing mints.
func (n *Node) RegisterMint(ctx context.Context, symbol string, decimals uint8, authority [20]byte) (*token.Mint, *Receipt, error) {
	var mint *token.Mint
	receipt, err := n.execute(ctx, "registerMint", []attribute.KeyValue{attribute.String("token.symbol", symbol)}, func() error {
		var err error
		mint, err = n.ledger.RegisterMint(symbol, decimals, authority)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return mint, receipt, nil
}

// MintTo issues new supply signed by the mint authority.
func (n *Node) MintTo(ctx context.Context, mint, authority, owner [20]byte, amount uint64) (*Receipt, error) {
	return n.execute(ctx, "mintTo", []attribute.KeyValue{addrAttr("token.mint", mint)}, func() error {
		return n.ledger.MintTo(mint, authority, owner, amount)
	})
}

// Transfer moves tokens between two owners.
func (n *Node) Transfer(ctx context.Context, mint, from, to [20]byte, amount uint64) (*Receipt, error) {
	return n.execute(ctx, "transfer", []attribute.KeyValue{addrAttr("token.mint", mint)}, func() error {
		return n.ledger.Transfer(mint, from, to, amount)
	})
}

// CreateCourt registers a court.
func (n *Node) CreateCourt(ctx context.Context, params court.CreateCourtParams) (*court.Court, *Receipt, error) {
	var created *court.Court
	receipt, err := n.execute(ctx, "createCourt", []attribute.KeyValue{attribute.String("court.name", params.Name)}, func() error {
		var err error
		created, err = n.engine.CreateCourt(params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return created, receipt, nil
}

// InitializeDispute opens a dispute under a court.
func (n *Node) InitializeDispute(ctx context.Context, params court.InitializeDisputeParams) (*court.Dispute, *Receipt, error) {
	var dispute *court.Dispute
	receipt, err := n.execute(ctx, "initializeDispute", []attribute.KeyValue{addrAttr("court.address", params.Court)}, func() error {
		var err error
		dispute, err = n.engine.InitializeDispute(params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return dispute, receipt, nil
}

// BindParty stakes a party into a dispute slot.
func (n *Node) BindParty(ctx context.Context, disputeAddr [20]byte, slot int, user [20]byte, repStake, payStake uint64) (*court.Dispute, *Receipt, error) {
	var dispute *court.Dispute
	attrs := []attribute.KeyValue{addrAttr("court.dispute", disputeAddr), attribute.Int("court.slot", slot)}
	receipt, err := n.execute(ctx, "bindParty", attrs, func() error {
		var err error
		dispute, err = n.engine.BindParty(disputeAddr, slot, user, repStake, payStake)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return dispute, receipt, nil
}

// SubmitEvidence records an evidence reference for a party.
func (n *Node) SubmitEvidence(ctx context.Context, disputeAddr, party [20]byte, ref string) (*court.Dispute, *Receipt, error) {
	var dispute *court.Dispute
	receipt, err := n.execute(ctx, "submitEvidence", []attribute.KeyValue{addrAttr("court.dispute", disputeAddr)}, func() error {
		var err error
		dispute, err = n.engine.SubmitEvidence(disputeAddr, party, ref)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return dispute, receipt, nil
}

// CastVote records a ballot.
func (n *Node) CastVote(ctx context.Context, disputeAddr, voter [20]byte, side court.Side) (*court.Ballot, *Receipt, error) {
	var ballot *court.Ballot
	attrs := []attribute.KeyValue{addrAttr("court.dispute", disputeAddr), attribute.String("court.side", side.String())}
	receipt, err := n.execute(ctx, "castVote", attrs, func() error {
		var err error
		ballot, err = n.engine.CastVote(disputeAddr, voter, side)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return ballot, receipt, nil
}

// Resolve settles a dispute whose voting window has closed.
func (n *Node) Resolve(ctx context.Context, disputeAddr [20]byte) (*court.Resolution, *Receipt, error) {
	var res *court.Resolution
	receipt, err := n.execute(ctx, "resolve", []attribute.KeyValue{addrAttr("court.dispute", disputeAddr)}, func() error {
		var err error
		res, err = n.engine.Resolve(disputeAddr)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	n.metrics.RecordOutcome(res.Dispute.Outcome.String())
	if res.Plan != nil {
		for _, payout := range res.Plan.Payouts {
			n.metrics.RecordSettlement(payout.Asset.String(), string(payout.Reason), payout.Amount)
		}
	}
	return res, receipt, nil
}

// query runs fn against committed state under the node lock.
func (n *Node) query(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// Court returns the court registered under name.
func (n *Node) Court(name string) (*court.Court, error) {
	var out *court.Court
	err := n.query(func() error {
		var err error
		out, err = n.engine.Court(name)
		return err
	})
	return out, err
}

// CourtAt returns the court stored at addr.
func (n *Node) CourtAt(addr [20]byte) (*court.Court, error) {
	var out *court.Court
	err := n.query(func() error {
		var err error
		out, err = n.engine.CourtAt(addr)
		return err
	})
	return out, err
}

// NextDisputeIndex returns the counter value the next dispute will use.
func (n *Node) NextDisputeIndex(courtAddr [20]byte) (uint64, error) {
	var out uint64
	err := n.query(func() error {
		var err error
		out, err = n.engine.NextDisputeIndex(courtAddr)
		return err
	})
	return out, err
}

// Dispute returns the dispute stored at addr.
func (n *Node) Dispute(addr [20]byte) (*court.Dispute, error) {
	var out *court.Dispute
	err := n.query(func() error {
		var err error
		out, err = n.engine.Dispute(addr)
		return err
	})
	return out, err
}

// DisputeAt returns the dispute created with the given counter value.
func (n *Node) DisputeAt(courtAddr [20]byte, index uint64) (*court.Dispute, error) {
	var out *court.Dispute
	err := n.query(func() error {
		var err error
		out, err = n.engine.DisputeAt(courtAddr, index)
		return err
	})
	return out, err
}

// Phase returns the phase of a dispute at the current clock reading.
func (n *Node) Phase(addr [20]byte) (court.Phase, error) {
	var out court.Phase
	err := n.query(func() error {
		d, err := n.engine.Dispute(addr)
		if err != nil {
			return err
		}
		now := n.clock()
		if now < n.now {
			now = n.now
		}
		out = court.CurrentPhase(d, now)
		return nil
	})
	return out, err
}

// Ballots returns the ballots cast on a dispute in cast order.
func (n *Node) Ballots(addr [20]byte) ([]*court.Ballot, error) {
	var out []*court.Ballot
	err := n.query(func() error {
		var err error
		out, err = n.engine.Ballots(addr)
		return err
	})
	return out, err
}

// Record returns a user's voter record within a court.
func (n *Node) Record(courtAddr, user [20]byte) (*court.VoterRecord, error) {
	var out *court.VoterRecord
	err := n.query(func() error {
		var err error
		out, err = n.engine.Record(courtAddr, user)
		return err
	})
	return out, err
}

// Balance returns the owner's balance of mint.
func (n *Node) Balance(owner, mint [20]byte) (uint64, error) {
	var out uint64
	err := n.query(func() error {
		var err error
		out, err = n.ledger.Balance(owner, mint)
		return err
	})
	return out, err
}

// Mint returns the mint stored at addr.
func (n *Node) Mint(addr [20]byte) (*token.Mint, error) {
	var out *token.Mint
	err := n.query(func() error {
		var err error
		out, err = n.ledger.Mint(addr)
		return err
	})
	return out, err
}

// StateRoot returns the root of the last committed action.
func (n *Node) StateRoot() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	root := n.state.Root()
	return hex.EncodeToString(root[:])
}

// String renders a short description for logs.
func (n *Node) String() string {
	return fmt.Sprintf("node(root=%s)", n.StateRoot())
}
