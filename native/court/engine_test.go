package court

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/IlliniBlockchain/agora-courts/core/events"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

type mockState struct {
	courts      map[[20]byte]*Court
	disputes    map[[20]byte]*Dispute
	ballots     map[[40]byte]*Ballot
	ballotOrder map[[20]byte][][20]byte
	records     map[[40]byte]*VoterRecord
	mints       map[[20]byte]*token.Mint
	accounts    map[[20]byte]*token.Account
}

func newMockState() *mockState {
	return &mockState{
		courts:      make(map[[20]byte]*Court),
		disputes:    make(map[[20]byte]*Dispute),
		ballots:     make(map[[40]byte]*Ballot),
		ballotOrder: make(map[[20]byte][][20]byte),
		records:     make(map[[40]byte]*VoterRecord),
		mints:       make(map[[20]byte]*token.Mint),
		accounts:    make(map[[20]byte]*token.Account),
	}
}

func pairKey(a, b [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], a[:])
	copy(key[20:], b[:])
	return key
}

func (m *mockState) CourtGet(addr [20]byte) (*Court, bool, error) {
	c, ok := m.courts[addr]
	return c.Clone(), ok, nil
}

func (m *mockState) CourtPut(c *Court) error {
	m.courts[c.Address] = c.Clone()
	return nil
}

func (m *mockState) DisputeGet(addr [20]byte) (*Dispute, bool, error) {
	d, ok := m.disputes[addr]
	return d.Clone(), ok, nil
}

func (m *mockState) DisputePut(d *Dispute) error {
	m.disputes[d.Address] = d.Clone()
	return nil
}

func (m *mockState) BallotGet(dispute, voter [20]byte) (*Ballot, bool, error) {
	b, ok := m.ballots[pairKey(dispute, voter)]
	return b.Clone(), ok, nil
}

func (m *mockState) BallotPut(b *Ballot) error {
	key := pairKey(b.Dispute, b.Voter)
	if _, ok := m.ballots[key]; !ok {
		m.ballotOrder[b.Dispute] = append(m.ballotOrder[b.Dispute], b.Voter)
	}
	m.ballots[key] = b.Clone()
	return nil
}

func (m *mockState) BallotList(dispute [20]byte) ([]*Ballot, error) {
	voters := m.ballotOrder[dispute]
	out := make([]*Ballot, 0, len(voters))
	for _, voter := range voters {
		out = append(out, m.ballots[pairKey(dispute, voter)].Clone())
	}
	return out, nil
}

func (m *mockState) VoterRecordGet(court, user [20]byte) (*VoterRecord, bool, error) {
	r, ok := m.records[pairKey(court, user)]
	return r.Clone(), ok, nil
}

func (m *mockState) VoterRecordPut(r *VoterRecord) error {
	m.records[pairKey(r.Court, r.User)] = r.Clone()
	return nil
}

func (m *mockState) TokenMintGet(addr [20]byte) (*token.Mint, bool, error) {
	mint, ok := m.mints[addr]
	return mint.Clone(), ok, nil
}

func (m *mockState) TokenMintPut(mint *token.Mint) error {
	m.mints[mint.Address] = mint.Clone()
	return nil
}

func (m *mockState) TokenAccountGet(addr [20]byte) (*token.Account, bool, error) {
	acc, ok := m.accounts[addr]
	return acc.Clone(), ok, nil
}

func (m *mockState) TokenAccountPut(acc *token.Account) error {
	m.accounts[acc.Address] = acc.Clone()
	return nil
}

func (m *mockState) clone() *mockState {
	out := newMockState()
	for k, v := range m.courts {
		out.courts[k] = v.Clone()
	}
	for k, v := range m.disputes {
		out.disputes[k] = v.Clone()
	}
	for k, v := range m.ballots {
		out.ballots[k] = v.Clone()
	}
	for k, v := range m.ballotOrder {
		out.ballotOrder[k] = append([][20]byte(nil), v...)
	}
	for k, v := range m.records {
		out.records[k] = v.Clone()
	}
	for k, v := range m.mints {
		out.mints[k] = v.Clone()
	}
	for k, v := range m.accounts {
		out.accounts[k] = v.Clone()
	}
	return out
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	testAuthority = newTestAddress(0xA0)
	testProtocol  = newTestAddress(0xB0)
	alice         = newTestAddress(0x01)
	bob           = newTestAddress(0x02)
	carol         = newTestAddress(0x03)
	dave          = newTestAddress(0x04)
	erin          = newTestAddress(0x05)
)

const testStart int64 = 1_000

type testEnv struct {
	t       *testing.T
	engine  *Engine
	ledger  *token.Ledger
	state   *mockState
	buf     *events.Buffer
	now     int64
	court   *Court
	repMint [20]byte
	payMint [20]byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{t: t, state: newMockState(), buf: &events.Buffer{}, now: testStart}
	env.ledger = token.NewLedger()
	env.ledger.SetState(env.state)
	rep, err := env.ledger.RegisterMint("REP", 0, testAuthority)
	if err != nil {
		t.Fatalf("register rep: %v", err)
	}
	pay, err := env.ledger.RegisterMint("PAY", 0, testAuthority)
	if err != nil {
		t.Fatalf("register pay: %v", err)
	}
	env.repMint, env.payMint = rep.Address, pay.Address

	env.engine = NewEngine()
	env.engine.SetState(env.state)
	env.engine.SetLedger(env.ledger)
	env.engine.SetEmitter(env.buf)
	env.engine.SetNowFunc(func() int64 { return env.now })

	env.court, err = env.engine.CreateCourt(CreateCourtParams{
		Name:      "general",
		RepMint:   env.repMint,
		PayMint:   env.payMint,
		Protocol:  testProtocol,
		Authority: testAuthority,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	env.buf.Reset()
	return env
}

func (env *testEnv) fund(user [20]byte, rep, pay uint64) {
	env.t.Helper()
	if err := env.ledger.MintTo(env.repMint, testAuthority, user, rep); err != nil {
		env.t.Fatalf("fund rep: %v", err)
	}
	if err := env.ledger.MintTo(env.payMint, testAuthority, user, pay); err != nil {
		env.t.Fatalf("fund pay: %v", err)
	}
}

func (env *testEnv) balance(user, mint [20]byte) uint64 {
	env.t.Helper()
	bal, err := env.ledger.Balance(user, mint)
	if err != nil {
		env.t.Fatalf("balance: %v", err)
	}
	return bal
}

func testConfig() DisputeConfig {
	return DisputeConfig{
		GraceEndsAt:      testStart + 100,
		InitCasesEndsAt:  testStart + 200,
		EndsAt:           testStart + 300,
		VoterRepRequired: 5,
		VoterRepCost:     1,
		RepCost:          10,
		PayCost:          20,
		MinVotes:         1,
		ProtocolPay:      4,
		ProtocolRep:      2,
	}
}

func (env *testEnv) createDispute(cfg DisputeConfig) *Dispute {
	env.t.Helper()
	d, err := env.engine.InitializeDispute(InitializeDisputeParams{
		Court:  env.court.Address,
		Config: cfg,
		Payer:  alice,
	})
	if err != nil {
		env.t.Fatalf("initialize dispute: %v", err)
	}
	return d
}

// boundDispute creates a dispute with alice in slot 0 and bob in slot 1.
func (env *testEnv) boundDispute() *Dispute {
	env.t.Helper()
	env.fund(alice, 50, 50)
	env.fund(bob, 50, 50)
	d := env.createDispute(testConfig())
	for slot, user := range [][20]byte{alice, bob} {
		if _, err := env.engine.BindParty(d.Address, slot, user, 10, 20); err != nil {
			env.t.Fatalf("bind slot %d: %v", slot, err)
		}
	}
	return d
}

func testCID(t *testing.T, data string) string {
	t.Helper()
	sum, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash: %v", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

func TestCreateCourt(t *testing.T) {
	env := newTestEnv(t)
	if env.court.DisputeCount != 0 {
		t.Fatalf("expected zero counter, got %d", env.court.DisputeCount)
	}
	want, _ := CourtAddress("general")
	if env.court.Address != want {
		t.Fatalf("court not at derived address")
	}
	_, err := env.engine.CreateCourt(CreateCourtParams{Name: " general ", RepMint: env.repMint, PayMint: env.payMint, Protocol: testProtocol})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	_, err = env.engine.CreateCourt(CreateCourtParams{Name: "same-mint", RepMint: env.repMint, PayMint: env.repMint, Protocol: testProtocol})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for shared mint, got %v", err)
	}
	_, err = env.engine.CreateCourt(CreateCourtParams{Name: "unknown-mint", RepMint: env.repMint, PayMint: newTestAddress(0xEE), Protocol: testProtocol})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown mint, got %v", err)
	}
	_, err = env.engine.CreateCourt(CreateCourtParams{Name: string(bytes.Repeat([]byte("x"), MaxCourtNameLength+1)), RepMint: env.repMint, PayMint: env.payMint, Protocol: testProtocol})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for long name, got %v", err)
	}
	loaded, err := env.engine.Court("general")
	if err != nil {
		t.Fatalf("court query: %v", err)
	}
	if loaded.Protocol != testProtocol {
		t.Fatalf("unexpected protocol")
	}
}

func TestInitializeDisputeAdvancesCounter(t *testing.T) {
	env := newTestEnv(t)
	for i := uint64(0); i < 3; i++ {
		next, err := env.engine.NextDisputeIndex(env.court.Address)
		if err != nil {
			t.Fatalf("next index: %v", err)
		}
		if next != i {
			t.Fatalf("expected next index %d, got %d", i, next)
		}
		d := env.createDispute(testConfig())
		if d.Index != i || d.Address != DisputeAddress(env.court.Address, i) {
			t.Fatalf("dispute %d not at derived address", i)
		}
		if d.Phase != PhaseGrace || d.Outcome != OutcomeUnset {
			t.Fatalf("unexpected initial state: %s %s", d.Phase, d.Outcome)
		}
		if d.RepVault != token.AccountAddress(d.Address, env.repMint) || d.PayVault != token.AccountAddress(d.Address, env.payMint) {
			t.Fatalf("vaults not at derived addresses")
		}
		if _, ok, _ := env.ledger.Account(d.Address, env.repMint); !ok {
			t.Fatalf("reputation vault not created")
		}
		loaded, err := env.engine.DisputeAt(env.court.Address, i)
		if err != nil || loaded.Address != d.Address {
			t.Fatalf("dispute lookup by index failed: %v", err)
		}
	}
}

func TestInitializeDisputeRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]func(*DisputeConfig){
		"grace in past":       func(c *DisputeConfig) { c.GraceEndsAt = testStart },
		"cases before grace":  func(c *DisputeConfig) { c.InitCasesEndsAt = c.GraceEndsAt },
		"ends before cases":   func(c *DisputeConfig) { c.EndsAt = c.InitCasesEndsAt - 1 },
		"everything reversed": func(c *DisputeConfig) { c.GraceEndsAt, c.EndsAt = c.EndsAt, c.GraceEndsAt },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			before := env.state.clone()
			_, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: env.court.Address, Config: cfg})
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Fatalf("expected ErrInvalidSchedule, got %v", err)
			}
			if KindOf(err) != KindSchedule {
				t.Fatalf("expected schedule kind, got %s", KindOf(err))
			}
			if !reflect.DeepEqual(before, env.state) {
				t.Fatalf("state changed on failed creation")
			}
		})
	}
	cfg := testConfig()
	cfg.MinVotes = 0
	if _, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: env.court.Address, Config: cfg}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero quorum, got %v", err)
	}
	if _, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: newTestAddress(0x77), Config: testConfig()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown court, got %v", err)
	}
}

func TestInitializeDisputeAddressCollision(t *testing.T) {
	env := newTestEnv(t)
	squatted := DisputeAddress(env.court.Address, 0)
	if _, err := env.ledger.CreateAccount(squatted, env.payMint); err != nil {
		t.Fatalf("squat vault: %v", err)
	}
	_, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: env.court.Address, Config: testConfig()})
	if !errors.Is(err, ErrAddressCollision) {
		t.Fatalf("expected ErrAddressCollision, got %v", err)
	}
	next, _ := env.engine.NextDisputeIndex(env.court.Address)
	if next != 0 {
		t.Fatalf("counter advanced on failed creation: %d", next)
	}
}

func TestInitializeDisputeProtocolReward(t *testing.T) {
	env := newTestEnv(t)
	wrong := newTestAddress(0xCC)
	_, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: env.court.Address, Config: testConfig(), MintAuthority: &wrong})
	if !errors.Is(err, ErrMintFailed) || KindOf(err) != KindFunding {
		t.Fatalf("expected ErrMintFailed, got %v", err)
	}
	authority := testAuthority
	d, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: env.court.Address, Config: testConfig(), MintAuthority: &authority})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if d.ProtocolRewardCredited != 2 {
		t.Fatalf("expected protocol reward 2, got %d", d.ProtocolRewardCredited)
	}
	if bal := env.balance(testProtocol, env.repMint); bal != 2 {
		t.Fatalf("expected protocol rep balance 2, got %d", bal)
	}
	var sawReward bool
	for _, evt := range env.buf.Events() {
		if evt.EventType() == EventTypeProtocolRewarded {
			sawReward = true
		}
	}
	if !sawReward {
		t.Fatalf("expected protocol reward event")
	}
}

func TestBindParty(t *testing.T) {
	env := newTestEnv(t)
	env.fund(alice, 50, 50)
	env.fund(bob, 50, 50)
	env.fund(carol, 5, 5)
	d := env.createDispute(testConfig())

	if _, err := env.engine.BindParty(d.Address, 2, alice, 10, 20); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 0, alice, 9, 20); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for short stake, got %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 0, carol, 10, 20); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for short balance, got %v", err)
	}
	updated, err := env.engine.BindParty(d.Address, 0, alice, 15, 25)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !updated.Parties[0].Staked || updated.Parties[0].User != alice {
		t.Fatalf("slot 0 not bound to alice")
	}
	if updated.EscrowedRep != 10 || updated.EscrowedPay != 20 {
		t.Fatalf("expected exact costs escrowed, got rep=%d pay=%d", updated.EscrowedRep, updated.EscrowedPay)
	}
	if env.balance(alice, env.repMint) != 40 || env.balance(alice, env.payMint) != 30 {
		t.Fatalf("unexpected alice balances")
	}
	if env.balance(d.Address, env.repMint) != 10 || env.balance(d.Address, env.payMint) != 20 {
		t.Fatalf("vaults not funded")
	}
	if _, err := env.engine.BindParty(d.Address, 0, bob, 10, 20); !errors.Is(err, ErrSlotTaken) || KindOf(err) != KindIdentity {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 1, alice, 10, 20); !errors.Is(err, ErrAlreadyParty) {
		t.Fatalf("expected ErrAlreadyParty, got %v", err)
	}
	record, err := env.engine.Record(env.court.Address, alice)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if record.StakedRep != 10 || record.StakedPay != 20 || record.ActiveDisputes != 1 || record.Participations != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestBindPartyReservedSlot(t *testing.T) {
	env := newTestEnv(t)
	env.fund(alice, 50, 50)
	env.fund(carol, 50, 50)
	reserved := alice
	d, err := env.engine.InitializeDispute(InitializeDisputeParams{
		Court:   env.court.Address,
		Config:  testConfig(),
		Parties: [2]*[20]byte{&reserved, nil},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 0, carol, 10, 20); !errors.Is(err, ErrSlotReserved) {
		t.Fatalf("expected ErrSlotReserved, got %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 1, alice, 10, 20); !errors.Is(err, ErrAlreadyParty) {
		t.Fatalf("expected ErrAlreadyParty, got %v", err)
	}
	if _, err := env.engine.BindParty(d.Address, 0, alice, 10, 20); err != nil {
		t.Fatalf("bind reserved: %v", err)
	}
	dup := alice
	_, err = env.engine.InitializeDispute(InitializeDisputeParams{
		Court:   env.court.Address,
		Config:  testConfig(),
		Parties: [2]*[20]byte{&reserved, &dup},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for duplicate reservation, got %v", err)
	}
}

func TestLateBindingPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.fund(alice, 50, 50)
	strict := env.createDispute(testConfig())
	lateCfg := testConfig()
	lateCfg.AllowLateBinding = true
	late := env.createDispute(lateCfg)

	env.now = testStart + 150
	if _, err := env.engine.BindParty(strict.Address, 0, alice, 10, 20); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase without late binding, got %v", err)
	}
	if _, err := env.engine.BindParty(late.Address, 0, alice, 10, 20); err != nil {
		t.Fatalf("late bind: %v", err)
	}
	env.now = testStart + 250
	if _, err := env.engine.BindParty(late.Address, 1, bob, 10, 20); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase during voting, got %v", err)
	}
}

func TestSubmitEvidence(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	ref := testCID(t, "exhibit-a")

	if _, err := env.engine.SubmitEvidence(d.Address, alice, ref); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase during grace, got %v", err)
	}
	env.now = testStart + 150
	if _, err := env.engine.SubmitEvidence(d.Address, carol, ref); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}
	if _, err := env.engine.SubmitEvidence(d.Address, alice, "not-a-cid"); !errors.Is(err, ErrInvalidEvidence) {
		t.Fatalf("expected ErrInvalidEvidence, got %v", err)
	}
	updated, err := env.engine.SubmitEvidence(d.Address, alice, ref)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(updated.Parties[0].Evidence) != 1 || updated.SubmittedCases != 1 || updated.Phase != PhaseCaseSubmission {
		t.Fatalf("unexpected dispute after evidence: %+v", updated)
	}
	if _, err := env.engine.SubmitEvidence(d.Address, alice, ref); !errors.Is(err, ErrDuplicateEvidence) {
		t.Fatalf("expected ErrDuplicateEvidence, got %v", err)
	}
	for i := 1; i < MaxEvidenceRefs; i++ {
		if _, err := env.engine.SubmitEvidence(d.Address, alice, testCID(t, string(rune('a'+i)))); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, err := env.engine.SubmitEvidence(d.Address, alice, testCID(t, "one-too-many")); !errors.Is(err, ErrEvidenceLimit) {
		t.Fatalf("expected ErrEvidenceLimit, got %v", err)
	}
	updated, err = env.engine.SubmitEvidence(d.Address, bob, testCID(t, "exhibit-b"))
	if err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	if updated.SubmittedCases != 2 {
		t.Fatalf("expected two submitted cases, got %d", updated.SubmittedCases)
	}
}

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.fund(carol, 10, 0)
	env.fund(dave, 4, 0)

	env.now = testStart + 250
	if _, err := env.engine.CastVote(d.Address, carol, SideNone); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
	if _, err := env.engine.CastVote(d.Address, alice, SidePartyA); !errors.Is(err, ErrPartyCannotVote) {
		t.Fatalf("expected ErrPartyCannotVote, got %v", err)
	}
	if _, err := env.engine.CastVote(d.Address, dave, SidePartyA); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds below requirement, got %v", err)
	}
	ballot, err := env.engine.CastVote(d.Address, carol, SidePartyA)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if ballot.Weight != 10 || ballot.Cost != 1 || ballot.CastAt != env.now {
		t.Fatalf("unexpected ballot: %+v", ballot)
	}
	if env.balance(carol, env.repMint) != 9 {
		t.Fatalf("vote cost not charged")
	}
	if _, err := env.engine.CastVote(d.Address, carol, SidePartyB); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	// Moving tokens after voting leaves the recorded weight untouched.
	if err := env.ledger.Transfer(env.repMint, carol, erin, 9); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	ballots, err := env.engine.Ballots(d.Address)
	if err != nil {
		t.Fatalf("ballots: %v", err)
	}
	if len(ballots) != 1 || ballots[0].Weight != 10 {
		t.Fatalf("ballot weight changed: %+v", ballots)
	}
	loaded, _ := env.engine.Dispute(d.Address)
	if loaded.Tally.WeightA != 10 || loaded.Tally.Votes != 1 || loaded.EscrowedRep != 21 {
		t.Fatalf("unexpected tally: %+v escrowed=%d", loaded.Tally, loaded.EscrowedRep)
	}
}

func TestCastVoteLimit(t *testing.T) {
	env := newTestEnv(t)
	limited, err := env.engine.CreateCourt(CreateCourtParams{
		Name:            "small-claims",
		RepMint:         env.repMint,
		PayMint:         env.payMint,
		Protocol:        testProtocol,
		MaxDisputeVotes: 1,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	d, err := env.engine.InitializeDispute(InitializeDisputeParams{Court: limited.Address, Config: testConfig()})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	env.fund(carol, 10, 0)
	env.fund(dave, 10, 0)
	env.now = testStart + 250
	if _, err := env.engine.CastVote(d.Address, carol, SidePartyA); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := env.engine.CastVote(d.Address, dave, SidePartyB); !errors.Is(err, ErrVoteLimitReached) {
		t.Fatalf("expected ErrVoteLimitReached, got %v", err)
	}
}

func TestScenarioADecisiveOutcome(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.fund(carol, 10, 0)
	env.now = testStart + 250
	if _, err := env.engine.CastVote(d.Address, carol, SidePartyA); err != nil {
		t.Fatalf("vote: %v", err)
	}
	env.now = testStart + 300
	res, err := env.engine.Resolve(d.Address)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Dispute.Outcome != OutcomePartyA || res.Dispute.Phase != PhaseResolved {
		t.Fatalf("unexpected resolution: %s %s", res.Dispute.Outcome, res.Dispute.Phase)
	}
	checks := []struct {
		name string
		user [20]byte
		mint [20]byte
		want uint64
	}{
		{"alice rep refunded", alice, env.repMint, 50},
		{"alice pay refunded", alice, env.payMint, 50},
		{"bob rep forfeited", bob, env.repMint, 40},
		{"bob pay forfeited", bob, env.payMint, 30},
		{"carol rep reward", carol, env.repMint, 9 + 9},
		{"carol pay reward", carol, env.payMint, 16},
		{"protocol rep cut", testProtocol, env.repMint, 2},
		{"protocol pay cut", testProtocol, env.payMint, 4},
		{"rep vault drained", d.Address, env.repMint, 0},
		{"pay vault drained", d.Address, env.payMint, 0},
	}
	for _, c := range checks {
		if got := env.balance(c.user, c.mint); got != c.want {
			t.Fatalf("%s: expected %d, got %d", c.name, c.want, got)
		}
	}
	if res.Dispute.EscrowedRep != 0 || res.Dispute.EscrowedPay != 0 {
		t.Fatalf("tracked balances not cleared")
	}
	record, _ := env.engine.Record(env.court.Address, alice)
	if record.ActiveDisputes != 0 || record.StakedRep != 0 || record.Participations != 1 {
		t.Fatalf("record not released: %+v", record)
	}
}

func TestScenarioBNoQuorumRefunds(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.now = testStart + 400
	res, err := env.engine.Resolve(d.Address)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Dispute.Outcome != OutcomeNoQuorum {
		t.Fatalf("expected NoQuorum, got %s", res.Dispute.Outcome)
	}
	for _, user := range [][20]byte{alice, bob} {
		if env.balance(user, env.repMint) != 50 || env.balance(user, env.payMint) != 50 {
			t.Fatalf("party not fully refunded")
		}
	}
	if env.balance(testProtocol, env.repMint) != 0 || env.balance(testProtocol, env.payMint) != 0 {
		t.Fatalf("protocol paid on no quorum")
	}
}

func TestScenarioCTieIsVoid(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.fund(dave, 5, 0)
	env.fund(erin, 5, 0)
	env.now = testStart + 250
	if _, err := env.engine.CastVote(d.Address, dave, SidePartyA); err != nil {
		t.Fatalf("vote dave: %v", err)
	}
	if _, err := env.engine.CastVote(d.Address, erin, SidePartyB); err != nil {
		t.Fatalf("vote erin: %v", err)
	}
	env.now = testStart + 300
	res, err := env.engine.Resolve(d.Address)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Dispute.Outcome != OutcomeVoid {
		t.Fatalf("expected Void, got %s", res.Dispute.Outcome)
	}
	for _, user := range [][20]byte{alice, bob} {
		if env.balance(user, env.repMint) != 50 || env.balance(user, env.payMint) != 50 {
			t.Fatalf("party not fully refunded")
		}
	}
	for _, voter := range [][20]byte{dave, erin} {
		if env.balance(voter, env.repMint) != 5 || env.balance(voter, env.payMint) != 0 {
			t.Fatalf("voter rewarded or cost kept on void")
		}
	}
	for _, p := range res.Plan.Payouts {
		if p.Reason == ReasonVoterReward {
			t.Fatalf("unexpected voter reward on void")
		}
	}
}

func TestScenarioDActionBeforeWindow(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.fund(carol, 10, 0)
	env.buf.Reset()
	before := env.state.clone()

	_, err := env.engine.CastVote(d.Address, carol, SidePartyA)
	if !errors.Is(err, ErrWrongPhase) || KindOf(err) != KindPhase {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if _, err := env.engine.Resolve(d.Address); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase for early resolve, got %v", err)
	}
	if !reflect.DeepEqual(before, env.state) {
		t.Fatalf("state changed on rejected action")
	}
	if len(env.buf.Events()) != 0 {
		t.Fatalf("events emitted on rejected action")
	}
}

func TestResolveTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.now = testStart + 300
	if _, err := env.engine.Resolve(d.Address); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	before := env.state.clone()
	env.now = testStart + 1_000
	if _, err := env.engine.Resolve(d.Address); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase on second resolve, got %v", err)
	}
	if !reflect.DeepEqual(before, env.state) {
		t.Fatalf("second resolve moved funds")
	}
	phase, err := env.engine.Phase(d.Address)
	if err != nil || phase != PhaseResolved {
		t.Fatalf("expected resolved phase, got %s (%v)", phase, err)
	}
}

func TestResolveRejectsDrainedVault(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	// Simulate a vault that lost funds outside the engine.
	vault := env.state.accounts[d.RepVault]
	vault.Balance = 5
	env.now = testStart + 300
	_, err := env.engine.Resolve(d.Address)
	if !errors.Is(err, ErrSettlementInvariantViolation) || KindOf(err) != KindSettlement {
		t.Fatalf("expected ErrSettlementInvariantViolation, got %v", err)
	}
	loaded, _ := env.engine.Dispute(d.Address)
	if loaded.Resolved() {
		t.Fatalf("dispute resolved despite invariant violation")
	}
}

// requireUnchanged fails when the rejected call left a trace in state or
// the event buffer.
func (env *testEnv) requireUnchanged(before *mockState, err error) {
	env.t.Helper()
	if !errors.Is(err, ErrProgramAddress) || KindOf(err) != KindIdentity {
		env.t.Fatalf("expected ErrProgramAddress, got %v", err)
	}
	if !reflect.DeepEqual(before, env.state) {
		env.t.Fatalf("state changed on rejected call")
	}
	if n := len(env.buf.Events()); n != 0 {
		env.t.Fatalf("expected no events, got %d", n)
	}
}

func TestDisputeAddressCannotVoteOnItself(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	env.now = testStart + 250
	env.buf.Reset()
	before := env.state.clone()
	_, err := env.engine.CastVote(d.Address, d.Address, SidePartyA)
	env.requireUnchanged(before, err)
	if env.balance(d.Address, env.repMint) != 20 || env.balance(d.Address, env.payMint) != 40 {
		t.Fatalf("vault balances moved")
	}
}

func TestDisputeAddressCannotBind(t *testing.T) {
	env := newTestEnv(t)
	env.fund(alice, 50, 50)
	d := env.createDispute(testConfig())
	if _, err := env.engine.BindParty(d.Address, 0, alice, 10, 20); err != nil {
		t.Fatalf("bind alice: %v", err)
	}
	env.buf.Reset()
	before := env.state.clone()
	_, err := env.engine.BindParty(d.Address, 1, d.Address, 10, 20)
	env.requireUnchanged(before, err)

	other := env.createDispute(testConfig())
	env.buf.Reset()
	before = env.state.clone()
	_, err = env.engine.BindParty(other.Address, 0, d.Address, 10, 20)
	env.requireUnchanged(before, err)
}

func TestForeignDisputeVaultCannotVote(t *testing.T) {
	env := newTestEnv(t)
	d1 := env.boundDispute()
	env.fund(carol, 50, 50)
	env.fund(dave, 50, 50)
	d2 := env.createDispute(testConfig())
	for slot, user := range [][20]byte{carol, dave} {
		if _, err := env.engine.BindParty(d2.Address, slot, user, 10, 20); err != nil {
			t.Fatalf("bind slot %d: %v", slot, err)
		}
	}

	env.now = testStart + 250
	env.buf.Reset()
	before := env.state.clone()
	_, err := env.engine.CastVote(d1.Address, d2.Address, SidePartyA)
	env.requireUnchanged(before, err)

	env.now = testStart + 400
	res, err := env.engine.Resolve(d2.Address)
	if err != nil {
		t.Fatalf("resolve d2: %v", err)
	}
	if res.Dispute.Outcome != OutcomeNoQuorum {
		t.Fatalf("unexpected outcome %s", res.Dispute.Outcome)
	}
	if env.balance(carol, env.repMint) != 50 || env.balance(dave, env.payMint) != 50 {
		t.Fatalf("stakes not refunded in full")
	}
}

func TestCourtAddressCannotParticipate(t *testing.T) {
	env := newTestEnv(t)
	if err := env.ledger.MintTo(env.repMint, testAuthority, env.court.Address, 50); err != nil {
		t.Fatalf("fund court address: %v", err)
	}
	d := env.boundDispute()
	env.buf.Reset()
	before := env.state.clone()

	courtAddr := env.court.Address
	_, err := env.engine.InitializeDispute(InitializeDisputeParams{
		Court:   env.court.Address,
		Config:  testConfig(),
		Parties: [2]*[20]byte{&courtAddr, nil},
	})
	env.requireUnchanged(before, err)

	_, err = env.engine.CreateCourt(CreateCourtParams{Name: "loop", RepMint: env.repMint, PayMint: env.payMint, Protocol: env.court.Address})
	env.requireUnchanged(before, err)
	self, _ := CourtAddress("self")
	_, err = env.engine.CreateCourt(CreateCourtParams{Name: "self", RepMint: env.repMint, PayMint: env.payMint, Protocol: self})
	env.requireUnchanged(before, err)

	env.now = testStart + 250
	_, err = env.engine.CastVote(d.Address, env.court.Address, SidePartyB)
	env.requireUnchanged(before, err)
}

func TestVaultRejectsDirectTransfer(t *testing.T) {
	env := newTestEnv(t)
	d := env.boundDispute()
	before := env.state.clone()
	err := env.ledger.Transfer(env.repMint, d.Address, carol, 10)
	if !errors.Is(err, token.ErrProgramAccount) {
		t.Fatalf("expected ErrProgramAccount, got %v", err)
	}
	if !errors.Is(translateTokenError(err), ErrProgramAddress) {
		t.Fatalf("token error not translated to ErrProgramAddress")
	}
	if !reflect.DeepEqual(before, env.state) {
		t.Fatalf("state changed on rejected transfer")
	}
	env.now = testStart + 400
	if _, err := env.engine.Resolve(d.Address); err != nil {
		t.Fatalf("resolve after rejected transfer: %v", err)
	}
	if env.balance(d.Address, env.repMint) != 0 || env.balance(alice, env.repMint) != 50 {
		t.Fatalf("settlement did not release the vault")
	}
}

func TestErrorMatchesByCode(t *testing.T) {
	recreated := &Error{Kind: KindIdentity, Code: "ProgramAddress", Message: "reworded"}
	if !errors.Is(recreated, ErrProgramAddress) {
		t.Fatalf("expected match on code")
	}
	if errors.Is(recreated, ErrSlotTaken) {
		t.Fatalf("matched a different code")
	}
	wrapped := fmt.Errorf("bind: %w", recreated)
	if !errors.Is(wrapped, ErrProgramAddress) {
		t.Fatalf("expected wrapped match")
	}
}

func TestEngineWithoutState(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.Dispute(newTestAddress(1)); !errors.Is(err, errNilState) {
		t.Fatalf("expected errNilState, got %v", err)
	}
}
