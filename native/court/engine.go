package court

import (
	"fmt"
	"math"
	"time"

	"github.com/IlliniBlockchain/agora-courts/core/events"
	"github.com/IlliniBlockchain/agora-courts/core/types"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

type engineState interface {
	CourtGet(addr [20]byte) (*Court, bool, error)
	CourtPut(c *Court) error
	DisputeGet(addr [20]byte) (*Dispute, bool, error)
	DisputePut(d *Dispute) error
	BallotGet(dispute, voter [20]byte) (*Ballot, bool, error)
	BallotPut(b *Ballot) error
	BallotList(dispute [20]byte) ([]*Ballot, error)
	VoterRecordGet(court, user [20]byte) (*VoterRecord, bool, error)
	VoterRecordPut(r *VoterRecord) error
}

type tokenLedger interface {
	Mint(addr [20]byte) (*token.Mint, error)
	Account(owner, mint [20]byte) (*token.Account, bool, error)
	Balance(owner, mint [20]byte) (uint64, error)
	CreateProgramAccount(owner, mint [20]byte) (*token.Account, error)
	MintTo(mint, authority, owner [20]byte, amount uint64) error
	Transfer(mint, from, to [20]byte, amount uint64) error
	Release(mint, program, to [20]byte, amount uint64) error
}

// Engine implements the dispute lifecycle on top of a narrow state interface
// and the token ledger. Each public action validates every precondition
// before it mutates anything; the host wraps the action in a journal so a
// failure part way through token movements leaves no trace.
type Engine struct {
	state   engineState
	tokens  tokenLedger
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a court engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token primitive used for vaults and stakes.
func (e *Engine) SetLedger(ledger tokenLedger) { e.tokens = ledger }

// SetNowFunc overrides the trusted clock. The host supplies one reading per
// action.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(courtEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.tokens == nil {
		return errNilState
	}
	return nil
}

// CreateCourtParams describes a new court registry entry.
type CreateCourtParams struct {
	Name            string
	RepMint         [20]byte
	PayMint         [20]byte
	Protocol        [20]byte
	Authority       [20]byte
	MaxDisputeVotes uint64
}

// CreateCourt registers a court under its name-derived address.
func (e *Engine) CreateCourt(params CreateCourtParams) (*Court, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	name, err := NormalizeCourtName(params.Name)
	if err != nil {
		return nil, err
	}
	if params.Protocol == ([20]byte{}) {
		return nil, fmt.Errorf("%w: protocol beneficiary required", ErrInvalidConfig)
	}
	if params.RepMint == params.PayMint {
		return nil, fmt.Errorf("%w: reputation and payment mints must differ", ErrInvalidConfig)
	}
	for _, mint := range [][20]byte{params.RepMint, params.PayMint} {
		if _, err := e.tokens.Mint(mint); err != nil {
			return nil, translateTokenError(err)
		}
	}
	courtAddr, err := CourtAddress(name)
	if err != nil {
		return nil, err
	}
	if params.Protocol == courtAddr {
		return nil, fmt.Errorf("%w: protocol beneficiary is the court address", ErrProgramAddress)
	}
	if err := e.requireActor(params.Protocol, [][20]byte{params.RepMint, params.PayMint}); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.CourtGet(courtAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: court %q", ErrAlreadyExists, name)
	}
	court := &Court{
		Name:            name,
		Address:         courtAddr,
		RepMint:         params.RepMint,
		PayMint:         params.PayMint,
		Protocol:        params.Protocol,
		Authority:       params.Authority,
		MaxDisputeVotes: params.MaxDisputeVotes,
		CreatedAt:       e.now(),
	}
	if err := e.state.CourtPut(court); err != nil {
		return nil, err
	}
	e.emit(NewCourtCreatedEvent(court))
	return court.Clone(), nil
}

// InitializeDisputeParams describes a dispute creation request. Parties may
// reserve either slot for a specific identity; a nil entry leaves the slot
// open to the first staker.
type InitializeDisputeParams struct {
	Court   [20]byte
	Config  DisputeConfig
	Parties [2]*[20]byte
	Payer   [20]byte
	// MintAuthority, when set, signs the protocol reward mint.
	MintAuthority *[20]byte
}

// InitializeDispute creates a dispute at the address derived from the court's
// current counter, opens both vaults and advances the counter by one.
func (e *Engine) InitializeDispute(params InitializeDisputeParams) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	court, err := e.loadCourt(params.Court)
	if err != nil {
		return nil, err
	}
	cfg := params.Config
	if err := cfg.Validate(now); err != nil {
		return nil, err
	}
	var parties [2]Party
	for i, reserved := range params.Parties {
		if reserved == nil {
			continue
		}
		if *reserved == ([20]byte{}) {
			return nil, fmt.Errorf("%w: reserved party %d is the zero address", ErrInvalidConfig, i)
		}
		if *reserved == court.Protocol {
			return nil, fmt.Errorf("%w: protocol beneficiary cannot be a party", ErrInvalidConfig)
		}
		if err := e.requireActor(*reserved, court.mints()); err != nil {
			return nil, err
		}
		parties[i] = Party{User: *reserved, Reserved: true}
	}
	if parties[0].Reserved && parties[1].Reserved && parties[0].User == parties[1].User {
		return nil, fmt.Errorf("%w: both slots reserved for the same identity", ErrInvalidConfig)
	}
	if court.DisputeCount == math.MaxUint64 {
		return nil, fmt.Errorf("%w: dispute counter exhausted", ErrInvalidConfig)
	}

	index := court.DisputeCount
	disputeAddr := DisputeAddress(court.Address, index)
	if court.Protocol == disputeAddr {
		return nil, fmt.Errorf("%w: protocol beneficiary is the dispute address", ErrProgramAddress)
	}
	for i, reserved := range params.Parties {
		if reserved != nil && *reserved == disputeAddr {
			return nil, fmt.Errorf("%w: reserved party %d is the dispute address", ErrProgramAddress, i)
		}
	}
	if _, ok, err := e.state.DisputeGet(disputeAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: dispute %d already occupied", ErrAddressCollision, index)
	}
	for _, mint := range [][20]byte{court.RepMint, court.PayMint} {
		if _, ok, err := e.tokens.Account(disputeAddr, mint); err != nil {
			return nil, err
		} else if ok {
			return nil, fmt.Errorf("%w: vault already occupied", ErrAddressCollision)
		}
	}
	mintReward := cfg.ProtocolRep > 0 && params.MintAuthority != nil
	if mintReward {
		repMint, err := e.tokens.Mint(court.RepMint)
		if err != nil {
			return nil, translateTokenError(err)
		}
		if repMint.Authority != *params.MintAuthority {
			return nil, fmt.Errorf("%w: %w", ErrMintFailed, token.ErrUnauthorizedMint)
		}
	}

	repVault, err := e.tokens.CreateProgramAccount(disputeAddr, court.RepMint)
	if err != nil {
		return nil, translateTokenError(err)
	}
	payVault, err := e.tokens.CreateProgramAccount(disputeAddr, court.PayMint)
	if err != nil {
		return nil, translateTokenError(err)
	}
	dispute := &Dispute{
		Address:   disputeAddr,
		Court:     court.Address,
		Index:     index,
		Config:    cfg,
		Parties:   parties,
		Phase:     PhaseGrace,
		RepVault:  repVault.Address,
		PayVault:  payVault.Address,
		Payer:     params.Payer,
		CreatedAt: now,
	}
	if mintReward {
		if err := e.tokens.MintTo(court.RepMint, *params.MintAuthority, court.Protocol, cfg.ProtocolRep); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMintFailed, err)
		}
		dispute.ProtocolRewardCredited = cfg.ProtocolRep
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	court.DisputeCount++
	if err := e.state.CourtPut(court); err != nil {
		return nil, err
	}
	e.emit(NewDisputeCreatedEvent(dispute))
	if dispute.ProtocolRewardCredited > 0 {
		e.emit(newProtocolRewardedEvent(dispute, court.Protocol))
	}
	return dispute.Clone(), nil
}

// BindParty stakes user into the given slot. The offered stakes must cover the
// configured costs; exactly the configured costs are transferred.
func (e *Engine) BindParty(disputeAddr [20]byte, slot int, user [20]byte, repStake, payStake uint64) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	dispute, court, err := e.loadDispute(disputeAddr)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot > 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	phase, err := requirePhase(dispute, now, bindingPhases(dispute.Config)...)
	if err != nil {
		return nil, err
	}
	if user == ([20]byte{}) {
		return nil, fmt.Errorf("%w: party identity required", ErrInvalidConfig)
	}
	party := dispute.Parties[slot]
	if party.Staked {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotTaken, slot)
	}
	if party.Reserved && party.User != user {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotReserved, slot)
	}
	if dispute.Parties[1-slot].Holds(user) {
		return nil, ErrAlreadyParty
	}
	if user == court.Protocol {
		return nil, fmt.Errorf("%w: protocol beneficiary cannot be a party", ErrInvalidConfig)
	}
	if err := e.requireActor(user, court.mints()); err != nil {
		return nil, err
	}
	cfg := dispute.Config
	if repStake < cfg.RepCost {
		return nil, fmt.Errorf("%w: reputation stake %d below cost %d", ErrInsufficientFunds, repStake, cfg.RepCost)
	}
	if payStake < cfg.PayCost {
		return nil, fmt.Errorf("%w: payment stake %d below cost %d", ErrInsufficientFunds, payStake, cfg.PayCost)
	}
	if err := e.requireBalance(user, court.RepMint, cfg.RepCost); err != nil {
		return nil, err
	}
	if err := e.requireBalance(user, court.PayMint, cfg.PayCost); err != nil {
		return nil, err
	}
	if math.MaxUint64-dispute.EscrowedRep < cfg.RepCost || math.MaxUint64-dispute.EscrowedPay < cfg.PayCost {
		return nil, fmt.Errorf("%w: vault balance overflow", ErrInsufficientFunds)
	}
	record, err := e.loadRecord(court.Address, user)
	if err != nil {
		return nil, err
	}

	if err := e.tokens.Transfer(court.RepMint, user, disputeAddr, cfg.RepCost); err != nil {
		return nil, translateTokenError(err)
	}
	if err := e.tokens.Transfer(court.PayMint, user, disputeAddr, cfg.PayCost); err != nil {
		return nil, translateTokenError(err)
	}
	party.User = user
	party.Staked = true
	party.RepStaked = cfg.RepCost
	party.PayStaked = cfg.PayCost
	dispute.Parties[slot] = party
	dispute.EscrowedRep += cfg.RepCost
	dispute.EscrowedPay += cfg.PayCost
	dispute.Phase = phase

	record.StakedRep = saturatingAdd(record.StakedRep, cfg.RepCost)
	record.StakedPay = saturatingAdd(record.StakedPay, cfg.PayCost)
	record.ActiveDisputes++
	record.Participations++

	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	if err := e.state.VoterRecordPut(record); err != nil {
		return nil, err
	}
	e.emit(newPartyBoundEvent(dispute, slot))
	return dispute.Clone(), nil
}

// SubmitEvidence attaches a content reference to the caller's case.
func (e *Engine) SubmitEvidence(disputeAddr, party [20]byte, ref string) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	dispute, _, err := e.loadDispute(disputeAddr)
	if err != nil {
		return nil, err
	}
	phase, err := requirePhase(dispute, now, PhaseCaseSubmission)
	if err != nil {
		return nil, err
	}
	slot := -1
	for i := range dispute.Parties {
		if dispute.Parties[i].Staked && dispute.Parties[i].User == party {
			slot = i
		}
	}
	if slot < 0 {
		return nil, ErrNotParty
	}
	normalized, err := NormalizeEvidenceRef(ref)
	if err != nil {
		return nil, err
	}
	current := dispute.Parties[slot].Evidence
	for _, existing := range current {
		if existing == normalized {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEvidence, normalized)
		}
	}
	if len(current) >= MaxEvidenceRefs {
		return nil, fmt.Errorf("%w: %d references", ErrEvidenceLimit, MaxEvidenceRefs)
	}
	if len(current) == 0 {
		dispute.SubmittedCases++
	}
	dispute.Parties[slot].Evidence = append(current, normalized)
	dispute.Phase = phase
	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	e.emit(newEvidenceSubmittedEvent(dispute, slot, normalized))
	return dispute.Clone(), nil
}

// CastVote records voter's ballot. The weight is the voter's reputation
// balance before the ballot cost is paid.
func (e *Engine) CastVote(disputeAddr, voter [20]byte, side Side) (*Ballot, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	dispute, court, err := e.loadDispute(disputeAddr)
	if err != nil {
		return nil, err
	}
	phase, err := requirePhase(dispute, now, PhaseVoting)
	if err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	if voter == ([20]byte{}) {
		return nil, fmt.Errorf("%w: voter identity required", ErrInvalidConfig)
	}
	if dispute.PartyIndex(voter) >= 0 {
		return nil, ErrPartyCannotVote
	}
	if err := e.requireActor(voter, court.mints()); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.BallotGet(disputeAddr, voter); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDuplicateVote
	}
	if court.MaxDisputeVotes > 0 && dispute.Tally.Votes >= court.MaxDisputeVotes {
		return nil, fmt.Errorf("%w: %d ballots", ErrVoteLimitReached, court.MaxDisputeVotes)
	}
	cfg := dispute.Config
	weight, err := e.tokens.Balance(voter, court.RepMint)
	if err != nil {
		return nil, err
	}
	if weight < cfg.VoterRepRequired {
		return nil, fmt.Errorf("%w: reputation %d below required %d", ErrInsufficientFunds, weight, cfg.VoterRepRequired)
	}
	if weight < cfg.VoterRepCost {
		return nil, fmt.Errorf("%w: reputation %d below vote cost %d", ErrInsufficientFunds, weight, cfg.VoterRepCost)
	}
	if math.MaxUint64-dispute.EscrowedRep < cfg.VoterRepCost {
		return nil, fmt.Errorf("%w: vault balance overflow", ErrInsufficientFunds)
	}
	tally := dispute.Tally
	if err := tally.Add(side, weight, cfg.VoterRepCost); err != nil {
		return nil, err
	}
	record, err := e.loadRecord(court.Address, voter)
	if err != nil {
		return nil, err
	}

	if err := e.tokens.Transfer(court.RepMint, voter, disputeAddr, cfg.VoterRepCost); err != nil {
		return nil, translateTokenError(err)
	}
	ballot := &Ballot{
		Dispute: disputeAddr,
		Voter:   voter,
		Side:    side,
		Weight:  weight,
		Cost:    cfg.VoterRepCost,
		CastAt:  now,
	}
	dispute.Tally = tally
	dispute.EscrowedRep += cfg.VoterRepCost
	dispute.Phase = phase
	record.StakedRep = saturatingAdd(record.StakedRep, cfg.VoterRepCost)
	record.ActiveDisputes++
	record.Participations++

	if err := e.state.BallotPut(ballot); err != nil {
		return nil, err
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	if err := e.state.VoterRecordPut(record); err != nil {
		return nil, err
	}
	e.emit(newVoteCastEvent(ballot))
	return ballot.Clone(), nil
}

// Resolution is the result of settling a dispute.
type Resolution struct {
	Dispute *Dispute
	Plan    *Plan
}

// Resolve computes the outcome of a dispute whose voting window has closed and
// executes the settlement. A second call fails with ErrWrongPhase.
func (e *Engine) Resolve(disputeAddr [20]byte) (*Resolution, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.now()
	dispute, court, err := e.loadDispute(disputeAddr)
	if err != nil {
		return nil, err
	}
	if _, err := requirePhase(dispute, now, PhaseAwaitingResolution); err != nil {
		return nil, err
	}
	ballots, err := e.state.BallotList(disputeAddr)
	if err != nil {
		return nil, err
	}
	plan, err := PlanSettlement(dispute, court, ballots)
	if err != nil {
		return nil, err
	}
	repVault, err := e.tokens.Balance(disputeAddr, court.RepMint)
	if err != nil {
		return nil, err
	}
	payVault, err := e.tokens.Balance(disputeAddr, court.PayMint)
	if err != nil {
		return nil, err
	}
	if err := ValidatePlan(plan, dispute, repVault, payVault); err != nil {
		return nil, err
	}
	records, err := e.releaseRecords(dispute, court, ballots)
	if err != nil {
		return nil, err
	}

	for _, payout := range plan.Payouts {
		mint := court.RepMint
		if payout.Asset == AssetPay {
			mint = court.PayMint
		}
		if err := e.tokens.Release(mint, disputeAddr, payout.Recipient, payout.Amount); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSettlementInvariantViolation, err)
		}
		if payout.Asset == AssetPay {
			dispute.EscrowedPay -= payout.Amount
		} else {
			dispute.EscrowedRep -= payout.Amount
		}
	}
	dispute.Outcome = plan.Outcome
	dispute.Phase = PhaseResolved
	dispute.ResolvedAt = now
	if err := e.state.DisputePut(dispute); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := e.state.VoterRecordPut(record); err != nil {
			return nil, err
		}
	}
	for _, payout := range plan.Payouts {
		e.emit(newPayoutEvent(dispute, payout))
	}
	e.emit(newDisputeResolvedEvent(dispute))
	return &Resolution{Dispute: dispute.Clone(), Plan: plan}, nil
}

// releaseRecords returns the voter records of every participant with the
// dispute's exposure removed, in deterministic participant order.
func (e *Engine) releaseRecords(d *Dispute, court *Court, ballots []*Ballot) ([]*VoterRecord, error) {
	order := make([][20]byte, 0, len(ballots)+2)
	byUser := make(map[[20]byte]*VoterRecord)
	load := func(user [20]byte) (*VoterRecord, error) {
		if rec, ok := byUser[user]; ok {
			return rec, nil
		}
		rec, err := e.loadRecord(court.Address, user)
		if err != nil {
			return nil, err
		}
		byUser[user] = rec
		order = append(order, user)
		return rec, nil
	}
	for _, party := range d.Parties {
		if !party.Staked {
			continue
		}
		rec, err := load(party.User)
		if err != nil {
			return nil, err
		}
		rec.StakedRep = saturatingSub(rec.StakedRep, party.RepStaked)
		rec.StakedPay = saturatingSub(rec.StakedPay, party.PayStaked)
		rec.ActiveDisputes = saturatingSub(rec.ActiveDisputes, 1)
	}
	for _, ballot := range ballots {
		rec, err := load(ballot.Voter)
		if err != nil {
			return nil, err
		}
		rec.StakedRep = saturatingSub(rec.StakedRep, ballot.Cost)
		rec.ActiveDisputes = saturatingSub(rec.ActiveDisputes, 1)
	}
	out := make([]*VoterRecord, 0, len(order))
	for _, user := range order {
		out = append(out, byUser[user])
	}
	return out, nil
}

// requireActor rejects identities the program owns: court and dispute
// addresses and owners of vault accounts for the given mints.
func (e *Engine) requireActor(user [20]byte, mints [][20]byte) error {
	if _, ok, err := e.state.CourtGet(user); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: court address", ErrProgramAddress)
	}
	if _, ok, err := e.state.DisputeGet(user); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: dispute address", ErrProgramAddress)
	}
	for _, mint := range mints {
		acc, ok, err := e.tokens.Account(user, mint)
		if err != nil {
			return err
		}
		if ok && acc.Program {
			return fmt.Errorf("%w: owner of a vault", ErrProgramAddress)
		}
	}
	return nil
}

func (e *Engine) requireBalance(owner, mint [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := e.tokens.Balance(owner, mint)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, balance)
	}
	return nil
}

func (e *Engine) loadCourt(addr [20]byte) (*Court, error) {
	court, ok, err := e.state.CourtGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: court", ErrNotFound)
	}
	return court, nil
}

func (e *Engine) loadDispute(addr [20]byte) (*Dispute, *Court, error) {
	dispute, ok, err := e.state.DisputeGet(addr)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: dispute", ErrNotFound)
	}
	court, err := e.loadCourt(dispute.Court)
	if err != nil {
		return nil, nil, err
	}
	return dispute, court, nil
}

func (e *Engine) loadRecord(court, user [20]byte) (*VoterRecord, error) {
	record, ok, err := e.state.VoterRecordGet(court, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &VoterRecord{Court: court, User: user}, nil
	}
	return record, nil
}

// Court returns the court registered under name.
func (e *Engine) Court(name string) (*Court, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	courtAddr, err := CourtAddress(name)
	if err != nil {
		return nil, err
	}
	return e.loadCourt(courtAddr)
}

// CourtAt returns the court stored at addr.
func (e *Engine) CourtAt(addr [20]byte) (*Court, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadCourt(addr)
}

// NextDisputeIndex returns the counter value the next dispute will use.
func (e *Engine) NextDisputeIndex(court [20]byte) (uint64, error) {
	c, err := e.CourtAt(court)
	if err != nil {
		return 0, err
	}
	return c.DisputeCount, nil
}

// Dispute returns the dispute stored at addr.
func (e *Engine) Dispute(addr [20]byte) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	dispute, _, err := e.loadDispute(addr)
	return dispute, err
}

// DisputeAt returns the dispute created with the given counter value.
func (e *Engine) DisputeAt(court [20]byte, index uint64) (*Dispute, error) {
	return e.Dispute(DisputeAddress(court, index))
}

// Phase returns the phase of the dispute at the current clock reading.
func (e *Engine) Phase(addr [20]byte) (Phase, error) {
	dispute, err := e.Dispute(addr)
	if err != nil {
		return PhaseUnspecified, err
	}
	return CurrentPhase(dispute, e.now()), nil
}

// Ballots returns the ballots cast on a dispute in cast order.
func (e *Engine) Ballots(addr [20]byte) ([]*Ballot, error) {
	if _, err := e.Dispute(addr); err != nil {
		return nil, err
	}
	return e.state.BallotList(addr)
}

// Record returns the voter record of user in court. A user that never
// participated has an empty record.
func (e *Engine) Record(court, user [20]byte) (*VoterRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadRecord(court, user)
}

func saturatingAdd(a, b uint64) uint64 {
	if math.MaxUint64-a < b {
		return math.MaxUint64
	}
	return a + b
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
