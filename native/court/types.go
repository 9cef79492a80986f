package court

import (
	"fmt"
	"strings"

	"github.com/IlliniBlockchain/agora-courts/crypto"
)

const (
	// MaxCourtNameLength bounds the court name, which doubles as an address
	// seed.
	MaxCourtNameLength = 32
	// MaxEvidenceRefs caps the number of evidence references a single party
	// may attach to a dispute.
	MaxEvidenceRefs = 16
)

// Phase enumerates the time-gated stages of a dispute.
type Phase uint8

const (
	PhaseUnspecified Phase = iota
	PhaseGrace
	PhaseCaseSubmission
	PhaseVoting
	// PhaseAwaitingResolution covers the interval after the voting deadline
	// during which the dispute is eligible for resolution but nobody has
	// resolved it yet.
	PhaseAwaitingResolution
	PhaseResolved
)

// String returns the canonical lowercase representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseGrace:
		return "grace"
	case PhaseCaseSubmission:
		return "case_submission"
	case PhaseVoting:
		return "voting"
	case PhaseAwaitingResolution:
		return "awaiting_resolution"
	case PhaseResolved:
		return "resolved"
	default:
		return "unspecified"
	}
}

// Side identifies one of the two disputants.
type Side uint8

const (
	SideNone Side = iota
	SidePartyA
	SidePartyB
)

// Valid reports whether the side names a party.
func (s Side) Valid() bool { return s == SidePartyA || s == SidePartyB }

// Slot returns the party slot index backing the side.
func (s Side) Slot() int {
	if s == SidePartyB {
		return 1
	}
	return 0
}

func (s Side) String() string {
	switch s {
	case SidePartyA:
		return "party_a"
	case SidePartyB:
		return "party_b"
	default:
		return "none"
	}
}

// ParseSide converts user input into a Side.
func ParseSide(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a", "0", "party_a", "partya":
		return SidePartyA, nil
	case "b", "1", "party_b", "partyb":
		return SidePartyB, nil
	default:
		return SideNone, fmt.Errorf("%w: %q", ErrInvalidSide, value)
	}
}

// Outcome captures the write-once result of a dispute.
type Outcome uint8

const (
	OutcomeUnset Outcome = iota
	OutcomePartyA
	OutcomePartyB
	OutcomeNoQuorum
	OutcomeVoid
)

func (o Outcome) String() string {
	switch o {
	case OutcomePartyA:
		return "party_a"
	case OutcomePartyB:
		return "party_b"
	case OutcomeNoQuorum:
		return "no_quorum"
	case OutcomeVoid:
		return "void"
	default:
		return "unset"
	}
}

// Decisive reports whether the outcome names a winning party.
func (o Outcome) Decisive() bool { return o == OutcomePartyA || o == OutcomePartyB }

// Winner returns the winning side of a decisive outcome.
func (o Outcome) Winner() Side {
	switch o {
	case OutcomePartyA:
		return SidePartyA
	case OutcomePartyB:
		return SidePartyB
	default:
		return SideNone
	}
}

// Court is the registry entry governing a family of disputes.
type Court struct {
	Name            string
	Address         [20]byte
	DisputeCount    uint64
	RepMint         [20]byte
	PayMint         [20]byte
	Protocol        [20]byte
	Authority       [20]byte
	MaxDisputeVotes uint64
	CreatedAt       int64
}

// Clone returns a deep copy of the court.
func (c *Court) Clone() *Court {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *Court) mints() [][20]byte {
	return [][20]byte{c.RepMint, c.PayMint}
}

// NormalizeCourtName trims the name and enforces the length bound.
func NormalizeCourtName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: court name required", ErrInvalidConfig)
	}
	if len(trimmed) > MaxCourtNameLength {
		return "", fmt.Errorf("%w: court name exceeds %d bytes", ErrInvalidConfig, MaxCourtNameLength)
	}
	return trimmed, nil
}

// CourtAddress derives the address of the court registered under name.
func CourtAddress(name string) ([20]byte, error) {
	normalized, err := NormalizeCourtName(name)
	if err != nil {
		return [20]byte{}, err
	}
	return crypto.DeriveAddress([]byte("court"), []byte(normalized)), nil
}

// DisputeAddress derives the address of the dispute created with the given
// counter value.
func DisputeAddress(court [20]byte, index uint64) [20]byte {
	return crypto.DeriveAddress([]byte("dispute"), court[:], crypto.Uint64Seed(index))
}

// RecordAddress derives the voter record address for user within court.
func RecordAddress(court, user [20]byte) [20]byte {
	return crypto.DeriveAddress([]byte("record"), court[:], user[:])
}

// DisputeConfig is the immutable economic policy snapshot of a dispute.
type DisputeConfig struct {
	GraceEndsAt      int64
	InitCasesEndsAt  int64
	EndsAt           int64
	VoterRepRequired uint64
	VoterRepCost     uint64
	RepCost          uint64
	PayCost          uint64
	MinVotes         uint64
	ProtocolPay      uint64
	ProtocolRep      uint64
	AllowLateBinding bool
}

// ValidateSchedule checks the deadline ordering relative to now.
func (c DisputeConfig) ValidateSchedule(now int64) error {
	if c.GraceEndsAt <= now {
		return fmt.Errorf("%w: grace deadline %d not after now %d", ErrInvalidSchedule, c.GraceEndsAt, now)
	}
	if c.InitCasesEndsAt <= c.GraceEndsAt {
		return fmt.Errorf("%w: case deadline %d not after grace deadline %d", ErrInvalidSchedule, c.InitCasesEndsAt, c.GraceEndsAt)
	}
	if c.EndsAt <= c.InitCasesEndsAt {
		return fmt.Errorf("%w: voting deadline %d not after case deadline %d", ErrInvalidSchedule, c.EndsAt, c.InitCasesEndsAt)
	}
	return nil
}

// Validate checks the schedule and the economic parameters.
func (c DisputeConfig) Validate(now int64) error {
	if err := c.ValidateSchedule(now); err != nil {
		return err
	}
	if c.MinVotes < 1 {
		return fmt.Errorf("%w: minVotes must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Party is one of the two disputant slots.
type Party struct {
	User      [20]byte
	Reserved  bool
	Staked    bool
	RepStaked uint64
	PayStaked uint64
	Evidence  []string
}

// Holds reports whether addr occupies the slot, either by reservation or by
// stake.
func (p Party) Holds(addr [20]byte) bool {
	return (p.Reserved || p.Staked) && p.User == addr
}

func (p Party) clone() Party {
	clone := p
	clone.Evidence = append([]string(nil), p.Evidence...)
	return clone
}

// Tally accumulates reputation-weighted ballots.
type Tally struct {
	WeightA   uint64
	WeightB   uint64
	Votes     uint64
	CostTotal uint64
}

// Dispute is the central record of one adjudicated conflict.
type Dispute struct {
	Address                [20]byte
	Court                  [20]byte
	Index                  uint64
	Config                 DisputeConfig
	Parties                [2]Party
	Phase                  Phase
	Tally                  Tally
	Outcome                Outcome
	RepVault               [20]byte
	PayVault               [20]byte
	EscrowedRep            uint64
	EscrowedPay            uint64
	SubmittedCases         uint64
	ProtocolRewardCredited uint64
	Payer                  [20]byte
	CreatedAt              int64
	ResolvedAt             int64
}

// Clone returns a deep copy of the dispute.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	for i := range d.Parties {
		clone.Parties[i] = d.Parties[i].clone()
	}
	return &clone
}

// Resolved reports whether the dispute reached its terminal state.
func (d *Dispute) Resolved() bool {
	return d != nil && d.Outcome != OutcomeUnset
}

// PartyIndex returns the slot held by addr, or -1.
func (d *Dispute) PartyIndex(addr [20]byte) int {
	if d == nil {
		return -1
	}
	for i := range d.Parties {
		if d.Parties[i].Holds(addr) {
			return i
		}
	}
	return -1
}

// Ballot is a single voter's snapshot-weighted vote.
type Ballot struct {
	Dispute [20]byte
	Voter   [20]byte
	Side    Side
	Weight  uint64
	Cost    uint64
	CastAt  int64
}

// Clone returns a copy of the ballot.
func (b *Ballot) Clone() *Ballot {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// VoterRecord tracks a user's exposure within a court.
type VoterRecord struct {
	Court          [20]byte
	User           [20]byte
	StakedRep      uint64
	StakedPay      uint64
	ActiveDisputes uint64
	Participations uint64
}

// Clone returns a copy of the record.
func (r *VoterRecord) Clone() *VoterRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
