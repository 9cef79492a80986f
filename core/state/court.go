package state

import (
	"fmt"

	"github.com/IlliniBlockchain/agora-courts/native/court"
)

// RLP has no signed integers, so timestamps are stored as their two's
// complement bit pattern.

type storedCourt struct {
	Name            string
	Address         [20]byte
	DisputeCount    uint64
	RepMint         [20]byte
	PayMint         [20]byte
	Protocol        [20]byte
	Authority       [20]byte
	MaxDisputeVotes uint64
	CreatedAt       uint64
}

func newStoredCourt(c *court.Court) *storedCourt {
	return &storedCourt{
		Name:            c.Name,
		Address:         c.Address,
		DisputeCount:    c.DisputeCount,
		RepMint:         c.RepMint,
		PayMint:         c.PayMint,
		Protocol:        c.Protocol,
		Authority:       c.Authority,
		MaxDisputeVotes: c.MaxDisputeVotes,
		CreatedAt:       uint64(c.CreatedAt),
	}
}

func (s *storedCourt) toCourt() *court.Court {
	return &court.Court{
		Name:            s.Name,
		Address:         s.Address,
		DisputeCount:    s.DisputeCount,
		RepMint:         s.RepMint,
		PayMint:         s.PayMint,
		Protocol:        s.Protocol,
		Authority:       s.Authority,
		MaxDisputeVotes: s.MaxDisputeVotes,
		CreatedAt:       int64(s.CreatedAt),
	}
}

type storedParty struct {
	User      [20]byte
	Reserved  bool
	Staked    bool
	RepStaked uint64
	PayStaked uint64
	Evidence  []string
}

type storedDispute struct {
	Address                [20]byte
	Court                  [20]byte
	Index                  uint64
	GraceEndsAt            uint64
	InitCasesEndsAt        uint64
	EndsAt                 uint64
	VoterRepRequired       uint64
	VoterRepCost           uint64
	RepCost                uint64
	PayCost                uint64
	MinVotes               uint64
	ProtocolPay            uint64
	ProtocolRep            uint64
	AllowLateBinding       bool
	Parties                []storedParty
	Phase                  uint8
	WeightA                uint64
	WeightB                uint64
	Votes                  uint64
	CostTotal              uint64
	Outcome                uint8
	RepVault               [20]byte
	PayVault               [20]byte
	EscrowedRep            uint64
	EscrowedPay            uint64
	SubmittedCases         uint64
	ProtocolRewardCredited uint64
	Payer                  [20]byte
	CreatedAt              uint64
	ResolvedAt             uint64
}

func newStoredDispute(d *court.Dispute) *storedDispute {
	s := &storedDispute{
		Address:                d.Address,
		Court:                  d.Court,
		Index:                  d.Index,
		GraceEndsAt:            uint64(d.Config.GraceEndsAt),
		InitCasesEndsAt:        uint64(d.Config.InitCasesEndsAt),
		EndsAt:                 uint64(d.Config.EndsAt),
		VoterRepRequired:       d.Config.VoterRepRequired,
		VoterRepCost:           d.Config.VoterRepCost,
		RepCost:                d.Config.RepCost,
		PayCost:                d.Config.PayCost,
		MinVotes:               d.Config.MinVotes,
		ProtocolPay:            d.Config.ProtocolPay,
		ProtocolRep:            d.Config.ProtocolRep,
		AllowLateBinding:       d.Config.AllowLateBinding,
		Parties:                make([]storedParty, len(d.Parties)),
		Phase:                  uint8(d.Phase),
		WeightA:                d.Tally.WeightA,
		WeightB:                d.Tally.WeightB,
		Votes:                  d.Tally.Votes,
		CostTotal:              d.Tally.CostTotal,
		Outcome:                uint8(d.Outcome),
		RepVault:               d.RepVault,
		PayVault:               d.PayVault,
		EscrowedRep:            d.EscrowedRep,
		EscrowedPay:            d.EscrowedPay,
		SubmittedCases:         d.SubmittedCases,
		ProtocolRewardCredited: d.ProtocolRewardCredited,
		Payer:                  d.Payer,
		CreatedAt:              uint64(d.CreatedAt),
		ResolvedAt:             uint64(d.ResolvedAt),
	}
	for i, p := range d.Parties {
		s.Parties[i] = storedParty{
			User:      p.User,
			Reserved:  p.Reserved,
			Staked:    p.Staked,
			RepStaked: p.RepStaked,
			PayStaked: p.PayStaked,
			Evidence:  append([]string(nil), p.Evidence...),
		}
	}
	return s
}

func (s *storedDispute) toDispute() (*court.Dispute, error) {
	if len(s.Parties) != 2 {
		return nil, fmt.Errorf("state: dispute has %d party slots", len(s.Parties))
	}
	d := &court.Dispute{
		Address: s.Address,
		Court:   s.Court,
		Index:   s.Index,
		Config: court.DisputeConfig{
			GraceEndsAt:      int64(s.GraceEndsAt),
			InitCasesEndsAt:  int64(s.InitCasesEndsAt),
			EndsAt:           int64(s.EndsAt),
			VoterRepRequired: s.VoterRepRequired,
			VoterRepCost:     s.VoterRepCost,
			RepCost:          s.RepCost,
			PayCost:          s.PayCost,
			MinVotes:         s.MinVotes,
			ProtocolPay:      s.ProtocolPay,
			ProtocolRep:      s.ProtocolRep,
			AllowLateBinding: s.AllowLateBinding,
		},
		Phase: court.Phase(s.Phase),
		Tally: court.Tally{
			WeightA:   s.WeightA,
			WeightB:   s.WeightB,
			Votes:     s.Votes,
			CostTotal: s.CostTotal,
		},
		Outcome:                court.Outcome(s.Outcome),
		RepVault:               s.RepVault,
		PayVault:               s.PayVault,
		EscrowedRep:            s.EscrowedRep,
		EscrowedPay:            s.EscrowedPay,
		SubmittedCases:         s.SubmittedCases,
		ProtocolRewardCredited: s.ProtocolRewardCredited,
		Payer:                  s.Payer,
		CreatedAt:              int64(s.CreatedAt),
		ResolvedAt:             int64(s.ResolvedAt),
	}
	for i, p := range s.Parties {
		var evidence []string
		if len(p.Evidence) > 0 {
			evidence = append(evidence, p.Evidence...)
		}
		d.Parties[i] = court.Party{
			User:      p.User,
			Reserved:  p.Reserved,
			Staked:    p.Staked,
			RepStaked: p.RepStaked,
			PayStaked: p.PayStaked,
			Evidence:  evidence,
		}
	}
	return d, nil
}

type storedBallot struct {
	Dispute [20]byte
	Voter   [20]byte
	Side    uint8
	Weight  uint64
	Cost    uint64
	CastAt  uint64
}

// CourtGet loads the court stored at addr.
func (m *Manager) CourtGet(addr [20]byte) (*court.Court, bool, error) {
	var stored storedCourt
	ok, err := m.KVGet(prefixedKey(courtPrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toCourt(), true, nil
}

// CourtPut persists a court.
func (m *Manager) CourtPut(c *court.Court) error {
	if c == nil {
		return fmt.Errorf("state: nil court")
	}
	return m.KVPut(prefixedKey(courtPrefix, c.Address[:]), newStoredCourt(c))
}

// DisputeGet loads the dispute stored at addr.
func (m *Manager) DisputeGet(addr [20]byte) (*court.Dispute, bool, error) {
	var stored storedDispute
	ok, err := m.KVGet(prefixedKey(disputePrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	d, err := stored.toDispute()
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// DisputePut persists a dispute.
func (m *Manager) DisputePut(d *court.Dispute) error {
	if d == nil {
		return fmt.Errorf("state: nil dispute")
	}
	return m.KVPut(prefixedKey(disputePrefix, d.Address[:]), newStoredDispute(d))
}

// BallotGet loads the ballot cast by voter on dispute.
func (m *Manager) BallotGet(dispute, voter [20]byte) (*court.Ballot, bool, error) {
	var stored storedBallot
	ok, err := m.KVGet(prefixedKey(ballotPrefix, dispute[:], voter[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &court.Ballot{
		Dispute: stored.Dispute,
		Voter:   stored.Voter,
		Side:    court.Side(stored.Side),
		Weight:  stored.Weight,
		Cost:    stored.Cost,
		CastAt:  int64(stored.CastAt),
	}, true, nil
}

// BallotPut persists a ballot and records the voter in the dispute's ballot
// index, preserving cast order.
func (m *Manager) BallotPut(b *court.Ballot) error {
	if b == nil {
		return fmt.Errorf("state: nil ballot")
	}
	stored := &storedBallot{
		Dispute: b.Dispute,
		Voter:   b.Voter,
		Side:    uint8(b.Side),
		Weight:  b.Weight,
		Cost:    b.Cost,
		CastAt:  uint64(b.CastAt),
	}
	if err := m.KVPut(prefixedKey(ballotPrefix, b.Dispute[:], b.Voter[:]), stored); err != nil {
		return err
	}
	return m.KVAppend(prefixedKey(ballotIndexPrefix, b.Dispute[:]), b.Voter[:])
}

// BallotList returns every ballot cast on dispute in cast order.
func (m *Manager) BallotList(dispute [20]byte) ([]*court.Ballot, error) {
	var voters [][]byte
	if err := m.KVGetList(prefixedKey(ballotIndexPrefix, dispute[:]), &voters); err != nil {
		return nil, err
	}
	out := make([]*court.Ballot, 0, len(voters))
	for _, raw := range voters {
		if len(raw) != 20 {
			return nil, fmt.Errorf("state: malformed ballot index entry")
		}
		var voter [20]byte
		copy(voter[:], raw)
		ballot, ok, err := m.BallotGet(dispute, voter)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: ballot index references missing ballot")
		}
		out = append(out, ballot)
	}
	return out, nil
}

// VoterRecordGet loads the record of user within court.
func (m *Manager) VoterRecordGet(courtAddr, user [20]byte) (*court.VoterRecord, bool, error) {
	key := court.RecordAddress(courtAddr, user)
	var record court.VoterRecord
	ok, err := m.KVGet(prefixedKey(recordPrefix, key[:]), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// VoterRecordPut persists a voter record.
func (m *Manager) VoterRecordPut(r *court.VoterRecord) error {
	if r == nil {
		return fmt.Errorf("state: nil voter record")
	}
	key := court.RecordAddress(r.Court, r.User)
	return m.KVPut(prefixedKey(recordPrefix, key[:]), r)
}
