package rpc

import (
	"fmt"
	"strings"

	"github.com/IlliniBlockchain/agora-courts/core"
	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// Amounts travel as decimal strings so clients without 64-bit integers keep
// full precision.

type RegisterMintRequest struct {
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Authority string `json:"authority"`
}

type MintToRequest struct {
	Symbol    string `json:"symbol"`
	Authority string `json:"authority"`
	Owner     string `json:"owner"`
	Amount    uint64 `json:"amount,string"`
}

type TransferRequest struct {
	Symbol string `json:"symbol"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount,string"`
}

type CreateCourtRequest struct {
	Name            string `json:"name"`
	RepMint         string `json:"repMint"`
	PayMint         string `json:"payMint"`
	Protocol        string `json:"protocol"`
	Authority       string `json:"authority,omitempty"`
	MaxDisputeVotes uint64 `json:"maxDisputeVotes,omitempty"`
}

// DisputeConfigBody mirrors court.DisputeConfig on the wire.
type DisputeConfigBody struct {
	GraceEndsAt      int64  `json:"graceEndsAt"`
	InitCasesEndsAt  int64  `json:"initCasesEndsAt"`
	EndsAt           int64  `json:"endsAt"`
	VoterRepRequired uint64 `json:"voterRepRequired,string"`
	VoterRepCost     uint64 `json:"voterRepCost,string"`
	RepCost          uint64 `json:"repCost,string"`
	PayCost          uint64 `json:"payCost,string"`
	MinVotes         uint64 `json:"minVotes"`
	ProtocolPay      uint64 `json:"protocolPay,string"`
	ProtocolRep      uint64 `json:"protocolRep,string"`
	AllowLateBinding bool   `json:"allowLateBinding,omitempty"`
}

func (b DisputeConfigBody) config() court.DisputeConfig {
	return court.DisputeConfig{
		GraceEndsAt:      b.GraceEndsAt,
		InitCasesEndsAt:  b.InitCasesEndsAt,
		EndsAt:           b.EndsAt,
		VoterRepRequired: b.VoterRepRequired,
		VoterRepCost:     b.VoterRepCost,
		RepCost:          b.RepCost,
		PayCost:          b.PayCost,
		MinVotes:         b.MinVotes,
		ProtocolPay:      b.ProtocolPay,
		ProtocolRep:      b.ProtocolRep,
		AllowLateBinding: b.AllowLateBinding,
	}
}

func configBody(c court.DisputeConfig) DisputeConfigBody {
	return DisputeConfigBody{
		GraceEndsAt:      c.GraceEndsAt,
		InitCasesEndsAt:  c.InitCasesEndsAt,
		EndsAt:           c.EndsAt,
		VoterRepRequired: c.VoterRepRequired,
		VoterRepCost:     c.VoterRepCost,
		RepCost:          c.RepCost,
		PayCost:          c.PayCost,
		MinVotes:         c.MinVotes,
		ProtocolPay:      c.ProtocolPay,
		ProtocolRep:      c.ProtocolRep,
		AllowLateBinding: c.AllowLateBinding,
	}
}

type InitializeDisputeRequest struct {
	Court         string            `json:"court"`
	Config        DisputeConfigBody `json:"config"`
	PartyA        string            `json:"partyA,omitempty"`
	PartyB        string            `json:"partyB,omitempty"`
	Payer         string            `json:"payer"`
	MintAuthority string            `json:"mintAuthority,omitempty"`
}

type BindPartyRequest struct {
	Slot     int    `json:"slot"`
	User     string `json:"user"`
	RepStake uint64 `json:"repStake,string"`
	PayStake uint64 `json:"payStake,string"`
}

type EvidenceRequest struct {
	Party string `json:"party"`
	Ref   string `json:"ref"`
}

type VoteRequest struct {
	Voter string `json:"voter"`
	Side  string `json:"side"`
}

type MintView struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Authority string `json:"authority"`
	Supply    uint64 `json:"supply,string"`
}

type CourtView struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	DisputeCount    uint64 `json:"disputeCount"`
	RepMint         string `json:"repMint"`
	PayMint         string `json:"payMint"`
	Protocol        string `json:"protocol"`
	Authority       string `json:"authority,omitempty"`
	MaxDisputeVotes uint64 `json:"maxDisputeVotes"`
	CreatedAt       int64  `json:"createdAt"`
}

type PartyView struct {
	User      string   `json:"user,omitempty"`
	Reserved  bool     `json:"reserved"`
	Staked    bool     `json:"staked"`
	RepStaked uint64   `json:"repStaked,string"`
	PayStaked uint64   `json:"payStaked,string"`
	Evidence  []string `json:"evidence"`
}

type TallyView struct {
	WeightA   uint64 `json:"weightA,string"`
	WeightB   uint64 `json:"weightB,string"`
	Votes     uint64 `json:"votes"`
	CostTotal uint64 `json:"costTotal,string"`
}

type DisputeView struct {
	Address                string            `json:"address"`
	Court                  string            `json:"court"`
	Index                  uint64            `json:"index"`
	Config                 DisputeConfigBody `json:"config"`
	Parties                [2]PartyView      `json:"parties"`
	Phase                  string            `json:"phase"`
	Tally                  TallyView         `json:"tally"`
	Outcome                string            `json:"outcome"`
	RepVault               string            `json:"repVault"`
	PayVault               string            `json:"payVault"`
	EscrowedRep            uint64            `json:"escrowedRep,string"`
	EscrowedPay            uint64            `json:"escrowedPay,string"`
	SubmittedCases         uint64            `json:"submittedCases"`
	ProtocolRewardCredited uint64            `json:"protocolRewardCredited,string"`
	Payer                  string            `json:"payer,omitempty"`
	CreatedAt              int64             `json:"createdAt"`
	ResolvedAt             int64             `json:"resolvedAt,omitempty"`
}

type BallotView struct {
	Dispute string `json:"dispute"`
	Voter   string `json:"voter"`
	Side    string `json:"side"`
	Weight  uint64 `json:"weight,string"`
	Cost    uint64 `json:"cost,string"`
	CastAt  int64  `json:"castAt"`
}

type RecordView struct {
	Court          string `json:"court"`
	User           string `json:"user"`
	Address        string `json:"address"`
	StakedRep      uint64 `json:"stakedRep,string"`
	StakedPay      uint64 `json:"stakedPay,string"`
	ActiveDisputes uint64 `json:"activeDisputes"`
	Participations uint64 `json:"participations"`
}

type PayoutView struct {
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount,string"`
	Reason    string `json:"reason"`
}

type BalanceView struct {
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Symbol  string `json:"symbol"`
	Balance uint64 `json:"balance,string"`
}

// ActionResponse wraps the result of a committed action with its receipt.
type ActionResponse struct {
	Result  interface{}   `json:"result,omitempty"`
	Receipt *core.Receipt `json:"receipt"`
}

type ResolutionView struct {
	Dispute DisputeView  `json:"dispute"`
	Payouts []PayoutView `json:"payouts"`
}

func fmtAddr(a [20]byte) string { return crypto.FromRaw(a).String() }

func optionalAddr(a [20]byte) string {
	if a == ([20]byte{}) {
		return ""
	}
	return fmtAddr(a)
}

func parseAddr(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return addr, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func parseOptionalAddr(field, value string) (*[20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	addr, err := parseAddr(field, value)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func mintView(m *token.Mint) MintView {
	return MintView{
		Address:   fmtAddr(m.Address),
		Symbol:    m.Symbol,
		Decimals:  m.Decimals,
		Authority: fmtAddr(m.Authority),
		Supply:    m.Supply,
	}
}

func courtView(c *court.Court) CourtView {
	return CourtView{
		Name:            c.Name,
		Address:         fmtAddr(c.Address),
		DisputeCount:    c.DisputeCount,
		RepMint:         fmtAddr(c.RepMint),
		PayMint:         fmtAddr(c.PayMint),
		Protocol:        fmtAddr(c.Protocol),
		Authority:       optionalAddr(c.Authority),
		MaxDisputeVotes: c.MaxDisputeVotes,
		CreatedAt:       c.CreatedAt,
	}
}

func disputeView(d *court.Dispute, phase court.Phase) DisputeView {
	view := DisputeView{
		Address:                fmtAddr(d.Address),
		Court:                  fmtAddr(d.Court),
		Index:                  d.Index,
		Config:                 configBody(d.Config),
		Phase:                  phase.String(),
		Outcome:                d.Outcome.String(),
		RepVault:               fmtAddr(d.RepVault),
		PayVault:               fmtAddr(d.PayVault),
		EscrowedRep:            d.EscrowedRep,
		EscrowedPay:            d.EscrowedPay,
		SubmittedCases:         d.SubmittedCases,
		ProtocolRewardCredited: d.ProtocolRewardCredited,
		Payer:                  optionalAddr(d.Payer),
		CreatedAt:              d.CreatedAt,
		ResolvedAt:             d.ResolvedAt,
		Tally: TallyView{
			WeightA:   d.Tally.WeightA,
			WeightB:   d.Tally.WeightB,
			Votes:     d.Tally.Votes,
			CostTotal: d.Tally.CostTotal,
		},
	}
	for i, p := range d.Parties {
		view.Parties[i] = PartyView{
			User:      optionalAddr(p.User),
			Reserved:  p.Reserved,
			Staked:    p.Staked,
			RepStaked: p.RepStaked,
			PayStaked: p.PayStaked,
			Evidence:  append([]string{}, p.Evidence...),
		}
	}
	return view
}

func ballotView(b *court.Ballot) BallotView {
	return BallotView{
		Dispute: fmtAddr(b.Dispute),
		Voter:   fmtAddr(b.Voter),
		Side:    b.Side.String(),
		Weight:  b.Weight,
		Cost:    b.Cost,
		CastAt:  b.CastAt,
	}
}

func recordView(r *court.VoterRecord) RecordView {
	return RecordView{
		Court:          fmtAddr(r.Court),
		User:           fmtAddr(r.User),
		Address:        fmtAddr(court.RecordAddress(r.Court, r.User)),
		StakedRep:      r.StakedRep,
		StakedPay:      r.StakedPay,
		ActiveDisputes: r.ActiveDisputes,
		Participations: r.Participations,
	}
}

func resolutionView(res *court.Resolution) ResolutionView {
	view := ResolutionView{
		Dispute: disputeView(res.Dispute, court.PhaseResolved),
		Payouts: make([]PayoutView, 0),
	}
	if res.Plan != nil {
		for _, p := range res.Plan.Payouts {
			view.Payouts = append(view.Payouts, PayoutView{
				Asset:     p.Asset.String(),
				Recipient: fmtAddr(p.Recipient),
				Amount:    p.Amount,
				Reason:    string(p.Reason),
			})
		}
	}
	return view
}
