package court

import (
	"strconv"

	"github.com/IlliniBlockchain/agora-courts/core/types"
	"github.com/IlliniBlockchain/agora-courts/crypto"
)

const (
	EventTypeCourtCreated      = "court.created"
	EventTypeDisputeCreated    = "court.dispute.created"
	EventTypeProtocolRewarded  = "court.dispute.protocol_rewarded"
	EventTypePartyBound        = "court.dispute.party_bound"
	EventTypeEvidenceSubmitted = "court.dispute.evidence_submitted"
	EventTypeVoteCast          = "court.dispute.vote_cast"
	EventTypePayout            = "court.dispute.payout"
	EventTypeDisputeResolved   = "court.dispute.resolved"
)

type courtEvent struct {
	evt *types.Event
}

func (e courtEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e courtEvent) Event() *types.Event { return e.evt }

func fmtAddr(a [20]byte) string { return crypto.FromRaw(a).String() }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// NewCourtCreatedEvent returns the payload emitted when a court is registered.
func NewCourtCreatedEvent(c *Court) *types.Event {
	return &types.Event{Type: EventTypeCourtCreated, Attributes: map[string]string{
		"court":           fmtAddr(c.Address),
		"name":            c.Name,
		"repMint":         fmtAddr(c.RepMint),
		"payMint":         fmtAddr(c.PayMint),
		"protocol":        fmtAddr(c.Protocol),
		"maxDisputeVotes": u64(c.MaxDisputeVotes),
	}}
}

// NewDisputeCreatedEvent returns the payload emitted for a new dispute.
func NewDisputeCreatedEvent(d *Dispute) *types.Event {
	return &types.Event{Type: EventTypeDisputeCreated, Attributes: map[string]string{
		"dispute":         fmtAddr(d.Address),
		"court":           fmtAddr(d.Court),
		"index":           u64(d.Index),
		"graceEndsAt":     strconv.FormatInt(d.Config.GraceEndsAt, 10),
		"initCasesEndsAt": strconv.FormatInt(d.Config.InitCasesEndsAt, 10),
		"endsAt":          strconv.FormatInt(d.Config.EndsAt, 10),
		"repVault":        fmtAddr(d.RepVault),
		"payVault":        fmtAddr(d.PayVault),
	}}
}

func newProtocolRewardedEvent(d *Dispute, protocol [20]byte) *types.Event {
	return &types.Event{Type: EventTypeProtocolRewarded, Attributes: map[string]string{
		"dispute":  fmtAddr(d.Address),
		"protocol": fmtAddr(protocol),
		"amount":   u64(d.ProtocolRewardCredited),
	}}
}

func newPartyBoundEvent(d *Dispute, slot int) *types.Event {
	party := d.Parties[slot]
	return &types.Event{Type: EventTypePartyBound, Attributes: map[string]string{
		"dispute":   fmtAddr(d.Address),
		"slot":      strconv.Itoa(slot),
		"party":     fmtAddr(party.User),
		"repStaked": u64(party.RepStaked),
		"payStaked": u64(party.PayStaked),
	}}
}

func newEvidenceSubmittedEvent(d *Dispute, slot int, ref string) *types.Event {
	return &types.Event{Type: EventTypeEvidenceSubmitted, Attributes: map[string]string{
		"dispute":   fmtAddr(d.Address),
		"party":     fmtAddr(d.Parties[slot].User),
		"reference": ref,
		"count":     strconv.Itoa(len(d.Parties[slot].Evidence)),
	}}
}

func newVoteCastEvent(b *Ballot) *types.Event {
	return &types.Event{Type: EventTypeVoteCast, Attributes: map[string]string{
		"dispute": fmtAddr(b.Dispute),
		"voter":   fmtAddr(b.Voter),
		"side":    b.Side.String(),
		"weight":  u64(b.Weight),
		"cost":    u64(b.Cost),
	}}
}

func newPayoutEvent(d *Dispute, p Payout) *types.Event {
	return &types.Event{Type: EventTypePayout, Attributes: map[string]string{
		"dispute":   fmtAddr(d.Address),
		"asset":     p.Asset.String(),
		"recipient": fmtAddr(p.Recipient),
		"amount":    u64(p.Amount),
		"reason":    string(p.Reason),
	}}
}

func newDisputeResolvedEvent(d *Dispute) *types.Event {
	return &types.Event{Type: EventTypeDisputeResolved, Attributes: map[string]string{
		"dispute": fmtAddr(d.Address),
		"outcome": d.Outcome.String(),
		"votes":   u64(d.Tally.Votes),
		"weightA": u64(d.Tally.WeightA),
		"weightB": u64(d.Tally.WeightB),
	}}
}
