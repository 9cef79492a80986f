package court

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Asset selects which of the two dispute vaults a payout draws from.
type Asset uint8

const (
	AssetRep Asset = iota + 1
	AssetPay
)

func (a Asset) String() string {
	switch a {
	case AssetRep:
		return "rep"
	case AssetPay:
		return "pay"
	default:
		return "unknown"
	}
}

// PayoutReason labels why a payout is made.
type PayoutReason string

const (
	ReasonStakeRefund  PayoutReason = "stake_refund"
	ReasonCostRefund   PayoutReason = "cost_refund"
	ReasonProtocolCut  PayoutReason = "protocol_cut"
	ReasonVoterReward  PayoutReason = "voter_reward"
	ReasonRoundingDust PayoutReason = "rounding_dust"
)

// Payout is one vault release.
type Payout struct {
	Asset     Asset
	Recipient [20]byte
	Amount    uint64
	Reason    PayoutReason
}

// Plan is the full set of releases for a resolution. It is computed without
// touching state so it can be validated before any transfer executes.
type Plan struct {
	Outcome Outcome
	Payouts []Payout
}

// Total sums the payouts drawn from asset.
func (p *Plan) Total(asset Asset) (uint64, error) {
	if p == nil {
		return 0, nil
	}
	var total uint64
	for _, payout := range p.Payouts {
		if payout.Asset != asset {
			continue
		}
		if math.MaxUint64-total < payout.Amount {
			return 0, fmt.Errorf("%w: %s payout total overflows", ErrSettlementInvariantViolation, asset)
		}
		total += payout.Amount
	}
	return total, nil
}

type planBuilder struct {
	payouts []Payout
}

func (b *planBuilder) add(asset Asset, to [20]byte, amount uint64, reason PayoutReason) {
	if amount == 0 {
		return
	}
	b.payouts = append(b.payouts, Payout{Asset: asset, Recipient: to, Amount: amount, Reason: reason})
}

// PlanSettlement computes the releases owed for d given its ballots in cast
// order. Decisive outcomes refund the winner, pay the protocol its cut of the
// loser's forfeited stake and share the remainder plus all ballot costs among
// winning-side voters pro rata to weight. Rounding dust goes to the protocol.
// NoQuorum and Void refund every stake and every ballot cost.
func PlanSettlement(d *Dispute, court *Court, ballots []*Ballot) (*Plan, error) {
	if d == nil || court == nil {
		return nil, fmt.Errorf("%w: dispute and court required", ErrSettlementInvariantViolation)
	}
	outcome := d.Tally.Outcome(d.Config.MinVotes)
	if err := checkBallots(d, ballots); err != nil {
		return nil, err
	}
	b := &planBuilder{}
	if !outcome.Decisive() {
		for _, party := range d.Parties {
			if !party.Staked {
				continue
			}
			b.add(AssetRep, party.User, party.RepStaked, ReasonStakeRefund)
			b.add(AssetPay, party.User, party.PayStaked, ReasonStakeRefund)
		}
		for _, ballot := range ballots {
			b.add(AssetRep, ballot.Voter, ballot.Cost, ReasonCostRefund)
		}
		return &Plan{Outcome: outcome, Payouts: b.payouts}, nil
	}

	winSide := outcome.Winner()
	winner := d.Parties[winSide.Slot()]
	loser := d.Parties[1-winSide.Slot()]
	if winner.Staked {
		b.add(AssetRep, winner.User, winner.RepStaked, ReasonStakeRefund)
		b.add(AssetPay, winner.User, winner.PayStaked, ReasonStakeRefund)
	}
	var forfeitedRep, forfeitedPay uint64
	if loser.Staked {
		forfeitedRep, forfeitedPay = loser.RepStaked, loser.PayStaked
	}
	protocolRep := minUint64(d.Config.ProtocolRep, forfeitedRep)
	protocolPay := minUint64(d.Config.ProtocolPay, forfeitedPay)
	b.add(AssetRep, court.Protocol, protocolRep, ReasonProtocolCut)
	b.add(AssetPay, court.Protocol, protocolPay, ReasonProtocolCut)

	repPool := forfeitedRep - protocolRep
	if math.MaxUint64-repPool < d.Tally.CostTotal {
		return nil, fmt.Errorf("%w: reputation pool overflows", ErrSettlementInvariantViolation)
	}
	repPool += d.Tally.CostTotal
	payPool := forfeitedPay - protocolPay

	winners := make([]*Ballot, 0, len(ballots))
	var totalWeight uint64
	for _, ballot := range ballots {
		if ballot.Side != winSide {
			continue
		}
		winners = append(winners, ballot)
		totalWeight += ballot.Weight
	}
	if totalWeight != d.Tally.WeightFor(winSide) {
		return nil, fmt.Errorf("%w: ballot weights %d disagree with tally %d", ErrSettlementInvariantViolation, totalWeight, d.Tally.WeightFor(winSide))
	}
	distribute(b, AssetRep, repPool, winners, totalWeight, court.Protocol)
	distribute(b, AssetPay, payPool, winners, totalWeight, court.Protocol)
	return &Plan{Outcome: outcome, Payouts: b.payouts}, nil
}

// distribute shares pool among ballots pro rata to weight. The product is
// formed in 256 bits so pool*weight cannot overflow.
func distribute(b *planBuilder, asset Asset, pool uint64, ballots []*Ballot, totalWeight uint64, dustTo [20]byte) {
	if pool == 0 {
		return
	}
	if totalWeight == 0 {
		b.add(asset, dustTo, pool, ReasonRoundingDust)
		return
	}
	bigPool := uint256.NewInt(pool)
	bigTotal := uint256.NewInt(totalWeight)
	var paid uint64
	for _, ballot := range ballots {
		share := new(uint256.Int).Mul(bigPool, uint256.NewInt(ballot.Weight))
		share.Div(share, bigTotal)
		amount := share.Uint64()
		paid += amount
		b.add(asset, ballot.Voter, amount, ReasonVoterReward)
	}
	b.add(asset, dustTo, pool-paid, ReasonRoundingDust)
}

func checkBallots(d *Dispute, ballots []*Ballot) error {
	if uint64(len(ballots)) != d.Tally.Votes {
		return fmt.Errorf("%w: %d ballots recorded, tally counts %d", ErrSettlementInvariantViolation, len(ballots), d.Tally.Votes)
	}
	var costs uint64
	for _, ballot := range ballots {
		if ballot == nil || ballot.Dispute != d.Address {
			return fmt.Errorf("%w: ballot does not belong to dispute", ErrSettlementInvariantViolation)
		}
		if math.MaxUint64-costs < ballot.Cost {
			return fmt.Errorf("%w: ballot cost overflow", ErrSettlementInvariantViolation)
		}
		costs += ballot.Cost
	}
	if costs != d.Tally.CostTotal {
		return fmt.Errorf("%w: ballot costs %d disagree with tally %d", ErrSettlementInvariantViolation, costs, d.Tally.CostTotal)
	}
	return nil
}

// ValidatePlan rejects a plan whose releases exceed either the tracked vault
// balances or the actual vault balances.
func ValidatePlan(plan *Plan, d *Dispute, repVault, payVault uint64) error {
	if plan == nil || d == nil {
		return fmt.Errorf("%w: plan required", ErrSettlementInvariantViolation)
	}
	checks := []struct {
		asset   Asset
		tracked uint64
		actual  uint64
	}{
		{AssetRep, d.EscrowedRep, repVault},
		{AssetPay, d.EscrowedPay, payVault},
	}
	for _, c := range checks {
		total, err := plan.Total(c.asset)
		if err != nil {
			return err
		}
		if total > c.tracked {
			return fmt.Errorf("%w: %s releases %d exceed tracked balance %d", ErrSettlementInvariantViolation, c.asset, total, c.tracked)
		}
		if total > c.actual {
			return fmt.Errorf("%w: %s releases %d exceed vault balance %d", ErrSettlementInvariantViolation, c.asset, total, c.actual)
		}
	}
	return nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
