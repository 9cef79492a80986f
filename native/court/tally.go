package court

import (
	"fmt"
	"math"
)

// Add records a ballot in the tally. The tally is left untouched on error.
func (t *Tally) Add(side Side, weight, cost uint64) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	next := *t
	switch side {
	case SidePartyA:
		if math.MaxUint64-next.WeightA < weight {
			return fmt.Errorf("%w: weight overflow", ErrInsufficientFunds)
		}
		next.WeightA += weight
	case SidePartyB:
		if math.MaxUint64-next.WeightB < weight {
			return fmt.Errorf("%w: weight overflow", ErrInsufficientFunds)
		}
		next.WeightB += weight
	}
	if math.MaxUint64-next.CostTotal < cost {
		return fmt.Errorf("%w: cost overflow", ErrInsufficientFunds)
	}
	next.CostTotal += cost
	next.Votes++
	*t = next
	return nil
}

// Outcome applies the quorum floor and then compares side weights.
func (t Tally) Outcome(minVotes uint64) Outcome {
	if t.Votes < minVotes {
		return OutcomeNoQuorum
	}
	switch {
	case t.WeightA > t.WeightB:
		return OutcomePartyA
	case t.WeightB > t.WeightA:
		return OutcomePartyB
	default:
		return OutcomeVoid
	}
}

// WeightFor returns the accumulated weight of side.
func (t Tally) WeightFor(side Side) uint64 {
	switch side {
	case SidePartyA:
		return t.WeightA
	case SidePartyB:
		return t.WeightB
	default:
		return 0
	}
}
