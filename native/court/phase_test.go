package court

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/IlliniBlockchain/agora-courts/native/token"
)

func TestPhaseOf(t *testing.T) {
	cfg := DisputeConfig{GraceEndsAt: 10, InitCasesEndsAt: 20, EndsAt: 30}
	cases := []struct {
		now      int64
		resolved bool
		want     Phase
	}{
		{now: 0, want: PhaseGrace},
		{now: 9, want: PhaseGrace},
		{now: 10, want: PhaseCaseSubmission},
		{now: 19, want: PhaseCaseSubmission},
		{now: 20, want: PhaseVoting},
		{now: 29, want: PhaseVoting},
		{now: 30, want: PhaseAwaitingResolution},
		{now: 1 << 40, want: PhaseAwaitingResolution},
		{now: 5, resolved: true, want: PhaseResolved},
	}
	for _, tc := range cases {
		if got := PhaseOf(tc.now, cfg, tc.resolved); got != tc.want {
			t.Fatalf("PhaseOf(%d, resolved=%v) = %s, want %s", tc.now, tc.resolved, got, tc.want)
		}
	}
}

func TestCurrentPhaseNeverRegresses(t *testing.T) {
	d := &Dispute{Config: DisputeConfig{GraceEndsAt: 10, InitCasesEndsAt: 20, EndsAt: 30}, Phase: PhaseVoting}
	if got := CurrentPhase(d, 5); got != PhaseVoting {
		t.Fatalf("expected stored voting phase to win, got %s", got)
	}
	if got := CurrentPhase(d, 35); got != PhaseAwaitingResolution {
		t.Fatalf("expected derived phase to advance, got %s", got)
	}
}

func TestValidateSchedule(t *testing.T) {
	valid := DisputeConfig{GraceEndsAt: 11, InitCasesEndsAt: 12, EndsAt: 13, MinVotes: 1}
	if err := valid.Validate(10); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := valid.Validate(11); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected deadline at now to be rejected, got %v", err)
	}
	equal := valid
	equal.EndsAt = equal.InitCasesEndsAt
	if err := equal.Validate(10); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected equal deadlines to be rejected, got %v", err)
	}
}

func TestTallyOutcome(t *testing.T) {
	var tally Tally
	if got := tally.Outcome(1); got != OutcomeNoQuorum {
		t.Fatalf("empty tally: expected NoQuorum, got %s", got)
	}
	if err := tally.Add(SidePartyA, 10, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := tally.Outcome(1); got != OutcomePartyA {
		t.Fatalf("expected PartyA, got %s", got)
	}
	if got := tally.Outcome(2); got != OutcomeNoQuorum {
		t.Fatalf("expected NoQuorum below floor, got %s", got)
	}
	if err := tally.Add(SidePartyB, 10, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := tally.Outcome(2); got != OutcomeVoid {
		t.Fatalf("expected Void on tie, got %s", got)
	}
	if err := tally.Add(SidePartyB, 1, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := tally.Outcome(2); got != OutcomePartyB {
		t.Fatalf("expected PartyB, got %s", got)
	}
}

func TestTallyAddRejectsOverflow(t *testing.T) {
	tally := Tally{WeightA: math.MaxUint64}
	before := tally
	if err := tally.Add(SidePartyA, 1, 0); !errors.Is(err, ErrInsufficientFunds) || KindOf(err) != KindFunding {
		t.Fatalf("expected funding overflow error, got %v", err)
	}
	if tally != before {
		t.Fatalf("tally mutated on failed add")
	}
	costly := Tally{CostTotal: math.MaxUint64}
	if err := costly.Add(SidePartyB, 1, 1); KindOf(err) != KindFunding {
		t.Fatalf("expected funding overflow error for cost, got %v", err)
	}
	if err := tally.Add(SideNone, 1, 0); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("bind: %w", fmt.Errorf("%w: slot 0", ErrSlotTaken))
	if !errors.Is(wrapped, ErrSlotTaken) {
		t.Fatalf("errors.Is failed through wrapping")
	}
	if KindOf(wrapped) != KindIdentity || CodeOf(wrapped) != "SlotTaken" {
		t.Fatalf("unexpected kind/code: %s/%s", KindOf(wrapped), CodeOf(wrapped))
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors should be internal")
	}
	translated := translateTokenError(fmt.Errorf("%w: need 5", token.ErrInsufficientBalance))
	if !errors.Is(translated, ErrInsufficientFunds) || !errors.Is(translated, token.ErrInsufficientBalance) {
		t.Fatalf("translation lost part of the chain: %v", translated)
	}
}

func TestParseSide(t *testing.T) {
	for input, want := range map[string]Side{"a": SidePartyA, "B": SidePartyB, "party_a": SidePartyA, "1": SidePartyB} {
		got, err := ParseSide(input)
		if err != nil || got != want {
			t.Fatalf("ParseSide(%q) = %s, %v", input, got, err)
		}
	}
	if _, err := ParseSide("c"); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}
