package court

import "fmt"

// PhaseOf derives the active phase from the clock and the dispute schedule.
// Resolution is the only transition that is recorded rather than derived.
func PhaseOf(now int64, cfg DisputeConfig, resolved bool) Phase {
	if resolved {
		return PhaseResolved
	}
	switch {
	case now < cfg.GraceEndsAt:
		return PhaseGrace
	case now < cfg.InitCasesEndsAt:
		return PhaseCaseSubmission
	case now < cfg.EndsAt:
		return PhaseVoting
	default:
		return PhaseAwaitingResolution
	}
}

// CurrentPhase returns the phase of d at now. The stored phase never
// regresses, so a clock reading earlier than a previously observed one cannot
// reopen a closed window.
func CurrentPhase(d *Dispute, now int64) Phase {
	if d == nil {
		return PhaseUnspecified
	}
	derived := PhaseOf(now, d.Config, d.Resolved())
	if d.Phase > derived {
		return d.Phase
	}
	return derived
}

func requirePhase(d *Dispute, now int64, allowed ...Phase) (Phase, error) {
	current := CurrentPhase(d, now)
	for _, p := range allowed {
		if current == p {
			return current, nil
		}
	}
	return current, fmt.Errorf("%w: dispute is in %s", ErrWrongPhase, current)
}

// bindingPhases lists the phases during which an open slot may be bound.
func bindingPhases(cfg DisputeConfig) []Phase {
	if cfg.AllowLateBinding {
		return []Phase{PhaseGrace, PhaseCaseSubmission}
	}
	return []Phase{PhaseGrace}
}
