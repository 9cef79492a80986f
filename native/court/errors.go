package court

import (
	"errors"
	"fmt"

	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// Kind groups failures into the categories surfaced to callers.
type Kind string

const (
	KindSchedule         Kind = "schedule"
	KindConfig           Kind = "config"
	KindPhase            Kind = "phase"
	KindFunding          Kind = "funding"
	KindIdentity         Kind = "identity"
	KindSettlement       Kind = "settlement"
	KindAddressCollision Kind = "address_collision"
	KindNotFound         Kind = "not_found"
	KindInternal         Kind = "internal"
)

// Error is a typed court failure. errors.Is matches on Code, so a wrapped or
// re-created error still matches its package-level sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "court: " + e.Message
}

// Is reports whether target is a court error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidSchedule  = newError(KindSchedule, "InvalidSchedule", "invalid schedule")
	ErrInvalidConfig    = newError(KindConfig, "InvalidConfig", "invalid config")
	ErrInvalidSide      = newError(KindConfig, "InvalidSide", "invalid side")
	ErrInvalidEvidence  = newError(KindConfig, "InvalidEvidence", "invalid evidence reference")
	ErrAlreadyExists    = newError(KindIdentity, "AlreadyExists", "already exists")
	ErrAddressCollision = newError(KindAddressCollision, "AddressCollision", "address collision")
	ErrNotFound         = newError(KindNotFound, "NotFound", "not found")
	ErrWrongPhase       = newError(KindPhase, "WrongPhase", "wrong phase")

	ErrInvalidSlot       = newError(KindIdentity, "InvalidSlot", "invalid party slot")
	ErrSlotTaken         = newError(KindIdentity, "SlotTaken", "party slot already bound")
	ErrSlotReserved      = newError(KindIdentity, "SlotReserved", "party slot reserved for another identity")
	ErrAlreadyParty      = newError(KindIdentity, "AlreadyParty", "identity already holds the other slot")
	ErrNotParty          = newError(KindIdentity, "NotParty", "caller is not a bound party")
	ErrPartyCannotVote   = newError(KindIdentity, "PartyCannotVote", "parties may not vote")
	ErrDuplicateVote     = newError(KindIdentity, "DuplicateVote", "duplicate vote")
	ErrVoteLimitReached  = newError(KindIdentity, "VoteLimitReached", "dispute vote limit reached")
	ErrDuplicateEvidence = newError(KindIdentity, "DuplicateEvidence", "duplicate evidence reference")
	ErrEvidenceLimit     = newError(KindIdentity, "EvidenceLimit", "evidence limit reached")
	ErrProgramAddress    = newError(KindIdentity, "ProgramAddress", "program-owned address cannot act as a participant")

	ErrInsufficientFunds = newError(KindFunding, "InsufficientFunds", "insufficient funds")
	ErrMintFailed        = newError(KindFunding, "MintFailed", "protocol reward mint failed")

	ErrSettlementInvariantViolation = newError(KindSettlement, "SettlementInvariantViolation", "settlement invariant violation")
)

var errNilState = errors.New("court engine: state not configured")

// KindOf extracts the failure kind from err. Errors that do not carry a court
// error report KindInternal.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) && cerr != nil {
		return cerr.Kind
	}
	return KindInternal
}

// CodeOf extracts the failure code from err, or "Internal".
func CodeOf(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) && cerr != nil {
		return cerr.Code
	}
	return "Internal"
}

// translateTokenError maps ledger failures onto court errors while keeping the
// ledger error in the chain.
func translateTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrInsufficientBalance):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, token.ErrAccountExists):
		return fmt.Errorf("%w: %w", ErrAddressCollision, err)
	case errors.Is(err, token.ErrMintNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	case errors.Is(err, token.ErrProgramAccount):
		return fmt.Errorf("%w: %w", ErrProgramAddress, err)
	case errors.Is(err, token.ErrSelfTransfer):
		return fmt.Errorf("%w: %w", ErrProgramAddress, err)
	case errors.Is(err, token.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrSettlementInvariantViolation, err)
	default:
		return err
	}
}
