package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

const (
	kindRequest     = "request"
	kindRateLimited = "rate_limited"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

var kindStatus = map[court.Kind]int{
	court.KindSchedule:         http.StatusBadRequest,
	court.KindConfig:           http.StatusBadRequest,
	court.KindPhase:            http.StatusConflict,
	court.KindFunding:          http.StatusUnprocessableEntity,
	court.KindIdentity:         http.StatusConflict,
	court.KindSettlement:       http.StatusInternalServerError,
	court.KindAddressCollision: http.StatusConflict,
	court.KindNotFound:         http.StatusNotFound,
	court.KindInternal:         http.StatusInternalServerError,
}

// classify maps an action failure onto the response status and body. Court
// errors carry their own kind; bare ledger errors are folded into the nearest
// court kind.
func classify(err error) (int, ErrorResponse) {
	var cerr *court.Error
	if errors.As(err, &cerr) {
		status, ok := kindStatus[cerr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Kind: string(cerr.Kind), Code: cerr.Code, Message: err.Error()}
	}
	resp := ErrorResponse{Message: err.Error()}
	var status int
	switch {
	case errors.Is(err, token.ErrMintNotFound), errors.Is(err, token.ErrAccountNotFound):
		status, resp.Kind, resp.Code = http.StatusNotFound, string(court.KindNotFound), "NotFound"
	case errors.Is(err, token.ErrInsufficientBalance):
		status, resp.Kind, resp.Code = http.StatusUnprocessableEntity, string(court.KindFunding), "InsufficientFunds"
	case errors.Is(err, token.ErrOverflow):
		status, resp.Kind, resp.Code = http.StatusUnprocessableEntity, string(court.KindFunding), "Overflow"
	case errors.Is(err, token.ErrProgramAccount):
		status, resp.Kind, resp.Code = http.StatusConflict, string(court.KindIdentity), court.ErrProgramAddress.Code
	case errors.Is(err, token.ErrSelfTransfer):
		status, resp.Kind, resp.Code = http.StatusBadRequest, string(court.KindConfig), "InvalidConfig"
	case errors.Is(err, token.ErrUnauthorizedMint):
		status, resp.Kind, resp.Code = http.StatusForbidden, string(court.KindIdentity), "Unauthorized"
	case errors.Is(err, token.ErrMintExists), errors.Is(err, token.ErrAccountExists):
		status, resp.Kind, resp.Code = http.StatusConflict, string(court.KindAddressCollision), "AddressCollision"
	case errors.Is(err, token.ErrInvalidSymbol):
		status, resp.Kind, resp.Code = http.StatusBadRequest, string(court.KindConfig), "InvalidConfig"
	default:
		status, resp.Kind, resp.Code = http.StatusInternalServerError, string(court.KindInternal), "Internal"
	}
	return status, resp
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Kind:      kind,
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(r.Context()),
	})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, kindRequest, "BadRequest", message)
}

func writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)
	resp.RequestID = requestIDFrom(r.Context())
	writeJSON(w, status, resp)
}
