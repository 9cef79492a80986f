package rpc

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/court"
)

// resolveCourt accepts either a court address or a court name.
func resolveCourt(value string) ([20]byte, error) {
	if addr, err := crypto.ParseAddress(value); err == nil {
		return addr, nil
	}
	return court.CourtAddress(value)
}

func (s *Server) courtParam(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := resolveCourt(chi.URLParam(r, "name"))
	if err != nil {
		writeActionError(w, r, err)
		return addr, false
	}
	return addr, true
}

func (s *Server) disputeParam(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := parseAddr("address", chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return addr, false
	}
	return addr, true
}

func (s *Server) handleCreateCourt(w http.ResponseWriter, r *http.Request) {
	var req CreateCourtRequest
	if !s.decode(w, r, &req) {
		return
	}
	params := court.CreateCourtParams{Name: req.Name, MaxDisputeVotes: req.MaxDisputeVotes}
	var err error
	if params.RepMint, err = mintParam(req.RepMint); err != nil {
		writeBadRequest(w, r, "repMint: "+err.Error())
		return
	}
	if params.PayMint, err = mintParam(req.PayMint); err != nil {
		writeBadRequest(w, r, "payMint: "+err.Error())
		return
	}
	if params.Protocol, err = parseAddr("protocol", req.Protocol); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if authority, err := parseOptionalAddr("authority", req.Authority); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	} else if authority != nil {
		params.Authority = *authority
	}
	created, receipt, err := s.node.CreateCourt(r.Context(), params)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ActionResponse{Result: courtView(created), Receipt: receipt})
}

func (s *Server) handleGetCourt(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.courtParam(w, r)
	if !ok {
		return
	}
	c, err := s.node.CourtAt(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courtView(c))
}

func (s *Server) handleNextDisputeIndex(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.courtParam(w, r)
	if !ok {
		return
	}
	next, err := s.node.NextDisputeIndex(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"court":   fmtAddr(addr),
		"index":   next,
		"dispute": fmtAddr(court.DisputeAddress(addr, next)),
	})
}

func (s *Server) handleDisputeAt(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.courtParam(w, r)
	if !ok {
		return
	}
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		writeBadRequest(w, r, "index must be an unsigned integer")
		return
	}
	d, err := s.node.DisputeAt(addr, index)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	s.writeDispute(w, r, d)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.courtParam(w, r)
	if !ok {
		return
	}
	user, err := parseAddr("user", chi.URLParam(r, "user"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	record, err := s.node.Record(addr, user)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordView(record))
}

func (s *Server) handleInitializeDispute(w http.ResponseWriter, r *http.Request) {
	var req InitializeDisputeRequest
	if !s.decode(w, r, &req) {
		return
	}
	courtAddr, err := resolveCourt(req.Court)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	params := court.InitializeDisputeParams{Court: courtAddr, Config: req.Config.config()}
	for i, raw := range []string{req.PartyA, req.PartyB} {
		reserved, err := parseOptionalAddr("party", raw)
		if err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}
		params.Parties[i] = reserved
	}
	if payer, err := parseOptionalAddr("payer", req.Payer); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	} else if payer != nil {
		params.Payer = *payer
	}
	if params.MintAuthority, err = parseOptionalAddr("mintAuthority", req.MintAuthority); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	d, receipt, err := s.node.InitializeDispute(r.Context(), params)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ActionResponse{Result: disputeView(d, court.PhaseGrace), Receipt: receipt})
}

func (s *Server) writeDispute(w http.ResponseWriter, r *http.Request, d *court.Dispute) {
	phase, err := s.node.Phase(d.Address)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeView(d, phase))
}

func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	d, err := s.node.Dispute(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	s.writeDispute(w, r, d)
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	phase, err := s.node.Phase(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dispute": fmtAddr(addr), "phase": phase.String()})
}

func (s *Server) handleBallots(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	ballots, err := s.node.Ballots(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	out := make([]BallotView, 0, len(ballots))
	for _, b := range ballots {
		out = append(out, ballotView(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBindParty(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	var req BindPartyRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := parseAddr("user", req.User)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	d, receipt, err := s.node.BindParty(r.Context(), addr, req.Slot, user, req.RepStake, req.PayStake)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Result: disputeView(d, court.CurrentPhase(d, receipt.Time)), Receipt: receipt})
}

func (s *Server) handleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	var req EvidenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	party, err := parseAddr("party", req.Party)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	d, receipt, err := s.node.SubmitEvidence(r.Context(), addr, party, req.Ref)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Result: disputeView(d, court.CurrentPhase(d, receipt.Time)), Receipt: receipt})
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	voter, err := parseAddr("voter", req.Voter)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	side, err := court.ParseSide(req.Side)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	ballot, receipt, err := s.node.CastVote(r.Context(), addr, voter, side)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ActionResponse{Result: ballotView(ballot), Receipt: receipt})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.disputeParam(w, r)
	if !ok {
		return
	}
	res, receipt, err := s.node.Resolve(r.Context(), addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Result: resolutionView(res), Receipt: receipt})
}

func (s *Server) handleStateRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"stateRoot": s.node.StateRoot()})
}
