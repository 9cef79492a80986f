package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IlliniBlockchain/agora-courts/crypto"
	"github.com/IlliniBlockchain/agora-courts/native/token"
)

// mintParam accepts either a mint address or a token symbol.
func mintParam(value string) ([20]byte, error) {
	if addr, err := crypto.ParseAddress(value); err == nil {
		return addr, nil
	}
	return token.MintAddress(value)
}

func (s *Server) handleRegisterMint(w http.ResponseWriter, r *http.Request) {
	var req RegisterMintRequest
	if !s.decode(w, r, &req) {
		return
	}
	authority, err := parseAddr("authority", req.Authority)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	mint, receipt, err := s.node.RegisterMint(r.Context(), req.Symbol, req.Decimals, authority)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ActionResponse{Result: mintView(mint), Receipt: receipt})
}

func (s *Server) handleGetMint(w http.ResponseWriter, r *http.Request) {
	addr, err := mintParam(chi.URLParam(r, "symbol"))
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	mint, err := s.node.Mint(addr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mintView(mint))
}

func (s *Server) handleMintTo(w http.ResponseWriter, r *http.Request) {
	var req MintToRequest
	if !s.decode(w, r, &req) {
		return
	}
	mint, err := mintParam(req.Symbol)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	authority, err := parseAddr("authority", req.Authority)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	owner, err := parseAddr("owner", req.Owner)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	receipt, err := s.node.MintTo(r.Context(), mint, authority, owner, req.Amount)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Receipt: receipt})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !s.decode(w, r, &req) {
		return
	}
	mint, err := mintParam(req.Symbol)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	from, err := parseAddr("from", req.From)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	to, err := parseAddr("to", req.To)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	receipt, err := s.node.Transfer(r.Context(), mint, from, to, req.Amount)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Receipt: receipt})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddr("owner", chi.URLParam(r, "owner"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	mintAddr, err := mintParam(chi.URLParam(r, "symbol"))
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	mint, err := s.node.Mint(mintAddr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	balance, err := s.node.Balance(owner, mintAddr)
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceView{
		Owner:   fmtAddr(owner),
		Mint:    fmtAddr(mintAddr),
		Symbol:  mint.Symbol,
		Balance: balance,
	})
}
