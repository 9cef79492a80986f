package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/IlliniBlockchain/agora-courts/core"
	"github.com/IlliniBlockchain/agora-courts/native/court"
	"github.com/IlliniBlockchain/agora-courts/native/token"
	"github.com/IlliniBlockchain/agora-courts/observability"
	"github.com/IlliniBlockchain/agora-courts/observability/logging"
)

const (
	metricsModule       = "court"
	defaultMaxBodyBytes = 1 << 20
	requestIDHeader     = "X-Request-ID"
)

// Backend is the node surface served over HTTP.
type Backend interface {
	RegisterMint(ctx context.Context, symbol string, decimals uint8, authority [20]byte) (*token.Mint, *core.Receipt, error)
	MintTo(ctx context.Context, mint, authority, owner [20]byte, amount uint64) (*core.Receipt, error)
	Transfer(ctx context.Context, mint, from, to [20]byte, amount uint64) (*core.Receipt, error)
	CreateCourt(ctx context.Context, params court.CreateCourtParams) (*court.Court, *core.Receipt, error)
	InitializeDispute(ctx context.Context, params court.InitializeDisputeParams) (*court.Dispute, *core.Receipt, error)
	BindParty(ctx context.Context, dispute [20]byte, slot int, user [20]byte, repStake, payStake uint64) (*court.Dispute, *core.Receipt, error)
	SubmitEvidence(ctx context.Context, dispute, party [20]byte, ref string) (*court.Dispute, *core.Receipt, error)
	CastVote(ctx context.Context, dispute, voter [20]byte, side court.Side) (*court.Ballot, *core.Receipt, error)
	Resolve(ctx context.Context, dispute [20]byte) (*court.Resolution, *core.Receipt, error)

	Court(name string) (*court.Court, error)
	CourtAt(addr [20]byte) (*court.Court, error)
	NextDisputeIndex(courtAddr [20]byte) (uint64, error)
	Dispute(addr [20]byte) (*court.Dispute, error)
	DisputeAt(courtAddr [20]byte, index uint64) (*court.Dispute, error)
	Phase(addr [20]byte) (court.Phase, error)
	Ballots(addr [20]byte) ([]*court.Ballot, error)
	Record(courtAddr, user [20]byte) (*court.VoterRecord, error)
	Balance(owner, mint [20]byte) (uint64, error)
	Mint(addr [20]byte) (*token.Mint, error)
	StateRoot() string
}

// ServerConfig bounds request handling.
type ServerConfig struct {
	RequestsPerMinute int
	Burst             int
	MaxBodyBytes      int64
}

type Server struct {
	node    Backend
	logger  *slog.Logger
	limiter *RateLimiter
	maxBody int64
}

func NewServer(node Backend, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Server{
		node:    node,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		maxBody: maxBody,
	}
}

// Handler builds the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state/root", s.handleStateRoot)

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/mints", s.handleRegisterMint)
			r.Get("/mints/{symbol}", s.handleGetMint)
			r.Post("/mint", s.handleMintTo)
			r.Post("/transfer", s.handleTransfer)
			r.Get("/balances/{owner}/{symbol}", s.handleBalance)
		})

		r.Route("/courts", func(r chi.Router) {
			r.Post("/", s.handleCreateCourt)
			r.Get("/{name}", s.handleGetCourt)
			r.Get("/{name}/next-index", s.handleNextDisputeIndex)
			r.Get("/{name}/disputes/{index}", s.handleDisputeAt)
			r.Get("/{name}/records/{user}", s.handleRecord)
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", s.handleInitializeDispute)
			r.Get("/{address}", s.handleGetDispute)
			r.Get("/{address}/phase", s.handlePhase)
			r.Get("/{address}/ballots", s.handleBallots)
			r.Post("/{address}/parties", s.handleBindParty)
			r.Post("/{address}/evidence", s.handleSubmitEvidence)
			r.Post("/{address}/votes", s.handleCastVote)
			r.Post("/{address}/resolve", s.handleResolve)
		})
	})

	return otelhttp.NewHandler(r, "courtd.http")
}

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)

		route := r.Method + " " + r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = r.Method + " " + pattern
			}
		}
		observability.ModuleMetrics().Observe(metricsModule, route, recorder.status, duration)
		s.logger.Info("http request",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", duration.Milliseconds(),
			logging.MaskField("remote_addr", clientID(r)))
	})
}

// decode reads a JSON body, rejecting unknown fields and oversized payloads.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, kindRequest, "BodyTooLarge", "request body too large")
			return false
		}
		writeBadRequest(w, r, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeBadRequest(w, r, "request body must contain a single JSON object")
		return false
	}
	return true
}
