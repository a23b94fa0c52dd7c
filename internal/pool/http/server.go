package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/betting-pool/internal/pool"
	"github.com/radieske/betting-pool/internal/pool/dto"
	"github.com/radieske/betting-pool/pkg/contracts/events"
)

// Pool define as operações do gerenciador usadas pelos handlers
type Pool interface {
	OpenRound(ctx context.Context, caller string, requiredCount int, stake int64) error
	Deposit(ctx context.Context, caller string, amount int64) (pool.Receipt, error)
	Cancel(ctx context.Context, caller string) error
	WithdrawFees(ctx context.Context, caller string) (int64, error)
	Snapshot() events.RoundSnapshot
}

// Server expõe a API REST do pool e das carteiras
type Server struct {
	log     *zap.Logger
	pool    Pool
	wallets pool.Wallets
	ws      http.Handler
}

func NewServer(log *zap.Logger, p Pool, w pool.Wallets, ws http.Handler) *Server {
	return &Server{log: log, pool: p, wallets: w, ws: ws}
}

// Router retorna o roteador HTTP com as rotas da API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/rounds", s.openRound)           // abre rodada (admin)
	r.Get("/v1/rounds/current", s.currentRound) // estado atual
	r.Post("/v1/rounds/deposit", s.deposit)     // entra na rodada
	r.Post("/v1/rounds/cancel", s.cancel)       // cancela e reembolsa (admin)
	r.Post("/v1/fees/withdraw", s.withdrawFees) // saca taxas (admin)

	r.Get("/v1/wallets/{userId}", s.getWallet)
	r.Post("/v1/wallets/fund", s.fundWallet)

	if s.ws != nil {
		r.Get("/ws", s.ws.ServeHTTP)
	}
	return r
}

func (s *Server) openRound(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("userId required"))
		return
	}
	if err := s.pool.OpenRound(r.Context(), req.UserID, req.RequiredCount, req.StakeCents); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.pool.Snapshot())
}

func (s *Server) currentRound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Snapshot())
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("userId required"))
		return
	}
	rcpt, err := s.pool.Deposit(r.Context(), req.UserID, req.AmountCents)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := dto.DepositResponse{RoundID: rcpt.RoundID, Position: rcpt.Position}
	if res := rcpt.Resolution; res != nil {
		out.Resolved = true
		out.Winner = res.Winner
		out.PayoutCents = res.Payout
		out.FeeCents = res.Fee
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	if err := s.pool.Cancel(r.Context(), req.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Snapshot())
}

func (s *Server) withdrawFees(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	amount, err := s.pool.WithdrawFees(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WithdrawResponse{AmountCents: amount})
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	bal, err := s.wallets.Balance(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, BalanceCents: bal})
}

func (s *Server) fundWallet(w http.ResponseWriter, r *http.Request) {
	var req dto.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	if pool.IsPoolAccount(req.UserID) {
		writeError(w, http.StatusBadRequest, errors.New("pool accounts cannot be funded"))
		return
	}
	bal, err := s.wallets.Fund(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, BalanceCents: bal})
}

// fail traduz o tipo de erro do pool para status HTTP
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Kind: pool.Kind(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pool.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, pool.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, pool.ErrIncorrectAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pool.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, pool.ErrTransferFailure):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
