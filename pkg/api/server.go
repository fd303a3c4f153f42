// Package api exposes the market core over REST and WebSocket. The REST
// surface maps 1:1 onto the core operations; the WebSocket hub streams
// lifecycle events.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/updownlabs/updown/pkg/core"
	"github.com/updownlabs/updown/pkg/core/account"
	"github.com/updownlabs/updown/pkg/core/domain"
	"github.com/updownlabs/updown/pkg/core/market"
	"github.com/updownlabs/updown/pkg/core/position"
)

// Server handles REST API and WebSocket connections.
type Server struct {
	engine *core.Engine
	vault  *account.Vault
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires the engine and vault behind the HTTP surface and installs
// the hub as the engine's event sink.
func NewServer(engine *core.Engine, vault *account.Vault, log *zap.SugaredLogger) *Server {
	s := &Server{
		engine: engine,
		vault:  vault,
		router: mux.NewRouter(),
		hub:    NewHub(),
		log:    log,
	}
	engine.SetEventSink(s.hub.BroadcastEvent)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market lifecycle
	api.HandleFunc("/markets", s.handleCreateMarket).Methods("POST")
	api.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	api.HandleFunc("/markets/{id}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{id}/resolve", s.handleResolveMarket).Methods("POST")

	// Positions
	api.HandleFunc("/markets/{id}/positions", s.handlePlacePosition).Methods("POST")
	api.HandleFunc("/markets/{id}/positions/{address}", s.handleGetPosition).Methods("GET")
	api.HandleFunc("/markets/{id}/claim", s.handleClaim).Methods("POST")

	// Escrow accounts
	api.HandleFunc("/accounts/{address}", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{address}/positions", s.handleGetAccountPositions).Methods("GET")
	api.HandleFunc("/accounts/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/accounts/withdraw", s.handleWithdraw).Methods("POST")

	// Platform status
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// WebSocket event feed
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the CORS-wrapped route tree, mainly for tests and for
// embedding the server behind an existing listener.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start starts the API server.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}

	m, err := s.engine.CreateMarket(caller, req.ReferencePrice, req.OpenAt, req.CloseAt)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.marketInfo(m))
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.engine.ListMarkets()
	response := make([]MarketInfo, len(markets))
	for i, m := range markets {
		response[i] = s.marketInfo(m)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMarketID(w, r)
	if !ok {
		return
	}
	m, err := s.engine.GetMarket(id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.marketInfo(m))
}

func (s *Server) handleResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMarketID(w, r)
	if !ok {
		return
	}
	var req ResolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}

	m, err := s.engine.ResolveMarket(caller, id, req.SettlementPrice)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.marketInfo(m))
}

func (s *Server) handlePlacePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMarketID(w, r)
	if !ok {
		return
	}
	var req PlacePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}

	p, err := s.engine.PlacePosition(caller, id, market.ParseDirection(req.Direction), req.Stake)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, positionInfo(p))
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMarketID(w, r)
	if !ok {
		return
	}
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	p, err := s.engine.GetPosition(id, addr)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, positionInfo(p))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMarketID(w, r)
	if !ok {
		return
	}
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}

	payout, err := s.engine.ClaimRewards(caller, id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, ClaimResponse{MarketID: id, Owner: caller.Hex(), Payout: payout})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	acc, err := s.vault.Get(addr)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, AccountInfo{
		Address:     acc.Address.Hex(),
		Balance:     acc.Balance,
		TotalStaked: acc.TotalStaked,
		TotalWon:    acc.TotalWon,
		StakeCount:  acc.StakeCount,
	})
}

func (s *Server) handleGetAccountPositions(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	positions := s.engine.PositionsByOwner(addr)
	response := make([]PositionInfo, len(positions))
	for i, p := range positions {
		response[i] = positionInfo(p)
	}
	respondJSON(w, response)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.vault.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.vault.Withdraw)
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request, apply func(common.Address, uint64) error) {
	var req FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}

	if err := apply(caller, req.Amount); err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, AccountInfo{
		Address: caller.Hex(),
		Balance: s.vault.Balance(caller),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	respondJSON(w, StatusResponse{
		Now:         s.engine.Now(),
		MarketCount: len(s.engine.ListMarkets()),
		FeeBps:      cfg.FeeBps,
		MinStake:    cfg.MinStake,
		OracleAddr:  cfg.Oracle.Hex(),
		AdminAddr:   cfg.Admin.Hex(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) marketInfo(m *market.Market) MarketInfo {
	return MarketInfo{
		ID:              m.ID,
		ReferencePrice:  m.ReferencePrice,
		SettlementPrice: m.SettlementPrice,
		TotalUpStake:    m.TotalUpStake,
		TotalDownStake:  m.TotalDownStake,
		OpenAt:          m.OpenAt,
		CloseAt:         m.CloseAt,
		Resolved:        m.Resolved,
		CreatedAt:       m.CreatedAt,
		Phase:           m.PhaseAt(s.engine.Now()).String(),
	}
}

func positionInfo(p *position.Position) PositionInfo {
	return PositionInfo{
		MarketID:  p.MarketID,
		Owner:     p.Owner.Hex(),
		Direction: p.Dir.String(),
		Stake:     p.Stake,
		Claimed:   p.Claimed,
		PlacedAt:  p.PlacedAt,
	}
}

func parseMarketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "invalid market id", idStr)
		return 0, false
	}
	return id, true
}

func parseAddress(w http.ResponseWriter, addressStr string) (common.Address, bool) {
	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", addressStr)
		return common.Address{}, false
	}
	return common.HexToAddress(addressStr), true
}

// respondCoreError maps the core's categorical errors onto HTTP statuses.
func respondCoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, domain.ErrInvalidPrediction):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrMarketInactive),
		errors.Is(err, domain.ErrMarketUnresolved),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrPositionExists),
		errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error(), "")
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
