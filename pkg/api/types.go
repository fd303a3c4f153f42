package api

// Request and response types for REST endpoints and WebSocket messages.

// ==============================
// REST Request Types
// ==============================

// CreateMarketRequest opens a new market. Caller must be the administrator.
type CreateMarketRequest struct {
	Caller         string `json:"caller"`         // administrator address
	ReferencePrice uint64 `json:"referencePrice"` // fixed-point, > 0
	OpenAt         int64  `json:"openAt"`
	CloseAt        int64  `json:"closeAt"`
}

// PlacePositionRequest stakes on one side of an open market.
type PlacePositionRequest struct {
	Caller    string `json:"caller"`
	Direction string `json:"direction"` // "up" or "down"
	Stake     uint64 `json:"stake"`
}

// ResolveMarketRequest reports the settlement price. Caller must be the oracle.
type ResolveMarketRequest struct {
	Caller          string `json:"caller"`
	SettlementPrice uint64 `json:"settlementPrice"` // > 0
}

// ClaimRequest collects a winning position's payout.
type ClaimRequest struct {
	Caller string `json:"caller"`
}

// FundRequest deposits into or withdraws from an escrow account.
type FundRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

// ==============================
// REST Response Types
// ==============================

// MarketInfo is the wire form of a market plus its derived phase.
type MarketInfo struct {
	ID              uint64 `json:"id"`
	ReferencePrice  uint64 `json:"referencePrice"`
	SettlementPrice uint64 `json:"settlementPrice"` // 0 until resolved
	TotalUpStake    uint64 `json:"totalUpStake"`
	TotalDownStake  uint64 `json:"totalDownStake"`
	OpenAt          int64  `json:"openAt"`
	CloseAt         int64  `json:"closeAt"`
	Resolved        bool   `json:"resolved"`
	CreatedAt       int64  `json:"createdAt"`
	Phase           string `json:"phase"` // "pending", "open", "closed", "resolved"
}

// PositionInfo is the wire form of a position.
type PositionInfo struct {
	MarketID  uint64 `json:"marketId"`
	Owner     string `json:"owner"`
	Direction string `json:"direction"`
	Stake     uint64 `json:"stake"`
	Claimed   bool   `json:"claimed"`
	PlacedAt  int64  `json:"placedAt"`
}

// AccountInfo is the wire form of an escrow account.
type AccountInfo struct {
	Address     string `json:"address"`
	Balance     uint64 `json:"balance"`
	TotalStaked uint64 `json:"totalStaked"`
	TotalWon    uint64 `json:"totalWon"`
	StakeCount  uint64 `json:"stakeCount"`
}

// ClaimResponse reports the net payout credited back to the caller.
type ClaimResponse struct {
	MarketID uint64 `json:"marketId"`
	Owner    string `json:"owner"`
	Payout   uint64 `json:"payout"`
}

// StatusResponse reports platform configuration and counters.
type StatusResponse struct {
	Now         int64  `json:"now"`
	MarketCount int    `json:"marketCount"`
	FeeBps      uint64 `json:"feeBps"`
	MinStake    uint64 `json:"minStake"`
	OracleAddr  string `json:"oracle"`
	AdminAddr   string `json:"admin"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest subscribes or unsubscribes event channels.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSEvent wraps a broadcast lifecycle event.
type WSEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
