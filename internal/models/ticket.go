package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a payment ticket.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusApproved TicketStatus = "approved"
	StatusRejected TicketStatus = "rejected"
	StatusRefunded TicketStatus = "refunded"
	StatusClosed   TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusRefunded, StatusClosed:
		return true
	}
	return false
}

// transitionSources is the adjacency table of the ticket state machine,
// keyed by target status. pending -> {approved, rejected},
// approved -> {refunded, closed}; everything else is terminal.
var transitionSources = map[TicketStatus][]TicketStatus{
	StatusApproved: {StatusPending},
	StatusRejected: {StatusPending},
	StatusRefunded: {StatusApproved},
	StatusClosed:   {StatusApproved},
}

// TransitionSources returns the set of statuses a ticket may hold for a
// transition into "to" to be legal. Empty for unreachable targets.
func TransitionSources(to TicketStatus) []TicketStatus {
	return transitionSources[to]
}

// CanTransition reports whether the edge from -> to exists in the state graph.
func CanTransition(from, to TicketStatus) bool {
	for _, s := range transitionSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// UsdtType tags which USDT rate category a ticket was submitted under.
type UsdtType string

const (
	UsdtMixed UsdtType = "mixed"
	UsdtStock UsdtType = "stock"
	UsdtGame  UsdtType = "game"
)

// Valid reports whether t is a known USDT category.
func (t UsdtType) Valid() bool {
	switch t {
	case UsdtMixed, UsdtStock, UsdtGame:
		return true
	}
	return false
}

// Ticket is one payment-proof submission awaiting admin disposition.
type Ticket struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Notes       *string          `json:"notes"`
	ProofURL    *string          `json:"proof_url"`
	Status      TicketStatus     `json:"status"`
	AdminNotes  *string          `json:"admin_notes"`
	ProcessedBy *string          `json:"processed_by"`
	ProcessedAt *time.Time       `json:"processed_at"`
	UsdtType    *UsdtType        `json:"usdt_type"`
	UsdtRate    *decimal.Decimal `json:"usdt_rate"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
