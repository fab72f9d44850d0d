package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartItem is a bookable item held in a session cart.
// ID uniqueness is up to the caller; the store never deduplicates. Zero is a valid ID.
type CartItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name" binding:"required"`
	Specialty   string          `json:"specialty,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// CartStore is a single session's in-memory collection.
type CartStore interface {
	AddItem(item CartItem)
	RemoveItem(id int64)
	Items() []CartItem
}

// CartRegistry owns one CartStore per cart session.
type CartRegistry interface {
	Get(sessionID string) CartStore
	Lookup(sessionID string) (CartStore, bool)
	Len() int
}

type CartUsecase interface {
	List(ctx context.Context, sessionID string) []CartItem
	Add(ctx context.Context, sessionID string, item CartItem) []CartItem
	Remove(ctx context.Context, sessionID string, id int64) []CartItem
}
