package usecase

import (
	"context"

	"go-healthcare-frontdesk/internal/domain"
)

type cartUsecase struct {
	carts domain.CartRegistry
}

// NewCartUsecase wraps the injected registry; the usecase holds no cart state of its own
func NewCartUsecase(carts domain.CartRegistry) domain.CartUsecase {
	return &cartUsecase{carts: carts}
}

// List never creates a cart; an unknown session simply has no items
func (uc *cartUsecase) List(ctx context.Context, sessionID string) []domain.CartItem {
	cart, ok := uc.carts.Lookup(sessionID)
	if !ok {
		return []domain.CartItem{}
	}
	return cart.Items()
}

func (uc *cartUsecase) Add(ctx context.Context, sessionID string, item domain.CartItem) []domain.CartItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	cart := uc.carts.Get(sessionID)
	cart.AddItem(item)
	return cart.Items()
}

func (uc *cartUsecase) Remove(ctx context.Context, sessionID string, id int64) []domain.CartItem {
	cart, ok := uc.carts.Lookup(sessionID)
	if !ok {
		return []domain.CartItem{}
	}
	cart.RemoveItem(id)
	return cart.Items()
}
