package usecase_test

import (
	"context"
	"testing"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/internal/repository/memory"
	"go-healthcare-frontdesk/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartUsecase(t *testing.T) {
	ctx := context.Background()
	reg := memory.NewCartRegistry(time.Hour, nil)
	uc := usecase.NewCartUsecase(reg)

	assert.Empty(t, uc.List(ctx, "session-a"))
	assert.NotNil(t, uc.Remove(ctx, "session-a", 1))
	assert.Equal(t, 0, reg.Len(), "reading an unknown session does not create a cart")

	items := uc.Add(ctx, "session-a", domain.CartItem{ID: 1, Name: "Dr. Rivera", Specialty: "Cardiology", Price: decimal.RequireFromString("120.00")})
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity, "quantity defaults to one")

	uc.Add(ctx, "session-a", domain.CartItem{ID: 2, Name: "Dr. Chen", Price: decimal.RequireFromString("95.50"), Quantity: 3})
	assert.Len(t, uc.List(ctx, "session-a"), 2)
	assert.Empty(t, uc.List(ctx, "session-b"), "sessions do not share carts")
	assert.Equal(t, 1, reg.Len())

	items = uc.Remove(ctx, "session-a", 1)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)

	items = uc.Remove(ctx, "session-a", 99)
	assert.Len(t, items, 1, "removing an absent id is a no-op")

	items = uc.Add(ctx, "session-a", domain.CartItem{ID: 0, Name: "Walk-in triage"})
	assert.Len(t, items, 2, "zero is a valid item id")
}
