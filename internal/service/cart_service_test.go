package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
)

func newCartFixture() *CartService {
	products := newFakeProductRepo(
		&entity.Product{ID: 1, Price: 500, Quantity: 10},
		&entity.Product{ID: 2, Price: 300, Quantity: 10},
	)
	return NewCartService(newFakeCartRepo(), products)
}

func TestCartAddItemSumsDuplicateLines(t *testing.T) {
	svc := newCartFixture()

	cart, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(context.Background(), 7, 1, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartAddItemValidation(t *testing.T) {
	svc := newCartFixture()

	_, err := svc.AddItem(context.Background(), 0, 1, 1)
	assert.True(t, apperr.Is(err, "not_authenticated"))

	_, err = svc.AddItem(context.Background(), 7, 1, 0)
	assert.True(t, apperr.Is(err, "invalid_quantity"))

	_, err = svc.AddItem(context.Background(), 7, 99, 1)
	assert.True(t, apperr.Is(err, "product_not_found"))
}

func TestCartUpdateQuantity(t *testing.T) {
	svc := newCartFixture()

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(context.Background(), 7, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, cart.Items[0].Quantity)

	_, err = svc.UpdateQuantity(context.Background(), 7, 1, 0)
	assert.True(t, apperr.Is(err, "invalid_quantity"))

	_, err = svc.UpdateQuantity(context.Background(), 7, 2, 1)
	assert.True(t, apperr.Is(err, "item_not_found"))
}

func TestCartRemoveItem(t *testing.T) {
	svc := newCartFixture()

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(context.Background(), 7, 1)
	assert.True(t, apperr.Is(err, "item_not_found"))
}

func TestCartMergeSumsIntoExistingLines(t *testing.T) {
	svc := newCartFixture()

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	cart, err := svc.MergeCart(context.Background(), 7, []entity.CartLine{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
		{ProductID: 0, Quantity: 4}, // junk line from a stale client
		{ProductID: 2, Quantity: 0}, // clamped to 1
	})
	require.NoError(t, err)

	byProduct := map[int64]int{}
	for _, line := range cart.Items {
		byProduct[line.ProductID] = line.Quantity
	}
	assert.Equal(t, 5, byProduct[1])
	assert.Equal(t, 2, byProduct[2])
	assert.NotContains(t, byProduct, int64(0))
}

func TestCartMergeAfterSourceClearedIsNoOp(t *testing.T) {
	svc := newCartFixture()

	anonymous := []entity.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}
	cart, err := svc.MergeCart(context.Background(), 7, anonymous)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	// The client discards the anonymous cart after a successful merge; a
	// retried merge then carries nothing and changes nothing.
	again, err := svc.MergeCart(context.Background(), 7, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, cart.Items, again.Items)
}

func TestCartClearAndEmptyGet(t *testing.T) {
	svc := newCartFixture()

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), 7))

	cart, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}
