package db

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusConfirmed))
	assert.True(t, OrderStatusConfirmed.CanTransition(OrderStatusPacked))
	assert.True(t, OrderStatusPacked.CanTransition(OrderStatusDelivered))
	assert.True(t, OrderStatusPacked.CanTransition(OrderStatusCancelled))

	assert.False(t, OrderStatusPending.CanTransition(OrderStatusDelivered))
	assert.False(t, OrderStatusDelivered.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusConfirmed))

	assert.True(t, OrderStatusDelivered.Final())
	assert.False(t, OrderStatusPacked.Final())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("packed")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPacked, s)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestVariantsColumn(t *testing.T) {
	orig := decimal.NewFromInt(55)
	v := Variants{{Weight: Weight300g, Price: decimal.NewFromInt(45), OriginalPrice: &orig}}

	raw, err := v.Value()
	require.NoError(t, err)

	var back Variants
	require.NoError(t, back.Scan(raw))
	require.Len(t, back, 1)
	assert.True(t, back[0].Price.Equal(decimal.NewFromInt(45)))
	assert.True(t, back[0].OriginalPrice.Equal(orig))

	found, ok := back.Find(Weight300g)
	assert.True(t, ok)
	assert.Equal(t, Weight300g, found.Weight)
	_, ok = back.Find(Weight1kg)
	assert.False(t, ok)

	empty, err := Variants(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), empty)
}

func TestUserIsFirstOrder(t *testing.T) {
	u := &User{}
	assert.True(t, u.IsFirstOrder())
	u.TotalPurchases = decimal.NewFromInt(120)
	assert.False(t, u.IsFirstOrder())
}
