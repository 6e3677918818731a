package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReference(t *testing.T) {
	assert.Equal(t, "REF001", NormalizeReference("  ref001 "))
	assert.Equal(t, "VIS-M6×20", NormalizeReference("vis-m6×20"))
	assert.Equal(t, "ÉCROU", NormalizeReference("écrou"))
	assert.Equal(t, "", NormalizeReference("   "))
}

func TestMovementConsistent(t *testing.T) {
	ok := Movement{QuantityBefore: 10, QuantityDelta: -3, QuantityAfter: 7}
	assert.True(t, ok.Consistent())

	bad := Movement{QuantityBefore: 10, QuantityDelta: -3, QuantityAfter: 8}
	assert.False(t, bad.Consistent())

	negative := Movement{QuantityBefore: 2, QuantityDelta: -3, QuantityAfter: -1}
	assert.False(t, negative.Consistent())
}

func TestMovementKindIsValid(t *testing.T) {
	assert.True(t, MovementStockRemove.IsValid())
	assert.False(t, MovementKind("AJOUT").IsValid())
}

func TestArticleIsLowStock(t *testing.T) {
	assert.True(t, (&Article{Quantity: 1, MinimumQuantity: 2}).IsLowStock())
	assert.False(t, (&Article{Quantity: 2, MinimumQuantity: 2}).IsLowStock())
}
