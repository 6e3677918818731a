package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage_WrapsOnlyInfrastructureErrors(t *testing.T) {
	assert.Nil(t, Storage("op", nil))
	assert.Same(t, ErrNotFound, Storage("op", ErrNotFound))

	err := Storage("insert movement", errors.New("disk I/O error"))
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.Contains(t, err.Error(), "insert movement")

	again := Storage("commit", err)
	assert.Equal(t, err, again, "no se debe envolver dos veces")

	timeout := Storage("commit", context.DeadlineExceeded)
	assert.ErrorIs(t, timeout, ErrStorageFailure)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("ajuste: %w", &InsufficientStockError{Reference: "A1", Available: 3, Requested: 5})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var ise *InsufficientStockError
	assert.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Available)

	assert.ErrorIs(t, InvalidInput("reference", "vacía"), ErrInvalidInput)
	assert.ErrorIs(t, &MigrationError{Step: "add column", Err: errors.New("x")}, ErrMigrationFailure)
}

func TestIsBusinessRule(t *testing.T) {
	assert.True(t, IsBusinessRule(ErrAlreadyExists))
	assert.True(t, IsBusinessRule(ErrInvalidAmount))
	assert.True(t, IsBusinessRule(&InsufficientStockError{}))
	assert.False(t, IsBusinessRule(&StorageError{Op: "x", Err: errors.New("y")}))
	assert.False(t, IsBusinessRule(ErrMigrationFailure))
}
