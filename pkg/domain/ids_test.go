package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "provena/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePrincipalID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePrincipalID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseItemID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParsePrincipalID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, PrincipalID(raw), id)
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, PrincipalID(uuid.Nil).IsNil())
	assert.False(t, PrincipalID(uuid.New()).IsNil())
	assert.True(t, ItemID(uuid.Nil).IsNil())
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	principalID := PrincipalID(uuid.New())
	itemID := ItemID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ PrincipalID = itemID  // compile error
	// var _ ItemID = principalID  // compile error

	assert.NotEqual(t, uuid.UUID(principalID), uuid.UUID(itemID))
}
