package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodePolicyDenied, "recipient blacklisted")
		assert.True(t, HasCode(err, CodePolicyDenied))
		assert.False(t, HasCode(err, CodeInsufficientBalance))
	})

	t.Run("matches wrapped code through chain", func(t *testing.T) {
		inner := New(CodeNotFound, "transfer missing")
		outer := Wrap(inner, CodeInternal, "approval failed")
		assert.True(t, HasCode(outer, CodeNotFound))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeInvalidState, "not pending"))
		assert.True(t, HasCode(err, CodeInvalidState))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil in nil out", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
	})

	t.Run("preserves cause for errors.Is", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap(cause, CodeInternal, "append failed")
		assert.ErrorIs(t, err, cause)
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeSelfTransfer, CodeOf(New(CodeSelfTransfer, "from equals to")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))

	// Outermost code wins when layers disagree.
	err := Wrap(New(CodeNotFound, "missing"), CodeConflict, "raced")
	assert.Equal(t, CodeConflict, CodeOf(err))
}
