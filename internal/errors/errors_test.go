package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := NotFound("municipality", "atlantis")
		assert.True(t, IsType(err, TypeNotFound))
		assert.False(t, IsType(err, TypeInvalidInput))
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := fmt.Errorf("building report: %w", InsufficientData("tuckahoe"))
		assert.True(t, IsType(err, TypeInsufficientData))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsType(stderrors.New("boom"), TypeNotFound))
		assert.False(t, IsType(nil, TypeNotFound))
	})
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("calc: %w", InvalidInput("value must be positive, got %s", "-1"))
	assert.True(t, stderrors.Is(err, New(TypeInvalidInput, "")))
	assert.False(t, stderrors.Is(err, New(TypeNotFound, "")))
}

func TestErrorMessage(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Storage("saving dataset", cause)

	assert.Equal(t, "[STORAGE_ERROR] saving dataset: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[NOT_FOUND] municipality not found: x", NotFound("municipality", "x").Error())
	assert.Equal(t, "x", NotFound("municipality", "x").Context["municipality"])
}
