package wbrefresh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepError(t *testing.T) {
	err := NewStepError("circana", "open", ErrFileNotFound)

	assert.Equal(t, `circana step "open" failed: file not found`, err.Error())
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.False(t, errors.Is(err, ErrHostUnavailable))
}
