package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	plain := errors.New("failed to open database: disk I/O error")
	assert.Equal(t, plain.Error(), errorMessage(plain))

	userErr := common.NewUserError("no analysis stored; run 'leakwatch analyze' first", common.ErrNotFound)
	assert.Equal(t, "no analysis stored; run 'leakwatch analyze' first", errorMessage(userErr))

	// The friendly message survives further wrapping.
	wrapped := fmt.Errorf("report: %w", userErr)
	assert.Equal(t, "no analysis stored; run 'leakwatch analyze' first", errorMessage(wrapped))
}
