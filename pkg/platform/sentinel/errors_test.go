package sentinel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitOpenIsUnavailable(t *testing.T) {
	assert.True(t, errors.Is(ErrCircuitOpen, ErrUnavailable))
	assert.False(t, errors.Is(ErrUnavailable, ErrCircuitOpen))
}
