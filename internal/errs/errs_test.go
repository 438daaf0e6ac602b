package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchwave/maintsim/internal/errs"
)

func TestMalformedDataset(t *testing.T) {
	err := errs.MalformedDataset(map[string]any{"key": "servers"}, "missing required key %q", "servers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed_dataset")
	assert.Contains(t, err.Error(), `missing required key "servers"`)
}

func TestIsMatchesByKind(t *testing.T) {
	a := errs.InvariantViolated(nil, "demand drift")
	b := errs.InvariantViolated(map[string]any{"server_id": 1}, "different message")
	c := errs.UnknownStrategy("bogus")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestNoProgressMessage(t *testing.T) {
	err := errs.NoProgress(3, 2)
	assert.Contains(t, err.Error(), "no_progress")
	assert.Equal(t, 3, err.Details["step"])
	assert.Equal(t, 2, err.Details["consecutive_steps"])
}
