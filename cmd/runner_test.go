package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saeedzahedi/pingcheck/core"
)

// TestNewRunner tests if a runner is properly initialized
func TestNewRunner(t *testing.T) {
	r, err := newRunner("127.0.0.1", core.DefaultSettings())
	assert.NoError(t, err)

	assert.NotNil(t, r.session)
	assert.Empty(t, r.endch)
	assert.Empty(t, r.sigch)
}

// TestNewRunnerInvalidTarget tests that a bad target fails construction
func TestNewRunnerInvalidTarget(t *testing.T) {
	r, err := newRunner("not-an-address", core.DefaultSettings())
	assert.Error(t, err)
	assert.Nil(t, r)
}
