package handoff_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmhaka/handoff"
)

func TestAuthFlowTransitions(t *testing.T) {
	t.Run("starts anonymous", func(t *testing.T) {
		flow := handoff.NewAuthFlow()
		assert.Equal(t, handoff.FlowAnonymous, flow.State())
	})

	t.Run("happy path", func(t *testing.T) {
		flow := handoff.NewAuthFlow()

		require.NoError(t, flow.Transition(handoff.FlowPending))
		require.NoError(t, flow.Transition(handoff.FlowAuthenticated))
		assert.Equal(t, handoff.FlowAuthenticated, flow.State())

		// Logout returns the flow to anonymous.
		require.NoError(t, flow.Transition(handoff.FlowAnonymous))
	})

	t.Run("failure path", func(t *testing.T) {
		flow := handoff.NewAuthFlow()

		require.NoError(t, flow.Transition(handoff.FlowPending))
		require.NoError(t, flow.Transition(handoff.FlowFailed))
		assert.Equal(t, handoff.FlowFailed, flow.State())
	})

	t.Run("failed is terminal", func(t *testing.T) {
		flow := handoff.NewAuthFlow()

		require.NoError(t, flow.Transition(handoff.FlowPending))
		require.NoError(t, flow.Transition(handoff.FlowFailed))

		for _, target := range []handoff.FlowState{
			handoff.FlowAnonymous,
			handoff.FlowPending,
			handoff.FlowAuthenticated,
		} {
			assert.False(t, flow.CanTransition(target))
			assert.Error(t, flow.Transition(target))
		}
	})

	t.Run("skipping pending is rejected", func(t *testing.T) {
		flow := handoff.NewAuthFlow()

		err := flow.Transition(handoff.FlowAuthenticated)
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, "anonymous", richErr.Metadata["from"])
		assert.Equal(t, "authenticated", richErr.Metadata["to"])

		// The failed transition leaves the state untouched.
		assert.Equal(t, handoff.FlowAnonymous, flow.State())
	})

	t.Run("CanTransition mirrors the graph", func(t *testing.T) {
		flow := handoff.NewAuthFlow()

		assert.True(t, flow.CanTransition(handoff.FlowPending))
		assert.False(t, flow.CanTransition(handoff.FlowAuthenticated))
		assert.False(t, flow.CanTransition(handoff.FlowFailed))
	})
}
