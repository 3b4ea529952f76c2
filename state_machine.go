package handoff

import (
	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidFlowTransition = "INVALID_AUTH_FLOW_TRANSITION"

// ErrInvalidFlowTransition is returned when the handoff flow is asked
// to move between states it does not connect.
var ErrInvalidFlowTransition = goerrors.New("invalid auth flow transition", goerrors.CategoryInternal).
	WithTextCode(textCodeInvalidFlowTransition).
	WithCode(goerrors.CodeInternal)

// FlowState is a stage of the authentication handoff.
type FlowState string

const (
	// FlowAnonymous is the initial state, no credential presented.
	FlowAnonymous FlowState = "anonymous"
	// FlowPending means a login request named a provider and the
	// credential is being resolved.
	FlowPending FlowState = "pending"
	// FlowAuthenticated means a session was established.
	FlowAuthenticated FlowState = "authenticated"
	// FlowFailed is the terminal branch of a failed attempt. A new
	// attempt starts over from anonymous.
	FlowFailed FlowState = "failed"
)

var flowTransitions = map[FlowState][]FlowState{
	FlowAnonymous:     {FlowPending},
	FlowPending:       {FlowAuthenticated, FlowFailed},
	FlowAuthenticated: {FlowAnonymous},
	FlowFailed:        {},
}

// AuthFlow tracks one authentication attempt through the handoff
// state machine. It has no retries, no backoff, and no timeout beyond
// the fixed session expiry window.
type AuthFlow struct {
	state FlowState
}

// NewAuthFlow starts a flow in the anonymous state.
func NewAuthFlow() *AuthFlow {
	return &AuthFlow{state: FlowAnonymous}
}

// State returns the current flow state.
func (f *AuthFlow) State() FlowState {
	return f.state
}

// Transition moves the flow to the target state, failing when the
// states are not connected.
func (f *AuthFlow) Transition(target FlowState) error {
	for _, allowed := range flowTransitions[f.state] {
		if allowed == target {
			f.state = target
			return nil
		}
	}

	return ErrInvalidFlowTransition.Clone().WithMetadata(map[string]any{
		"from": string(f.state),
		"to":   string(target),
	})
}

// CanTransition reports whether the flow may move to the target state.
func (f *AuthFlow) CanTransition(target FlowState) bool {
	for _, allowed := range flowTransitions[f.state] {
		if allowed == target {
			return true
		}
	}
	return false
}
