package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/yags-engine/pkg/outcome"
	"github.com/jwebster45206/yags-engine/pkg/session"
)

// MockAgent is a mock implementation of AgentService for testing
type MockAgent struct {
	DeclareActionFunc func(ctx context.Context, req DeclarationRequest) (session.Declaration, error)

	// Track calls for testing
	DeclareActionCalls []DeclarationRequest

	mu sync.Mutex // protects all fields above
}

// NewMockAgent creates a new mock agent
func NewMockAgent() *MockAgent {
	return &MockAgent{
		DeclareActionCalls: make([]DeclarationRequest, 0),
	}
}

// DeclareAction mocks action declaration
func (m *MockAgent) DeclareAction(ctx context.Context, req DeclarationRequest) (session.Declaration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeclareActionCalls = append(m.DeclareActionCalls, req)

	if m.DeclareActionFunc != nil {
		return m.DeclareActionFunc(ctx, req)
	}

	// Default behavior - pass
	return session.Declaration{AgentID: req.AgentID, Pass: true}, nil
}

// SetDeclareActionError sets up the mock to return an error on DeclareAction
func (m *MockAgent) SetDeclareActionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeclareActionFunc = func(ctx context.Context, req DeclarationRequest) (session.Declaration, error) {
		return session.Declaration{}, err
	}
}

// Reset clears all call tracking
func (m *MockAgent) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeclareActionCalls = make([]DeclarationRequest, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockAgent) GetCalls() []DeclarationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]DeclarationRequest, len(m.DeclareActionCalls))
	copy(calls, m.DeclareActionCalls)
	return calls
}

var _ AgentService = (*MockAgent)(nil)

// MockNarrator is a mock implementation of NarratorService for testing
type MockNarrator struct {
	NarrateFunc func(ctx context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error)

	// Track calls for testing
	NarrateCalls []session.NarrationRequest

	mu sync.Mutex // protects all fields above
}

// NewMockNarrator creates a new mock narrator
func NewMockNarrator() *MockNarrator {
	return &MockNarrator{
		NarrateCalls: make([]session.NarrationRequest, 0),
	}
}

// Narrate mocks narration
func (m *MockNarrator) Narrate(ctx context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.NarrateCalls = append(m.NarrateCalls, req)

	if m.NarrateFunc != nil {
		return m.NarrateFunc(ctx, req)
	}

	// Default behavior - empty structured payload
	return outcome.ResolutionPayload{
		ActorID:    req.Declaration.AgentID,
		Narration:  "Mock narration",
		Resolution: req.Resolution,
		Structured: &outcome.StateDeltas{},
	}, nil
}

// SetNarrateError sets up the mock to return an error on Narrate
func (m *MockNarrator) SetNarrateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NarrateFunc = func(ctx context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
		return outcome.ResolutionPayload{}, err
	}
}

// Reset clears all call tracking
func (m *MockNarrator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NarrateCalls = make([]session.NarrationRequest, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockNarrator) GetCalls() []session.NarrationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]session.NarrationRequest, len(m.NarrateCalls))
	copy(calls, m.NarrateCalls)
	return calls
}

var _ NarratorService = (*MockNarrator)(nil)
