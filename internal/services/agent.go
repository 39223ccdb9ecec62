package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/yags-engine/pkg/clock"
	"github.com/jwebster45206/yags-engine/pkg/session"
)

// DeclarationRequest is the view of the session an agent receives when asked
// to declare. Targets carries anonymized ids when targeting is masked, so
// the agent never learns real combatant identities.
type DeclarationRequest struct {
	SessionID uuid.UUID      `json:"session_id"`
	Round     int            `json:"round"`
	AgentID   string         `json:"agent_id"`
	Targets   []string       `json:"targets,omitempty"`
	Clocks    []*clock.Clock `json:"clocks,omitempty"`
}

// AgentService defines the interface for a player or enemy controller that
// declares one action per round. Implementations are typically LLM-backed;
// the runner converts a timeout or error into a pass.
type AgentService interface {
	// DeclareAction produces the agent's declaration for the round
	DeclareAction(ctx context.Context, req DeclarationRequest) (session.Declaration, error)
}

// NarratorService narrates resolved actions and supplies state deltas.
// session.Narrator is the orchestrator-side contract; this alias exists so
// service wiring reads uniformly.
type NarratorService = session.Narrator
