package services

import (
	"context"
	"fmt"

	"github.com/jwebster45206/yags-engine/pkg/dice"
	"github.com/jwebster45206/yags-engine/pkg/outcome"
	"github.com/jwebster45206/yags-engine/pkg/session"
)

// ScriptedAction is one entry in a scripted agent's playbook.
type ScriptedAction struct {
	Action     string      `json:"action"`
	Check      *dice.Check `json:"check,omitempty"`
	TargetHint string      `json:"target_hint,omitempty"`
}

// ScriptedAgent cycles through a fixed playbook, standing in for an
// LLM-backed controller in offline simulation runs.
type ScriptedAgent struct {
	Playbook []ScriptedAction
	next     int
}

// NewScriptedAgent creates an agent that cycles through the given actions.
// An empty playbook always passes.
func NewScriptedAgent(playbook []ScriptedAction) *ScriptedAgent {
	return &ScriptedAgent{Playbook: playbook}
}

// DeclareAction returns the next playbook entry, targeting the first visible
// target when the entry wants one.
func (s *ScriptedAgent) DeclareAction(_ context.Context, req DeclarationRequest) (session.Declaration, error) {
	if len(s.Playbook) == 0 {
		return session.Declaration{AgentID: req.AgentID, Pass: true}, nil
	}

	entry := s.Playbook[s.next%len(s.Playbook)]
	s.next++

	d := session.Declaration{
		AgentID: req.AgentID,
		Action:  entry.Action,
		Check:   entry.Check,
	}
	if entry.TargetHint != "" && len(req.Targets) > 0 {
		d.TargetID = req.Targets[0]
	}
	return d, nil
}

var _ AgentService = (*ScriptedAgent)(nil)

// ScriptedNarrator converts roll results into deterministic structured
// deltas, so offline runs exercise the full extraction and commit path
// without a live model.
type ScriptedNarrator struct{}

// NewScriptedNarrator creates a narrator with deterministic output.
func NewScriptedNarrator() *ScriptedNarrator {
	return &ScriptedNarrator{}
}

// Narrate produces narration plus structured deltas keyed off the outcome
// tier: success deals damage to the declared target, a fumble bleeds void
// onto the actor, and a plain failure advances the scene's pressure clock
// when one is declared in the action text.
func (s *ScriptedNarrator) Narrate(_ context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
	d := req.Declaration
	payload := outcome.ResolutionPayload{
		ActorID:    d.AgentID,
		TargetID:   d.TargetID,
		Resolution: req.Resolution,
		Structured: &outcome.StateDeltas{},
	}

	if req.Resolution == nil {
		payload.Narration = fmt.Sprintf("%s %s.", d.AgentID, d.Action)
		return payload, nil
	}

	switch {
	case req.Resolution.Fumble:
		payload.Narration = fmt.Sprintf("%s fumbles badly; the void claws at the opening.", d.AgentID)
		payload.Structured.VoidChanges = []outcome.VoidDelta{{
			Character: d.AgentID,
			Amount:    1,
			Reason:    "fumbled " + d.Action,
		}}
	case req.Resolution.Success:
		payload.Narration = fmt.Sprintf("%s succeeds: %s.", d.AgentID, d.Action)
		// Marker-bearing actions carry their own deltas, e.g.
		// "channel the ritual [CLOCK:uplink:+1]".
		if deltas, ok := outcome.ExtractMarkers(d.Action); ok {
			*payload.Structured = deltas
		}
		if d.TargetID != "" {
			amount := 1 + req.Resolution.Margin/5
			payload.Narration = fmt.Sprintf("%s strikes true against %s.", d.AgentID, d.TargetID)
			payload.Structured.Damage = append(payload.Structured.Damage, outcome.DamageDelta{
				Target: d.TargetID,
				Amount: amount,
			})
		}
	default:
		payload.Narration = fmt.Sprintf("%s fails to %s; the situation worsens.", d.AgentID, d.Action)
	}

	return payload, nil
}

var _ NarratorService = (*ScriptedNarrator)(nil)
