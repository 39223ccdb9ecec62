package session

import "errors"

// Phase is the orchestrator's current position in the round state machine:
// Declare -> Resolve -> Synthesize -> (next round) Declare | Terminal.
type Phase int

const (
	// PhaseDeclare accepts one declaration per eligible agent.
	PhaseDeclare Phase = iota
	// PhaseResolve processes declarations in initiative order.
	PhaseResolve
	// PhaseSynthesize awaits the round summary.
	PhaseSynthesize
	// PhaseIdle sits between rounds; only BeginRound is legal.
	PhaseIdle
	// PhaseTerminal means the session has ended.
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseDeclare:
		return "declare"
	case PhaseResolve:
		return "resolve"
	case PhaseSynthesize:
		return "synthesize"
	case PhaseIdle:
		return "idle"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// ErrPhaseViolation indicates an operation was attempted in the wrong phase.
// This is a contract violation in the caller, not bad data, and is fatal to
// the session.
var ErrPhaseViolation = errors.New("phase violation")

// ErrUnknownAgent indicates a declaration from an unregistered combatant.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrDuplicateDeclaration indicates an agent declared twice in one round.
var ErrDuplicateDeclaration = errors.New("agent already declared this round")

// ErrIncompleteDeclarations indicates resolution was requested before every
// eligible agent declared or passed.
var ErrIncompleteDeclarations = errors.New("declare phase incomplete")

// Outcome is the terminal result of a session.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDefeat    Outcome = "defeat"
	OutcomeMaxRounds Outcome = "max_rounds"
	// OutcomeNone means the session is still running.
	OutcomeNone Outcome = ""
)
