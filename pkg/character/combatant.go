package character

// Kind discriminates combatant variants. It replaces duck-typed
// attribute probing with an explicit tag.
type Kind int

const (
	KindPlayer Kind = iota
	KindEnemy
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Combatant is the sealed view of anything that can participate in combat.
// The only implementations are CharacterState (players) and Enemy.
type Combatant interface {
	CombatantID() string
	CombatantKind() Kind
	IsActive() bool
}
