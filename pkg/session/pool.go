package session

import "fmt"

// PoolEntry is one audited contribution to or draw from a communal pool.
type PoolEntry struct {
	Pool      string `json:"pool"`
	Character string `json:"character,omitempty"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// SharedPool tracks communal resources pooled across characters, such as a
// party-level soulcredit reserve. Balances never go negative.
type SharedPool struct {
	balances map[string]int
	entries  []PoolEntry
}

// NewSharedPool creates an empty pool set.
func NewSharedPool() *SharedPool {
	return &SharedPool{balances: make(map[string]int)}
}

// Contribute adds to a pool on behalf of a character.
func (sp *SharedPool) Contribute(pool, characterID string, amount int, reason string) {
	if amount <= 0 {
		return
	}
	sp.balances[pool] += amount
	sp.entries = append(sp.entries, PoolEntry{
		Pool: pool, Character: characterID, Amount: amount, Reason: reason,
	})
}

// Drain removes up to amount from a pool and returns what was actually
// drawn.
func (sp *SharedPool) Drain(pool string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("drain amount must be positive")
	}
	available := sp.balances[pool]
	drawn := amount
	if drawn > available {
		drawn = available
	}
	sp.balances[pool] = available - drawn
	sp.entries = append(sp.entries, PoolEntry{
		Pool: pool, Amount: -drawn, Reason: reason,
	})
	return drawn, nil
}

// Balance returns a pool's current balance.
func (sp *SharedPool) Balance(pool string) int {
	return sp.balances[pool]
}

// Entries returns the audit trail.
func (sp *SharedPool) Entries() []PoolEntry {
	return sp.entries
}
