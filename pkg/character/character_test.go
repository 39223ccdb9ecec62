package character

import "testing"

func TestNewCharacter(t *testing.T) {
	c, err := NewCharacter("kael", "Kael")
	if err != nil {
		t.Fatalf("NewCharacter() error = %v", err)
	}
	if c.BondLimit() != BondLimitStandard {
		t.Errorf("BondLimit() = %d, want %d", c.BondLimit(), BondLimitStandard)
	}

	c.Freeborn = true
	if c.BondLimit() != BondLimitFreeborn {
		t.Errorf("Freeborn BondLimit() = %d, want %d", c.BondLimit(), BondLimitFreeborn)
	}

	if _, err := NewCharacter("", "nameless"); err == nil {
		t.Error("NewCharacter with empty id should fail")
	}
}

func TestValidate(t *testing.T) {
	c, _ := NewCharacter("kael", "Kael")
	c.VoidScore = 11
	if err := c.Validate(); err == nil {
		t.Error("Validate() should reject void score 11")
	}

	c.VoidScore = 10
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil for void score 10", err)
	}

	c.Position = Position("orbital")
	if err := c.Validate(); err == nil {
		t.Error("Validate() should reject unknown position")
	}
}

func TestSkillMissingVsZero(t *testing.T) {
	c, _ := NewCharacter("kael", "Kael")
	c.Skills["stealth"] = 0

	if _, ok := c.Skill("stealth"); !ok {
		t.Error("Skill(stealth) ok = false, want true for skill at 0")
	}
	if _, ok := c.Skill("piloting"); ok {
		t.Error("Skill(piloting) ok = true, want false for missing skill")
	}
}

func TestConditions(t *testing.T) {
	c, _ := NewCharacter("kael", "Kael")
	c.AddCondition(Condition{Name: "dazed", Duration: 2})
	c.AddCondition(Condition{Name: "dazed", Duration: 5}) // duplicate ignored
	c.AddCondition(Condition{Name: "marked", Duration: -1})

	if len(c.Conditions) != 2 {
		t.Fatalf("len(Conditions) = %d, want 2", len(c.Conditions))
	}

	c.TickConditions()
	// dazed 2 -> 1, marked permanent
	if len(c.Conditions) != 2 {
		t.Fatalf("after tick len(Conditions) = %d, want 2", len(c.Conditions))
	}

	c.TickConditions()
	// dazed expires, marked remains
	if len(c.Conditions) != 1 || c.Conditions[0].Name != "marked" {
		t.Fatalf("after second tick Conditions = %+v, want only marked", c.Conditions)
	}

	c.RemoveCondition("marked")
	if len(c.Conditions) != 0 {
		t.Errorf("after remove len(Conditions) = %d, want 0", len(c.Conditions))
	}
}

func TestApplyDamageFloorsAtZero(t *testing.T) {
	c, _ := NewCharacter("kael", "Kael")
	c.Health = 3
	c.ApplyDamage(5)
	if c.Health != 0 {
		t.Errorf("Health = %d, want 0", c.Health)
	}
	if c.IsActive() {
		t.Error("IsActive() = true, want false at 0 health")
	}
}

func TestEnemy(t *testing.T) {
	spec := &EnemySpec{
		ID:   "husk_1",
		Name: "Void Husk",
		HP:   6,
		AC:   12,
		Attributes: map[string]int{
			"agility": 3,
		},
	}

	e, err := NewEnemy(spec)
	if err != nil {
		t.Fatalf("NewEnemy() error = %v", err)
	}

	if e.CombatantKind() != KindEnemy {
		t.Errorf("CombatantKind() = %v, want KindEnemy", e.CombatantKind())
	}
	if e.Agility() != 3 {
		t.Errorf("Agility() = %d, want 3", e.Agility())
	}

	if defeated := e.ApplyDamage(4); defeated {
		t.Error("ApplyDamage(4) defeated = true, want false at 6 hp")
	}
	if defeated := e.ApplyDamage(4); !defeated {
		t.Error("ApplyDamage(4) defeated = false, want true at 2 hp")
	}
	if e.IsActive() {
		t.Error("IsActive() = true after defeat")
	}
	if e.HP() != 0 {
		t.Errorf("HP() = %d, want 0 after defeat", e.HP())
	}

	if _, err := NewEnemy(nil); err == nil {
		t.Error("NewEnemy(nil) should fail")
	}
	if _, err := NewEnemy(&EnemySpec{ID: "x", HP: 0}); err == nil {
		t.Error("NewEnemy with 0 hp should fail")
	}
}
