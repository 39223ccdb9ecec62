package bond

import (
	"errors"
	"testing"

	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/economy"
)

func newTestRegistry(t *testing.T, ids ...string) (*Registry, *economy.Ledger) {
	t.Helper()
	ledger := economy.NewLedger(nil)
	reg := NewRegistry(ledger, nil)
	for _, id := range ids {
		c, err := character.NewCharacter(id, id)
		if err != nil {
			t.Fatalf("NewCharacter(%s) error = %v", id, err)
		}
		ledger.Register(c)
		reg.RegisterCharacter(c)
	}
	return reg, ledger
}

func TestForm(t *testing.T) {
	reg, _ := newTestRegistry(t, "kael", "mira")

	b, err := reg.Form("kael", "mira", true, true)
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	if b.Level != 1 {
		t.Errorf("Level = %d, want 1", b.Level)
	}
	if b.Status != StatusActive {
		t.Errorf("Status = %q, want active", b.Status)
	}

	if _, err := reg.Form("kael", "mira", true, true); !errors.Is(err, ErrDuplicateBond) {
		t.Errorf("duplicate Form error = %v, want ErrDuplicateBond", err)
	}
	if _, err := reg.Form("kael", "kael", true, true); !errors.Is(err, ErrSelfBond) {
		t.Errorf("self Form error = %v, want ErrSelfBond", err)
	}
	if _, err := reg.Form("kael", "theo", true, false); !errors.Is(err, ErrConsentRequired) {
		t.Errorf("no-consent Form error = %v, want ErrConsentRequired", err)
	}
}

func TestBondLimits(t *testing.T) {
	reg, _ := newTestRegistry(t, "kael", "a", "b", "c", "d")

	for _, other := range []string{"a", "b", "c"} {
		if _, err := reg.Form("kael", other, true, true); err != nil {
			t.Fatalf("Form(kael, %s) error = %v", other, err)
		}
	}

	// fourth bond fails without mutating state
	if _, err := reg.Form("kael", "d", true, true); !errors.Is(err, ErrBondLimit) {
		t.Errorf("fourth Form error = %v, want ErrBondLimit", err)
	}
	if got := reg.Count("kael"); got != 3 {
		t.Errorf("Count(kael) = %d, want 3 after failed formation", got)
	}
}

func TestFreebornLimit(t *testing.T) {
	ledger := economy.NewLedger(nil)
	reg := NewRegistry(ledger, nil)

	free, _ := character.NewCharacter("sol", "Sol")
	free.Freeborn = true
	ledger.Register(free)
	reg.RegisterCharacter(free)

	for _, id := range []string{"a", "b"} {
		c, _ := character.NewCharacter(id, id)
		ledger.Register(c)
		reg.RegisterCharacter(c)
	}

	if _, err := reg.Form("sol", "a", true, true); err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	if _, err := reg.Form("sol", "b", true, true); !errors.Is(err, ErrBondLimit) {
		t.Errorf("second Freeborn Form error = %v, want ErrBondLimit", err)
	}
}

func TestAdvanceLevelCap(t *testing.T) {
	reg, _ := newTestRegistry(t, "kael", "mira")
	b, _ := reg.Form("kael", "mira", true, true)

	for i := 0; i < 5; i++ {
		if err := reg.AdvanceLevel(b); err != nil {
			t.Fatalf("AdvanceLevel() error = %v", err)
		}
	}
	if b.Level != MaxLevel {
		t.Errorf("Level = %d, want capped at %d", b.Level, MaxLevel)
	}
}

func TestDormancy(t *testing.T) {
	reg, ledger := newTestRegistry(t, "kael", "mira")
	b, _ := reg.Form("kael", "mira", true, true)

	if _, err := ledger.AddVoid("kael", 7, "corruption"); err != nil {
		t.Fatalf("AddVoid() error = %v", err)
	}
	reg.RefreshDormancy("kael")

	if b.Status != StatusDormant {
		t.Errorf("Status = %q, want dormant at void 7", b.Status)
	}

	// dormant bonds grant no bonuses
	if got := reg.AssistBonus("kael", "mira", true); got != RitualAssistSkilled {
		t.Errorf("AssistBonus with dormant bond = %d, want %d", got, RitualAssistSkilled)
	}
	if got := reg.SoakBonus("mira", "kael"); got != 0 {
		t.Errorf("SoakBonus with dormant bond = %d, want 0", got)
	}

	// void recovery reactivates
	if _, err := ledger.AddVoid("kael", -3, "cleansing"); err != nil {
		t.Fatalf("AddVoid() error = %v", err)
	}
	reg.RefreshDormancy("kael")
	if b.Status != StatusActive {
		t.Errorf("Status = %q, want active after recovery", b.Status)
	}
}

func TestBonuses(t *testing.T) {
	reg, _ := newTestRegistry(t, "kael", "mira", "theo")
	if _, err := reg.Form("kael", "mira", true, true); err != nil {
		t.Fatalf("Form() error = %v", err)
	}

	if got := reg.AssistBonus("kael", "mira", false); got != RitualAssistBonded {
		t.Errorf("bonded AssistBonus = %d, want %d", got, RitualAssistBonded)
	}
	if got := reg.AssistBonus("kael", "theo", true); got != RitualAssistSkilled {
		t.Errorf("skilled AssistBonus = %d, want %d", got, RitualAssistSkilled)
	}
	if got := reg.AssistBonus("kael", "theo", false); got != 0 {
		t.Errorf("untrained AssistBonus = %d, want 0", got)
	}
	if got := reg.SoakBonus("mira", "kael"); got != SoakBonded {
		t.Errorf("bonded SoakBonus = %d, want %d", got, SoakBonded)
	}
	if got := reg.SoakBonus("theo", "kael"); got != 0 {
		t.Errorf("unbonded SoakBonus = %d, want 0", got)
	}
}

func TestSacrifice(t *testing.T) {
	reg, _ := newTestRegistry(t, "kael", "mira")
	b, _ := reg.Form("kael", "mira", true, true)
	if err := reg.AdvanceLevel(b); err != nil {
		t.Fatalf("AdvanceLevel() error = %v", err)
	}

	boon, err := reg.Sacrifice(b)
	if err != nil {
		t.Fatalf("Sacrifice() error = %v", err)
	}
	if boon.Level != 2 {
		t.Errorf("boon Level = %d, want 2", boon.Level)
	}
	if reg.Count("kael") != 0 || reg.Count("mira") != 0 {
		t.Error("bond still present after sacrifice")
	}

	if _, err := reg.Sacrifice(b); !errors.Is(err, ErrBondNotFound) {
		t.Errorf("double Sacrifice error = %v, want ErrBondNotFound", err)
	}
}
