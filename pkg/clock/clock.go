// Package clock implements named scene clocks: bounded progress counters
// whose fill dispatches a scripted consequence exactly once.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Tick bounds for a scene clock.
const (
	MinTicks = 3
	MaxTicks = 12
)

// ErrClockNotFound indicates an advance/regress referenced an unknown clock.
var ErrClockNotFound = errors.New("clock not found")

// ErrDuplicateClock indicates a clock name is already registered.
var ErrDuplicateClock = errors.New("clock already exists")

// ErrInvalidTicks indicates max ticks outside [3,12].
var ErrInvalidTicks = errors.New("max ticks must be between 3 and 12")

// ConsequenceKind identifies the machine-parseable marker embedded in a
// filled clock's consequence text.
type ConsequenceKind string

const (
	ConsequenceSpawnEnemy   ConsequenceKind = "SPAWN_ENEMY"
	ConsequenceAdvanceStory ConsequenceKind = "ADVANCE_STORY"
	ConsequenceNewClock     ConsequenceKind = "NEW_CLOCK"
	ConsequenceNone         ConsequenceKind = ""
)

var markerRe = regexp.MustCompile(`\[(SPAWN_ENEMY|ADVANCE_STORY|NEW_CLOCK):([^\]]*)\]`)

// Consequence is a parsed consequence marker.
type Consequence struct {
	Kind ConsequenceKind `json:"kind"`
	Arg  string          `json:"arg"`
	Raw  string          `json:"raw"`
}

// ParseConsequence extracts the first marker from consequence text.
// Text without a marker yields ConsequenceNone with the raw text preserved.
func ParseConsequence(text string) Consequence {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return Consequence{Kind: ConsequenceNone, Raw: text}
	}
	return Consequence{
		Kind: ConsequenceKind(m[1]),
		Arg:  strings.TrimSpace(m[2]),
		Raw:  text,
	}
}

// Semantics is the narrative meaning of a clock's movement.
type Semantics struct {
	AdvanceMeans      string `json:"advance_means"`
	RegressMeans      string `json:"regress_means"`
	FilledConsequence string `json:"filled_consequence"`
}

// Clock is a single scene clock.
type Clock struct {
	Name      string    `json:"name"`
	Value     int       `json:"value"`
	MaxTicks  int       `json:"max_ticks"`
	Semantics Semantics `json:"semantics"`

	// dispatched latches after a fill so the consequence fires exactly once.
	// An explicit regress below max resets it, allowing a re-fill to
	// re-dispatch.
	dispatched bool
}

// Filled reports whether the clock is at max.
func (c *Clock) Filled() bool { return c.Value >= c.MaxTicks }

// Update is the result of an advance or regress.
type Update struct {
	Name     string `json:"clock_name"`
	Old      int    `json:"old_value"`
	New      int    `json:"new_value"`
	Max      int    `json:"maximum"`
	Filled   bool   `json:"filled"`
	Reason   string `json:"reason,omitempty"`
	Delta    int    `json:"delta"`
	Regress  bool   `json:"regress,omitempty"`
	// Consequence is set only on the tick that dispatches the fill.
	Consequence *Consequence `json:"consequence,omitempty"`
}

// Registry holds the scene clocks for one session.
type Registry struct {
	clocks map[string]*Clock
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty clock registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clocks: make(map[string]*Clock),
		logger: logger,
	}
}

// Add registers a new clock at value 0.
func (r *Registry) Add(name string, maxTicks int, sem Semantics) (*Clock, error) {
	if name == "" {
		return nil, fmt.Errorf("clock name cannot be empty")
	}
	if maxTicks < MinTicks || maxTicks > MaxTicks {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTicks, maxTicks)
	}
	if _, exists := r.clocks[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClock, name)
	}

	c := &Clock{Name: name, MaxTicks: maxTicks, Semantics: sem}
	r.clocks[name] = c
	r.order = append(r.order, name)

	if r.logger != nil {
		r.logger.Debug("Clock added", "clock", name, "max_ticks", maxTicks)
	}
	return c, nil
}

// Get returns a clock by name.
func (r *Registry) Get(name string) (*Clock, error) {
	c, ok := r.clocks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClockNotFound, name)
	}
	return c, nil
}

// All returns the clocks in registration order.
func (r *Registry) All() []*Clock {
	out := make([]*Clock, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.clocks[name])
	}
	return out
}

// Advance moves a clock forward, clamping at max. The first tick that
// reaches max dispatches the filled consequence; re-advancing an already
// filled clock updates nothing and dispatches nothing.
func (r *Registry) Advance(name string, delta int, reason string) (Update, error) {
	c, ok := r.clocks[name]
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrClockNotFound, name)
	}
	if delta < 0 {
		delta = -delta
	}

	old := c.Value
	c.Value += delta
	if c.Value > c.MaxTicks {
		c.Value = c.MaxTicks
	}

	u := Update{
		Name:   name,
		Old:    old,
		New:    c.Value,
		Max:    c.MaxTicks,
		Filled: c.Filled(),
		Reason: reason,
		Delta:  delta,
	}

	if c.Filled() && !c.dispatched {
		c.dispatched = true
		cons := ParseConsequence(c.Semantics.FilledConsequence)
		u.Consequence = &cons
		if r.logger != nil {
			r.logger.Info("Clock filled",
				"clock", name,
				"value", c.Value,
				"consequence", string(cons.Kind))
		}
	}

	return u, nil
}

// Regress moves a clock backward, clamping at 0. Dropping below max re-arms
// the fill dispatch.
func (r *Registry) Regress(name string, delta int, reason string) (Update, error) {
	c, ok := r.clocks[name]
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrClockNotFound, name)
	}
	if delta < 0 {
		delta = -delta
	}

	old := c.Value
	c.Value -= delta
	if c.Value < 0 {
		c.Value = 0
	}
	if c.Value < c.MaxTicks {
		c.dispatched = false
	}

	return Update{
		Name:    name,
		Old:     old,
		New:     c.Value,
		Max:     c.MaxTicks,
		Filled:  c.Filled(),
		Reason:  reason,
		Delta:   delta,
		Regress: true,
	}, nil
}
