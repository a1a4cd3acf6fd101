// Package conversation holds the stage machine that drives a single invoice chat.
package conversation

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition accepts the utterance that fired it
type GuardFunc func(ctx context.Context, input string) bool

// Builder collects stage configurations and produces independent machines
type Builder interface {
	// Configure returns the configuration for a stage, creating it on first use
	Configure(stage Stage) StageConfiguration

	// Build creates a machine positioned at the given stage
	Build(initial Stage) StateMachine
}

// StageConfiguration declares the outgoing transitions of one stage
type StageConfiguration interface {
	// Permit allows trigger to move to target unconditionally
	Permit(trigger Trigger, target Stage) StageConfiguration

	// PermitIf allows trigger to move to target when guard accepts the input
	PermitIf(trigger Trigger, target Stage, guard GuardFunc) StageConfiguration
}

type transition struct {
	target Stage
	guard  GuardFunc
}

type stageConfig struct {
	stage       Stage
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[Stage]*stageConfig
}

type machine struct {
	current   Stage
	configs   map[Stage]*stageConfig
	observers []TransitionFunc
}

// NewBuilder creates an empty stage machine builder
func NewBuilder() Builder {
	return &builder{configs: make(map[Stage]*stageConfig)}
}

func (b *builder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}

	cfg, ok := b.configs[stage]
	if !ok {
		cfg = &stageConfig{stage: stage, transitions: make(map[Trigger][]transition)}
		b.configs[stage] = cfg
	}
	return cfg
}

// Build copies the configuration so later Configure calls do not leak into built machines
func (b *builder) Build(initial Stage) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial stage: %s", initial))
	}

	configs := make(map[Stage]*stageConfig, len(b.configs))
	for stage, cfg := range b.configs {
		transitions := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			transitions[trigger] = append([]transition(nil), ts...)
		}
		configs[stage] = &stageConfig{stage: stage, transitions: transitions}
	}

	return &machine{current: initial, configs: configs}
}

func (c *stageConfig) Permit(trigger Trigger, target Stage) StageConfiguration {
	return c.PermitIf(trigger, target, nil)
}

func (c *stageConfig) PermitIf(trigger Trigger, target Stage, guard GuardFunc) StageConfiguration {
	if !target.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", target))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{target: target, guard: guard})
	return c
}

func (m *machine) Stage() Stage {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger, input string) error {
	cfg, ok := m.configs[m.current]
	if !ok || len(cfg.transitions[trigger]) == 0 {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range cfg.transitions[trigger] {
		if t.guard != nil && !t.guard(ctx, input) {
			continue
		}

		from := m.current
		m.current = t.target
		for _, fn := range m.observers {
			fn(ctx, from, t.target, trigger)
		}
		return nil
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

func (m *machine) OnTransition(fn TransitionFunc) {
	if fn != nil {
		m.observers = append(m.observers, fn)
	}
}
