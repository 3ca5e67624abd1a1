package appstate

import (
	"context"
	"fmt"

	"github.com/goliatone/go-appstate/pkg/activity"
)

// WithActivityHooks attaches activity hooks to the store. Nil hooks are
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Compact()
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides activity enablement and channel.
func WithActivityConfig(cfg ActivityConfig) Option {
	return func(sc *storeConfig) {
		sc.activity = cfg
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return s.cfg.activityHooks.Compact()
}

// Emitter exposes the store emitter so collaborators (the gallery, the
// history navigator) publish on the same hooks and channel.
func (s *Store) Emitter() *activity.Emitter {
	if s == nil {
		return nil
	}
	return s.emitter
}

func newEmitter(cfg storeConfig) *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: cfg.activity.Enabled,
		Channel: cfg.activity.Channel,
	})
}

// eventInput fills the identity fields shared by every store event.
func (s *Store) eventInput(tree *Tree, transitionID string) activity.StateEventInput {
	input := activity.StateEventInput{
		SessionID:    s.cfg.sessionID,
		TransitionID: transitionID,
	}
	if tree != nil && tree.User != nil {
		input.UserID = tree.User.ID
		input.ActorID = tree.User.ID
	}
	return input
}

func (s *Store) emit(ctx context.Context, event activity.Event) error {
	if !s.emitter.Enabled() {
		return nil
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrActivity, event.Verb, err)
	}
	return nil
}
