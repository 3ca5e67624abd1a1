package appstate

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-appstate/internal/fields"
	"github.com/goliatone/go-appstate/pkg/activity"
)

// set assigns patch directly, skipping retention and the auditor. Session
// mutators use it; the patch must already be typed.
func (s *Store) set(patch Patch) ([]Change, Tree, string) {
	changes, tree, id, _ := s.update(func(*Tree) (Patch, error) { return patch, nil })
	return changes, tree, id
}

// update builds a patch from the current tree and assigns it in the same
// critical section, so concurrent mutators cannot lose each other's writes.
func (s *Store) update(build func(tree *Tree) (Patch, error)) ([]Change, Tree, string, error) {
	id := s.cfg.newID()
	start := time.Now()
	s.mu.Lock()
	patch, err := build(&s.tree)
	if err != nil {
		s.mu.Unlock()
		return nil, Tree{}, id, err
	}
	changes := s.assign(patch, id, TransitionNone, PhaseCommit)
	page := s.tree.Page
	tree := s.eventTree()
	s.mu.Unlock()

	s.subs.notify(changes)
	s.logTransition(TransitionLogEvent{
		ID:       id,
		Kind:     TransitionNone,
		Phase:    PhaseCommit,
		FromPage: page,
		ToPage:   page,
		Changed:  changedFields(changes),
		Duration: time.Since(start),
	})
	return changes, tree, id, nil
}

// SignIn stores user as the signed-in shopper.
func (s *Store) SignIn(ctx context.Context, user User) error {
	changes, tree, id := s.set(Patch{fieldUser: &user})
	if len(changes) == 0 {
		return nil
	}
	return s.emit(ctx, activity.BuildSignedInEvent(s.eventInput(&tree, id)))
}

// SignOut clears the signed-in shopper.
func (s *Store) SignOut(ctx context.Context) error {
	changes, tree, id := s.set(Patch{fieldUser: (*User)(nil)})
	if len(changes) == 0 {
		return nil
	}
	input := s.eventInput(&tree, id)
	if previous, ok := changes[0].Old.(*User); ok && previous != nil {
		input.UserID = previous.ID
		input.ActorID = previous.ID
	}
	return s.emit(ctx, activity.BuildSignedOutEvent(input))
}

// SetUser replaces the user without emitting sign in or out events.
func (s *Store) SetUser(user *User) {
	s.set(Patch{fieldUser: user})
}

// UpdateCart replaces the cart.
func (s *Store) UpdateCart(ctx context.Context, cart Cart) error {
	changes, tree, id := s.set(Patch{fieldCart: cart})
	if len(changes) == 0 {
		return nil
	}
	input := s.eventInput(&tree, id)
	input.Page = tree.Page
	input.Metadata = map[string]any{
		"lines":    len(cart.Items),
		"quantity": cart.Quantity(),
	}
	return s.emit(ctx, activity.BuildCartUpdatedEvent(input))
}

// SetMenuOpen opens or closes the navigation menu.
func (s *Store) SetMenuOpen(open bool) {
	s.update(func(tree *Tree) (Patch, error) {
		menu := fields.Clone(tree.Menu)
		menu.Open = open
		return Patch{fieldMenu: menu}, nil
	})
}

// SelectTab selects the tab at index.
func (s *Store) SelectTab(index int) error {
	_, _, _, err := s.update(func(tree *Tree) (Patch, error) {
		var tabs Tabs
		if tree.Tabs != nil {
			tabs = fields.Clone(*tree.Tabs)
		}
		if index < 0 || (len(tabs.Items) > 0 && index >= len(tabs.Items)) {
			return nil, fmt.Errorf("%w: tab %d of %d", ErrOutOfRange, index, len(tabs.Items))
		}
		tabs.Selected = index
		return Patch{fieldTabs: &tabs}, nil
	})
	return err
}

// ClearProductThumbnail drops the thumbnail shown while a product loads.
func (s *Store) ClearProductThumbnail() {
	s.set(Patch{fieldThumbnail: ""})
}
