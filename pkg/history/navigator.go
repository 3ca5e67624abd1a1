package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	appstate "github.com/goliatone/go-appstate"
	"github.com/google/uuid"
)

// Applier is the part of the state store the navigator drives. Settled
// returns the tree with any deferred pop phase already applied, so a page
// left before that phase ran is still saved whole.
type Applier interface {
	ApplyState(ctx context.Context, patch appstate.Patch, kind appstate.Transition) error
	Settled() appstate.Tree
}

// Entry is one position in the session history.
type Entry struct {
	ID       string
	Location string
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithStore sets the snapshot store. Defaults to a MemoryStore.
func WithStore(store Store[appstate.Patch]) NavigatorOption {
	return func(n *Navigator) {
		if store != nil {
			n.store = store
		}
	}
}

// WithSession sets the session the snapshots are stored under.
func WithSession(id string) NavigatorOption {
	return func(n *Navigator) {
		if id != "" {
			n.session = id
		}
	}
}

// WithClock overrides the time source used for snapshot metadata.
func WithClock(now func() time.Time) NavigatorOption {
	return func(n *Navigator) {
		if now != nil {
			n.now = now
		}
	}
}

// Navigator is a history stack that feeds the store full page snapshots on
// back and forward navigation.
type Navigator struct {
	mu      sync.Mutex
	app     Applier
	store   Store[appstate.Patch]
	session string
	now     func() time.Time
	entries []Entry
	cursor  int
}

// NewNavigator starts a history whose first entry is location.
func NewNavigator(app Applier, location string, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		app:     app,
		store:   NewMemoryStore[appstate.Patch](),
		session: uuid.NewString(),
		now:     time.Now,
		entries: []Entry{{ID: uuid.NewString(), Location: location}},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Push navigates forward to location, discarding any forward entries.
func (n *Navigator) Push(ctx context.Context, location string, patch appstate.Patch) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.saveCurrent(ctx); err != nil {
		return err
	}
	if err := n.app.ApplyState(ctx, patch, appstate.TransitionPush); err != nil {
		return fmt.Errorf("history: push %q: %w", location, err)
	}
	n.entries = append(n.entries[:n.cursor+1], Entry{ID: uuid.NewString(), Location: location})
	n.cursor++
	return nil
}

// Replace swaps the current entry for location.
func (n *Navigator) Replace(ctx context.Context, location string, patch appstate.Patch) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.app.ApplyState(ctx, patch, appstate.TransitionReplace); err != nil {
		return fmt.Errorf("history: replace %q: %w", location, err)
	}
	n.entries[n.cursor].Location = location
	return nil
}

// Back pops to the previous entry.
func (n *Navigator) Back(ctx context.Context) error {
	return n.Go(ctx, -1)
}

// Forward pops to the next entry.
func (n *Navigator) Forward(ctx context.Context) error {
	return n.Go(ctx, 1)
}

// Go moves delta entries and replays the destination snapshot as a POP.
func (n *Navigator) Go(ctx context.Context, delta int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	target := n.cursor + delta
	if delta == 0 || target < 0 || target >= len(n.entries) {
		return ErrNoHistory
	}
	if err := n.saveCurrent(ctx); err != nil {
		return err
	}

	entry := n.entries[target]
	ref := Ref{Session: n.session, Entry: entry.ID}
	patch, _, ok, err := n.store.Load(ctx, ref)
	if err != nil {
		return fmt.Errorf("history: load %q: %w", entry.Location, err)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrSnapshotMissing, entry.Location)
	}
	if err := n.app.ApplyState(ctx, patch.Clone(), appstate.TransitionPop); err != nil {
		return fmt.Errorf("history: pop to %q: %w", entry.Location, err)
	}
	n.cursor = target
	return nil
}

// saveCurrent stores the settled tree as the snapshot of the entry being
// left. Callers hold n.mu.
func (n *Navigator) saveCurrent(ctx context.Context) error {
	tree := n.app.Settled()
	patch, err := appstate.TreePatch(tree)
	if err != nil {
		return fmt.Errorf("history: snapshot: %w", err)
	}
	entry := n.entries[n.cursor]
	meta := Meta{
		SnapshotID: uuid.NewString(),
		Location:   entry.Location,
		Page:       tree.Page,
		UpdatedAt:  n.now(),
	}
	if _, err := n.store.Save(ctx, Ref{Session: n.session, Entry: entry.ID}, patch, meta); err != nil {
		return fmt.Errorf("history: save %q: %w", entry.Location, err)
	}
	return nil
}

// Location returns the location of the current entry.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries[n.cursor].Location
}

// Entries returns a copy of the history stack and the current position.
func (n *Navigator) Entries() ([]Entry, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Entry(nil), n.entries...), n.cursor
}

// CanGoBack reports whether Back would succeed.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor > 0
}

// CanGoForward reports whether Forward would succeed.
func (n *Navigator) CanGoForward() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor < len(n.entries)-1
}
