package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoHistory is returned when there is no entry to move to.
	ErrNoHistory = errors.New("history: no entry in that direction")
	// ErrSnapshotMissing is returned when an entry has no stored snapshot.
	ErrSnapshotMissing = errors.New("history: snapshot missing")
)

// Ref identifies the snapshot of one history entry within a session.
type Ref struct {
	Session string
	Entry   string
}

// Identifier returns the storage key of the reference.
func (r Ref) Identifier() (string, error) {
	session := strings.TrimSpace(r.Session)
	entry := strings.TrimSpace(r.Entry)
	if session == "" {
		return "", fmt.Errorf("history: session is required")
	}
	if entry == "" {
		return "", fmt.Errorf("history: entry is required for session %q", session)
	}
	return fmt.Sprintf("session/%s/entry/%s", session, entry), nil
}

// Meta is storage-owned metadata for one snapshot.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Location   string            `json:"location,omitempty"`
	Page       string            `json:"page,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot per reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
