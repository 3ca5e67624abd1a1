package appstate

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-appstate/internal/fields"
)

// retainedFields resolves the set of keys history pops may not overwrite:
// every field tagged scope:"session" plus the configured extras.
func retainedFields(index *fields.Index, extra []string) ([]string, error) {
	set := map[string]struct{}{}
	for _, name := range index.Names("scope", "session") {
		set[name] = struct{}{}
	}
	for _, name := range extra {
		if _, ok := index.Lookup(name); !ok {
			return nil, &FieldError{Field: name, Err: fmt.Errorf("%w: retained field", ErrUnknownField)}
		}
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// retain strips retained keys from a history pop patch. It returns the keys
// that were present and removed.
func retain(patch Patch, retained []string) (Patch, []string) {
	return patch.Without(retained...)
}

// RetainedFields lists the fields a history pop never overwrites.
func (s *Store) RetainedFields() []string {
	return append([]string(nil), s.retained...)
}
