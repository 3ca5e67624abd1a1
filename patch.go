package appstate

import (
	"sort"
	"strings"
)

// Transition identifies the navigation kind a patch was issued for.
type Transition string

const (
	// TransitionNone is used for data updates that are not tied to a router
	// action. It is handled like push/replace.
	TransitionNone    Transition = ""
	TransitionPush    Transition = "PUSH"
	TransitionReplace Transition = "REPLACE"
	TransitionPop     Transition = "POP"
)

// ParseTransition converts a router action name into a Transition.
func ParseTransition(value string) (Transition, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "":
		return TransitionNone, true
	case "PUSH":
		return TransitionPush, true
	case "REPLACE":
		return TransitionReplace, true
	case "POP":
		return TransitionPop, true
	default:
		return TransitionNone, false
	}
}

func (t Transition) String() string {
	if t == TransitionNone {
		return "NONE"
	}
	return string(t)
}

// Patch maps tree field keys to their new values.
type Patch map[string]any

// Clone returns a shallow copy so filters can drop keys without touching the
// caller's map.
func (p Patch) Clone() Patch {
	out := make(Patch, len(p))
	for key, value := range p {
		out[key] = value
	}
	return out
}

// Page returns the target page carried by the patch.
func (p Patch) Page() (string, bool) {
	raw, ok := p[fieldPage]
	if !ok {
		return "", false
	}
	page, ok := raw.(string)
	if !ok {
		if ptr, isPtr := raw.(*string); isPtr && ptr != nil {
			return *ptr, true
		}
		return "", raw == nil
	}
	return page, true
}

// Keys returns the patch keys sorted alphabetically.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of p with keys removed, along with the keys that
// were actually present.
func (p Patch) Without(keys ...string) (Patch, []string) {
	out := p.Clone()
	var removed []string
	for _, key := range keys {
		if _, ok := out[key]; ok {
			delete(out, key)
			removed = append(removed, key)
		}
	}
	return out, removed
}

const (
	fieldPage        = "page"
	fieldLoading     = "loading"
	fieldError       = "error"
	fieldStack       = "stack"
	fieldMenu        = "menu"
	fieldUser        = "user"
	fieldCart        = "cart"
	fieldTabs        = "tabs"
	fieldThumbnail   = "productThumbnail"
	fieldLoadingProd = "loadingProduct"
)
