package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the state store and its collaborators.
const (
	VerbTransitionApplied = "state.transition.applied"
	VerbSignedIn          = "session.signed_in"
	VerbSignedOut         = "session.signed_out"
	VerbCartUpdated       = "cart.updated"
	VerbPageFault         = "page.fault"
	VerbImageSwitched     = "gallery.image_switched"
)

// StateEventInput describes the common fields of state lifecycle events.
type StateEventInput struct {
	ActorID      string
	UserID       string
	TenantID     string
	SessionID    string
	ObjectID     string
	Channel      string
	TransitionID string
	Metadata     map[string]any
	// Page is the page the tree shows after the event.
	Page         string
	PreviousPage string
	// Kind is the transition kind (PUSH, REPLACE, POP or NONE).
	Kind       string
	Fields     []string
	OccurredAt time.Time
}

// BuildTransitionEvent describes an applied navigation transition.
func BuildTransitionEvent(input StateEventInput) Event {
	return buildStateEvent(VerbTransitionApplied, "page", input)
}

// BuildSignedInEvent describes a user signing in.
func BuildSignedInEvent(input StateEventInput) Event {
	if input.ObjectID == "" {
		input.ObjectID = input.UserID
	}
	return buildStateEvent(VerbSignedIn, "user", input)
}

// BuildSignedOutEvent describes a user signing out.
func BuildSignedOutEvent(input StateEventInput) Event {
	if input.ObjectID == "" {
		input.ObjectID = input.UserID
	}
	return buildStateEvent(VerbSignedOut, "user", input)
}

// BuildCartUpdatedEvent describes a cart mutation.
func BuildCartUpdatedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbCartUpdated, "cart", input)
}

// BuildPageFaultEvent describes an error page transition.
func BuildPageFaultEvent(input StateEventInput) Event {
	return buildStateEvent(VerbPageFault, "page", input)
}

// BuildImageSwitchedEvent describes a gallery selection change. ObjectID
// should carry the product ID.
func BuildImageSwitchedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbImageSwitched, "product", input)
}

func buildStateEvent(verb, objectType string, input StateEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Page != "" {
		metadata = ensureMetadata(metadata)
		metadata["page"] = input.Page
	}
	if input.PreviousPage != "" {
		metadata = ensureMetadata(metadata)
		metadata["previous_page"] = input.PreviousPage
	}
	if input.Kind != "" {
		metadata = ensureMetadata(metadata)
		metadata["transition_kind"] = input.Kind
	}
	if len(input.Fields) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["fields"] = append([]string{}, input.Fields...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Page)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.SessionID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:         verb,
		ActorID:      strings.TrimSpace(input.ActorID),
		UserID:       strings.TrimSpace(input.UserID),
		TenantID:     strings.TrimSpace(input.TenantID),
		SessionID:    strings.TrimSpace(input.SessionID),
		ObjectType:   objectType,
		ObjectID:     objectID,
		Channel:      strings.TrimSpace(input.Channel),
		TransitionID: strings.TrimSpace(input.TransitionID),
		Metadata:     metadata,
		OccurredAt:   input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
