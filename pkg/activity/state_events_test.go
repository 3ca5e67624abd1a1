package activity

import (
	"context"
	"testing"
)

func TestBuildTransitionEventIncludesPageMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	fields := []string{"category", "page"}
	input := StateEventInput{
		ActorID:      " actor ",
		UserID:       " user ",
		SessionID:    " sess-1 ",
		TransitionID: " tx-1 ",
		Metadata:     meta,
		Page:         "Category",
		PreviousPage: "Product",
		Kind:         "POP",
		Fields:       fields,
	}

	event := BuildTransitionEvent(input)

	if event.Verb != VerbTransitionApplied {
		t.Fatalf("expected verb %s got %s", VerbTransitionApplied, event.Verb)
	}
	if event.ObjectType != "page" || event.ObjectID != "Category" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.SessionID != "sess-1" || event.TransitionID != "tx-1" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["page"] != "Category" || event.Metadata["previous_page"] != "Product" {
		t.Fatalf("expected page metadata, got %+v", event.Metadata)
	}
	if event.Metadata["transition_kind"] != "POP" {
		t.Fatalf("expected transition kind, got %v", event.Metadata["transition_kind"])
	}
	got, ok := event.Metadata["fields"].([]string)
	if !ok || len(got) != 2 {
		t.Fatalf("expected fields metadata, got %v", event.Metadata["fields"])
	}
	got[0] = "changed"
	if fields[0] != "category" {
		t.Fatalf("expected input fields untouched, got %v", fields)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildStateEventsFallbackObjectID(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		want  string
	}{
		{name: "cart", event: BuildCartUpdatedEvent(StateEventInput{}), want: "cart"},
		{name: "cart session", event: BuildCartUpdatedEvent(StateEventInput{SessionID: "s-9"}), want: "s-9"},
		{name: "signed in", event: BuildSignedInEvent(StateEventInput{UserID: "u-1"}), want: "u-1"},
		{name: "signed out", event: BuildSignedOutEvent(StateEventInput{}), want: "user"},
		{name: "fault", event: BuildPageFaultEvent(StateEventInput{Page: "Error"}), want: "Error"},
		{name: "image", event: BuildImageSwitchedEvent(StateEventInput{ObjectID: "sku-1"}), want: "sku-1"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.event.ObjectID != tc.want {
				t.Fatalf("expected object ID %q got %q", tc.want, tc.event.ObjectID)
			}
		})
	}
}

func TestBuildStateEventsWorkWithEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	event := BuildSignedInEvent(StateEventInput{UserID: "u-1"})
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	last, ok := capture.Last()
	if !ok {
		t.Fatalf("expected capture to record event")
	}
	if last.Verb != VerbSignedIn || last.Channel != DefaultChannel {
		t.Fatalf("unexpected event: %+v", last)
	}
}
