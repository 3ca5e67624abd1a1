package appstate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/goliatone/go-appstate/pkg/activity"
)

// PageFault is a rendering or runtime failure caught at the application
// boundary, together with the trace captured where it was caught.
type PageFault struct {
	Message string
	Stack   string
	Err     error
}

func (f *PageFault) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return "page fault"
}

func (f *PageFault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// StackTrace returns the captured trace.
func (f *PageFault) StackTrace() string {
	if f == nil {
		return ""
	}
	return f.Stack
}

type stackTracer interface {
	StackTrace() string
}

// trace prefers an explicit StackTrace method anywhere in the chain and
// falls back to the verbose formatting of err.
func trace(err error) string {
	var tracer stackTracer
	if errors.As(err, &tracer) {
		if stack := tracer.StackTrace(); stack != "" {
			return stack
		}
	}
	return fmt.Sprintf("%+v", err)
}

// OnError switches to the error page carrying err's message and trace. It
// uses the replace path without the auditor and cancels a pending pop phase.
func (s *Store) OnError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	from := s.tree.Page
	cancelled := s.takePending()
	s.mu.Unlock()
	s.logCancelled(cancelled, from)

	patch := Patch{
		fieldPage:  PageError,
		fieldError: err.Error(),
		fieldStack: trace(err),
	}
	if applyErr := s.commit(ctx, patch, TransitionReplace, false); applyErr != nil && !errors.Is(applyErr, ErrActivity) {
		return applyErr
	}

	input := s.eventInput(nil, "")
	input.Page = PageError
	input.PreviousPage = from
	input.Metadata = map[string]any{"error": err.Error()}
	return s.emit(ctx, activity.BuildPageFaultEvent(input))
}

// Recover converts a panic into an error page. Use it directly with defer:
//
//	defer store.Recover(ctx)
func (s *Store) Recover(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	fault := &PageFault{Message: fmt.Sprint(r), Stack: string(debug.Stack())}
	if err, ok := r.(error); ok {
		fault.Err = err
		fault.Message = err.Error()
	}
	_ = s.OnError(ctx, fault)
}
