package appstate

import (
	"context"
	"log/slog"
	"time"
)

// Phase identifies which part of a transition a log event describes.
type Phase string

const (
	// PhaseCommit is a single-step push/replace assignment.
	PhaseCommit Phase = "commit"
	// PhaseImmediate is the synchronous page swap of a pop.
	PhaseImmediate Phase = "immediate"
	// PhaseDeferred is the second step of a pop, run on the next tick.
	PhaseDeferred Phase = "deferred"
	// PhaseCancelled marks a deferred phase dropped by a later navigation.
	PhaseCancelled Phase = "cancelled"
)

// TransitionLogEvent describes one phase of a transition.
type TransitionLogEvent struct {
	ID       string
	Kind     Transition
	Phase    Phase
	FromPage string
	ToPage   string
	Changed  []string
	Dropped  []string
	Retained []string
	Duration time.Duration
	Err      error
}

// TransitionLogger records transitions applied by the store.
type TransitionLogger interface {
	LogTransition(TransitionLogEvent)
}

// TransitionLoggerFunc adapts a function to TransitionLogger.
type TransitionLoggerFunc func(TransitionLogEvent)

// LogTransition implements TransitionLogger.
func (f TransitionLoggerFunc) LogTransition(event TransitionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopTransitionLogger struct{}

func (noopTransitionLogger) LogTransition(TransitionLogEvent) {}

// WithTransitionLogger attaches a transition logger to the store.
func WithTransitionLogger(logger TransitionLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.transitionLogger = noopTransitionLogger{}
			return
		}
		cfg.transitionLogger = logger
	}
}

// SlogLogger writes transition and evaluator events to a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// WithSlogLogger routes both transition and evaluator logs to logger.
func WithSlogLogger(logger *slog.Logger) Option {
	adapter := NewSlogLogger(logger)
	return func(cfg *storeConfig) {
		cfg.transitionLogger = adapter
		cfg.evaluatorLogger = adapter
	}
}

func (l *SlogLogger) LogTransition(event TransitionLogEvent) {
	level := slog.LevelDebug
	msg := "state transition"
	if event.Err != nil {
		level = slog.LevelError
		msg = "state transition failed"
	}
	attrs := []slog.Attr{
		slog.String("transition_id", event.ID),
		slog.String("kind", event.Kind.String()),
		slog.String("phase", string(event.Phase)),
		slog.String("from_page", event.FromPage),
		slog.String("to_page", event.ToPage),
		slog.Duration("duration", event.Duration),
	}
	if len(event.Changed) > 0 {
		attrs = append(attrs, slog.Any("changed", event.Changed))
	}
	if len(event.Dropped) > 0 {
		attrs = append(attrs, slog.Any("dropped", event.Dropped))
	}
	if len(event.Retained) > 0 {
		attrs = append(attrs, slog.Any("retained", event.Retained))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("field", event.Field),
		slog.String("expr", event.Expr),
		slog.Bool("result", event.Result),
		slog.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "applicability rule", attrs...)
}
