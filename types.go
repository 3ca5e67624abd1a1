package appstate

import (
	"github.com/goliatone/go-appstate/internal/hydrate"
	"github.com/goliatone/go-appstate/pkg/activity"
	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	scheduler        Scheduler
	transitionLogger TransitionLogger
	evaluatorLogger  EvaluatorLogger
	evaluator        Evaluator
	ruleEngine       string
	programCache     ProgramCache
	functions        *FunctionRegistry
	rules            map[string]string
	retained         []string
	deferPop         bool
	activityHooks    activity.Hooks
	activity         ActivityConfig
	sessionID        string
	initial          *Tree
	decoderOptions   []hydrate.DecoderOption
	newID            func() string
}

func defaultStoreConfig() storeConfig {
	defaults := DefaultConfig()
	return storeConfig{
		transitionLogger: noopTransitionLogger{},
		evaluatorLogger:  noopEvaluatorLogger{},
		ruleEngine:       defaults.RuleEngine,
		deferPop:         defaults.DeferPop,
		activity:         defaults.Activity,
		newID:            uuid.NewString,
	}
}

func applyOptions(opts []Option) storeConfig {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithScheduler replaces the store-owned TaskQueue used for the deferred
// phase of history pops.
func WithScheduler(scheduler Scheduler) Option {
	return func(cfg *storeConfig) {
		cfg.scheduler = scheduler
	}
}

// WithEvaluator sets the evaluator used for applicability rules, overriding
// the configured rule engine.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = evaluator
	}
}

// WithRuleEngine selects the rule engine by name (expr, cel or js).
func WithRuleEngine(engine string) Option {
	return func(cfg *storeConfig) {
		cfg.ruleEngine = engine
	}
}

// WithApplicabilityRule registers an expression deciding whether patches may
// touch field while the page changes. The expression sees field, kind,
// current, target, patch and value and must return a bool.
func WithApplicabilityRule(field, expr string) Option {
	return func(cfg *storeConfig) {
		if cfg.rules == nil {
			cfg.rules = map[string]string{}
		}
		cfg.rules[field] = expr
	}
}

// WithRetainedFields adds fields that history pops never overwrite. Session
// fields are always retained.
func WithRetainedFields(fields ...string) Option {
	return func(cfg *storeConfig) {
		cfg.retained = append(cfg.retained, fields...)
	}
}

// WithDeferPop controls whether the second phase of a pop waits for the next
// tick. Disable it when rendering on the server.
func WithDeferPop(enabled bool) Option {
	return func(cfg *storeConfig) {
		cfg.deferPop = enabled
	}
}

// WithInitialState seeds the tree.
func WithInitialState(tree Tree) Option {
	return func(cfg *storeConfig) {
		seed := tree
		cfg.initial = &seed
	}
}

// WithSessionID tags activity events with a browsing session identifier.
func WithSessionID(id string) Option {
	return func(cfg *storeConfig) {
		cfg.sessionID = id
	}
}

// WithStrictPayloads rejects JSON entity payloads carrying keys their Go type
// does not declare.
func WithStrictPayloads() Option {
	return func(cfg *storeConfig) {
		cfg.decoderOptions = append(cfg.decoderOptions, hydrate.WithDisallowUnknownFields())
	}
}

// WithPayloadHook runs hook on raw JSON payloads before they are decoded.
func WithPayloadHook(hook func(location string, payload map[string]any) (map[string]any, error)) Option {
	return func(cfg *storeConfig) {
		if hook == nil {
			return
		}
		cfg.decoderOptions = append(cfg.decoderOptions, hydrate.WithPreHook(func(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
			return hook(ctx.Location, payload)
		}))
	}
}

// WithTransitionIDs overrides the transition ID generator.
func WithTransitionIDs(next func() string) Option {
	return func(cfg *storeConfig) {
		if next != nil {
			cfg.newID = next
		}
	}
}
