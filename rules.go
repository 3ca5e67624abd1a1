package appstate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-appstate/internal/hydrate"
)

var ErrNoEvaluator = errors.New("appstate: evaluator not configured")

// Rule engines selectable through Config.RuleEngine.
const (
	RuleEngineExpr = "expr"
	RuleEngineCEL  = "cel"
	RuleEngineJS   = "js"
)

// StaleFetchRule rejects data updates that arrive without a router
// transition and target a page other than the one shown, such as a slow
// fetch resolving after the user navigated away. It works with the expr and
// cel engines.
const StaleFetchRule = `kind != "NONE" || current == target`

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// RuleContext carries the inputs of a rule evaluation. Snapshot keys become
// top-level variables of the expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Field    string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) fieldLabel() string {
	if ctx.Field != "" {
		return ctx.Field
	}
	return "unknown"
}

// applicabilityRule is a compiled per-field rule. A false result drops the
// field from the patch being audited.
type applicabilityRule struct {
	field    string
	expr     string
	engine   string
	compiled CompiledRule
}

func compileRules(evaluator Evaluator, rules map[string]string) (map[string]applicabilityRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	engine := evaluatorEngineName(evaluator)
	out := make(map[string]applicabilityRule, len(rules))
	for field, expr := range rules {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		compiled, err := evaluator.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("appstate: compile rule for %q: %w", field, err)
		}
		out[field] = applicabilityRule{field: field, expr: expr, engine: engine, compiled: compiled}
	}
	return out, nil
}

// ruleEnvironment exposes the audit to expressions as: field, kind, current,
// target, patch (JSON-shaped) and value (the field's current value,
// JSON-shaped).
func ruleEnvironment(actx AuditContext, current any) (map[string]any, error) {
	patch, err := hydrate.Generic(map[string]any(actx.Patch))
	if err != nil {
		return nil, fmt.Errorf("appstate: rule environment for %q: %w", actx.Field, err)
	}
	value, err := hydrate.Generic(current)
	if err != nil {
		return nil, fmt.Errorf("appstate: rule environment for %q: %w", actx.Field, err)
	}
	if patch == nil {
		patch = map[string]any{}
	}
	return map[string]any{
		"field":   actx.Field,
		"kind":    actx.Kind.String(),
		"current": actx.CurrentPage,
		"target":  actx.TargetPage,
		"patch":   patch,
		"value":   value,
	}, nil
}

func (r applicabilityRule) evaluate(actx AuditContext, current any, logger EvaluatorLogger) (bool, error) {
	env, err := ruleEnvironment(actx, current)
	if err != nil {
		return false, err
	}
	start := time.Now()
	result, evalErr := r.compiled.Evaluate(RuleContext{Snapshot: env, Field: r.field})
	allowed := false
	if evalErr == nil {
		var ok bool
		allowed, ok = result.(bool)
		if !ok {
			evalErr = fmt.Errorf("rule returned %T, want bool", result)
		}
	}
	evalErr = wrapEvaluationError(r.engine, r.expr, r.field, evalErr)
	logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   r.engine,
		Expr:     r.expr,
		Field:    r.field,
		Result:   allowed,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return false, evalErr
	}
	return allowed, nil
}

// NewEvaluator returns the evaluator for a rule engine name.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", RuleEngineExpr:
		var opts []ExprEvaluatorOption
		if cache != nil {
			opts = append(opts, ExprWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, ExprWithFunctionRegistry(registry))
		}
		return NewExprEvaluator(opts...), nil
	case RuleEngineCEL:
		var opts []CELEvaluatorOption
		if cache != nil {
			opts = append(opts, CELWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, CELWithFunctionRegistry(registry))
		}
		return NewCELEvaluator(opts...), nil
	case RuleEngineJS:
		var opts []JSEvaluatorOption
		if cache != nil {
			opts = append(opts, JSWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, JSWithFunctionRegistry(registry))
		}
		evaluator := NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule engine %q", ErrNoEvaluator, engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return RuleEngineExpr
	case *celEvaluator:
		return RuleEngineCEL
	default:
		if jsEvaluatorAvailable() && fmt.Sprintf("%T", e) == "*appstate.jsEvaluator" {
			return RuleEngineJS
		}
		return "custom"
	}
}
