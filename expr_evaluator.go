package appstate

import (
	"errors"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

var errEmptyRule = errors.New("applicability rule is empty")

// ExprEvaluatorOption configures the expr rule engine.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache shares compiled rule programs through cache. Keys are
// prefixed with "expr:" so one cache can serve several engines.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry makes the registered helpers callable from rules,
// both by name (lowercased) and through call("name", args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator is the default applicability rule engine, built on
// github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator returns the expr rule engine. A rule sees the audit as
// the variables field, kind, current, target, patch and value, plus now,
// args and metadata from the RuleContext.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate runs a one-off rule for ctx.Field.
func (e *exprEvaluator) Evaluate(ctx RuleContext, rule string) (any, error) {
	compiled, err := e.Compile(rule)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

// Compile checks rule once so audits only run the program.
func (e *exprEvaluator) Compile(rule string) (CompiledRule, error) {
	if rule == "" {
		return nil, wrapEvaluatorError(RuleEngineExpr, errEmptyRule)
	}
	program, err := e.program(rule)
	if err != nil {
		return nil, err
	}
	return &exprRule{evaluator: e, program: program, source: rule}, nil
}

func (e *exprEvaluator) program(rule string) (*exprvm.Program, error) {
	key := RuleEngineExpr + ":" + rule
	if e.cache != nil {
		if program, ok := e.cache.Get(key); ok {
			if program, ok := program.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		// Patches are sparse, so a rule may name a key the audit does not set.
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.helper(name)))
		}
	}
	program, err := exprlang.Compile(rule, options...)
	if err != nil {
		return nil, wrapEvaluationError(RuleEngineExpr, rule, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) helper(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return e.registry.Call(name, args...)
	}
}

// variables flattens the audit snapshot into the expression environment.
// Audit keys win over now, args and metadata.
func (e *exprEvaluator) variables(ctx RuleContext) map[string]any {
	ctx = ctx.withDefaults()
	vars := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if audit, ok := ctx.Snapshot.(map[string]any); ok {
		for key, value := range audit {
			vars[key] = value
		}
	}
	if e.registry != nil {
		vars["call"] = func(name string, args ...any) (any, error) {
			return e.registry.Call(name, args...)
		}
	}
	return vars
}

type exprRule struct {
	evaluator *exprEvaluator
	program   *exprvm.Program
	source    string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	result, err := exprlang.Run(r.program, r.evaluator.variables(ctx))
	if err != nil {
		return nil, wrapEvaluationError(RuleEngineExpr, r.source, ctx.fieldLabel(), err)
	}
	return result, nil
}
