package appstate_test

import (
	"context"
	"errors"
	"testing"

	appstate "github.com/goliatone/go-appstate"
)

func TestStaleFetchRuleAcrossEngines(t *testing.T) {
	for _, engine := range []string{appstate.RuleEngineExpr, appstate.RuleEngineCEL} {
		engine := engine
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			seed := appstate.NewTree()
			seed.Page = appstate.PageCategory
			store := newStore(t,
				appstate.WithInitialState(seed),
				appstate.WithRuleEngine(engine),
				appstate.WithApplicabilityRule("subcategory", appstate.StaleFetchRule),
			)

			stale := appstate.Patch{
				"page":        appstate.PageSubcategory,
				"subcategory": &appstate.Subcategory{ID: "s1"},
			}
			if err := store.ApplyState(ctx, stale, appstate.TransitionNone); err != nil {
				t.Fatalf("stale apply: %v", err)
			}
			if tree := store.Snapshot(); tree.Subcategory != nil || tree.Page != appstate.PageCategory {
				t.Fatalf("expected stale fetch ignored, got page=%q subcategory=%+v", tree.Page, tree.Subcategory)
			}

			if err := store.ApplyState(ctx, stale, appstate.TransitionReplace); err != nil {
				t.Fatalf("replace: %v", err)
			}
			if tree := store.Snapshot(); tree.Subcategory == nil || tree.Page != appstate.PageSubcategory {
				t.Fatalf("expected navigation applied, got %+v", tree)
			}
		})
	}
}

func TestRulesSeeCurrentValue(t *testing.T) {
	ctx := context.Background()
	seed := appstate.NewTree()
	seed.Page = appstate.PageSearch
	seed.Search = &appstate.SearchResults{Query: "boots"}
	// Keep results for the same query when bouncing through another page.
	store := newStore(t,
		appstate.WithInitialState(seed),
		appstate.WithApplicabilityRule("search", `value == nil || value.query != patch.search.query`),
		appstate.WithDeferPop(false),
	)

	if err := store.ApplyState(ctx, appstate.Patch{
		"page":   appstate.PageSearch,
		"search": &appstate.SearchResults{Query: "boots", Total: 9},
	}, appstate.TransitionPop); err != nil {
		t.Fatalf("pop: %v", err)
	}
	if store.Snapshot().Search.Total != 0 {
		t.Fatalf("expected same-query results kept")
	}

	if err := store.ApplyState(ctx, appstate.Patch{
		"page":   appstate.PageSearch,
		"search": &appstate.SearchResults{Query: "shoes", Total: 3},
	}, appstate.TransitionPop); err != nil {
		t.Fatalf("pop: %v", err)
	}
	if got := store.Snapshot().Search; got.Query != "shoes" || got.Total != 3 {
		t.Fatalf("expected new query applied, got %+v", got)
	}
}

func TestCustomFunctionsInRules(t *testing.T) {
	ctx := context.Background()
	registry := appstate.NewFunctionRegistry()
	if err := registry.Register("checkout", func(args ...any) (any, error) {
		page, _ := args[0].(string)
		return page == "Checkout", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	store := newStore(t,
		appstate.WithFunctionRegistry(registry),
		appstate.WithApplicabilityRule("title", `checkout(target) == false`),
	)

	if err := store.ApplyState(ctx, appstate.Patch{"page": "Checkout", "title": "Pay"}, appstate.TransitionPush); err != nil {
		t.Fatalf("push: %v", err)
	}
	if store.Snapshot().Title != "" {
		t.Fatalf("expected title dropped on checkout")
	}
	if err := store.ApplyState(ctx, appstate.Patch{"page": appstate.PageProduct, "title": "Runner"}, appstate.TransitionPush); err != nil {
		t.Fatalf("push: %v", err)
	}
	if store.Snapshot().Title != "Runner" {
		t.Fatalf("expected title applied")
	}
}

func TestRuleErrorsAbortTransition(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, appstate.WithApplicabilityRule("title", `target`))
	before := store.Snapshot()

	err := store.ApplyState(ctx, appstate.Patch{"page": appstate.PageProduct, "title": "x"}, appstate.TransitionPush)
	var evalErr *appstate.EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Field != "title" || evalErr.Engine != appstate.RuleEngineExpr {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
	if store.Snapshot().Page != before.Page {
		t.Fatalf("expected no mutation after rule error")
	}
}

func TestProgramCacheIsShared(t *testing.T) {
	cache := appstate.NewMemoryProgramCache()
	newStore(t, appstate.WithProgramCache(cache), appstate.WithApplicabilityRule("subcategory", appstate.StaleFetchRule))
	newStore(t, appstate.WithProgramCache(cache), appstate.WithApplicabilityRule("category", appstate.StaleFetchRule))
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
}

type fixedRule struct{ result any }

func (r fixedRule) Evaluate(appstate.RuleContext) (any, error) { return r.result, nil }

type ruleEvaluator struct{ result any }

func (e ruleEvaluator) Evaluate(appstate.RuleContext, string) (any, error) { return e.result, nil }

func (e ruleEvaluator) Compile(string) (appstate.CompiledRule, error) {
	return fixedRule{result: e.result}, nil
}

func TestCustomEvaluator(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		appstate.WithEvaluator(ruleEvaluator{result: false}),
		appstate.WithApplicabilityRule("description", "ignored"),
	)
	if err := store.ApplyState(ctx, appstate.Patch{"page": appstate.PageSearch, "description": "x"}, appstate.TransitionPush); err != nil {
		t.Fatalf("push: %v", err)
	}
	if store.Snapshot().Description != "" {
		t.Fatalf("expected custom evaluator to drop description")
	}
	if store.Shape()[0].Name != "amp" {
		t.Fatalf("expected declaration order")
	}
}
