package appstate

import (
	"reflect"

	"github.com/goliatone/go-appstate/internal/fields"
)

// auditor drops patch fields whose current occupant refuses the transition.
// It never mutates the tree.
type auditor struct {
	index  *fields.Index
	rules  map[string]applicabilityRule
	logger EvaluatorLogger
}

// needsAudit reports whether the patch moves to another page. History pops
// carrying a page are always audited.
func needsAudit(patch Patch, currentPage string, kind Transition) (string, bool) {
	target, ok := patch.Page()
	if !ok {
		return "", false
	}
	if kind == TransitionPop {
		return target, true
	}
	return target, target != currentPage
}

// Audit returns the patch without the inapplicable fields and the keys it
// removed. When a field bound to the target page is removed the page key goes
// too, since the destination itself is stale.
func (a auditor) Audit(tree *Tree, patch Patch, kind Transition) (Patch, []string, error) {
	target, ok := needsAudit(patch, tree.Page, kind)
	if !ok {
		return patch, nil, nil
	}

	root := reflect.ValueOf(tree).Elem()
	out := patch.Clone()
	var dropped []string
	staleTarget := false
	for _, key := range patch.Keys() {
		if key == fieldPage {
			continue
		}
		field, found := a.index.Lookup(key)
		if !found {
			continue
		}
		actx := AuditContext{
			Field:       key,
			Patch:       patch,
			Kind:        kind,
			CurrentPage: tree.Page,
			TargetPage:  target,
		}
		// Previews have no page, so only rules can keep them.
		preview := field.Lookup("scope") == ScopePreview
		allowed, err := a.applicable(actx, root.Field(field.Index), !preview)
		if err != nil {
			return nil, nil, err
		}
		if allowed {
			continue
		}
		delete(out, key)
		dropped = append(dropped, key)
		if page := field.Lookup("page"); page != "" && page == target {
			staleTarget = true
		}
	}
	if staleTarget {
		if _, present := out[fieldPage]; present {
			delete(out, fieldPage)
			dropped = append(dropped, fieldPage)
		}
	}
	return out, dropped, nil
}

func (a auditor) applicable(actx AuditContext, current reflect.Value, askOccupant bool) (bool, error) {
	if askOccupant {
		if predicate, ok := applicabilityOf(current); ok && !predicate.PatchApplicable(actx) {
			return false, nil
		}
	}
	rule, ok := a.rules[actx.Field]
	if !ok {
		return true, nil
	}
	var value any
	if current.IsValid() {
		value = current.Interface()
	}
	return rule.evaluate(actx, value, a.logger)
}

// applicabilityOf returns the predicate of a populated field value. Empty
// slots have no occupant to ask.
func applicabilityOf(current reflect.Value) (PatchApplicability, bool) {
	if !current.IsValid() {
		return nil, false
	}
	switch current.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if current.IsNil() {
			return nil, false
		}
	}
	if predicate, ok := current.Interface().(PatchApplicability); ok {
		return predicate, true
	}
	if current.CanAddr() {
		if predicate, ok := current.Addr().Interface().(PatchApplicability); ok {
			return predicate, true
		}
	}
	return nil, false
}
