package appstate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/goliatone/go-appstate/internal/fields"
	"github.com/goliatone/go-appstate/internal/hydrate"
	"github.com/goliatone/go-appstate/pkg/activity"
)

var treeIndex = sync.OnceValues(func() (*fields.Index, error) {
	return fields.NewIndex(reflect.TypeOf(Tree{}))
})

// Store owns the application state tree and applies navigation patches to
// it. All mutation goes through the store; readers get deep copies.
type Store struct {
	mu       sync.Mutex
	tree     Tree
	cfg      storeConfig
	index    *fields.Index
	auditor  auditor
	retained []string
	decoder  *hydrate.Decoder
	emitter  *activity.Emitter

	scheduler Scheduler
	queue     *TaskQueue
	pending   *pendingPhase

	subs subscribers
}

// pendingPhase is the deferred half of a history pop that has not run yet.
type pendingPhase struct {
	id    string
	kind  Transition
	patch Patch
	task  Task
}

// NewStore builds a store. Rules naming unknown fields, unknown retained
// fields and rules that fail to compile are reported here.
func NewStore(opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)

	index, err := treeIndex()
	if err != nil {
		return nil, fmt.Errorf("appstate: index tree: %w", err)
	}

	for field := range cfg.rules {
		if _, ok := index.Lookup(field); !ok {
			return nil, &FieldError{Field: field, Err: fmt.Errorf("%w: applicability rule", ErrUnknownField)}
		}
	}
	retained, err := retainedFields(index, cfg.retained)
	if err != nil {
		return nil, err
	}

	evaluator := cfg.evaluator
	if evaluator == nil && len(cfg.rules) > 0 {
		cache := cfg.programCache
		if cache == nil {
			cache = NewMemoryProgramCache()
		}
		evaluator, err = NewEvaluator(cfg.ruleEngine, cache, cfg.functions)
		if err != nil {
			return nil, err
		}
	}
	rules, err := compileRules(evaluator, cfg.rules)
	if err != nil {
		return nil, err
	}

	s := &Store{
		tree:     NewTree(),
		cfg:      cfg,
		index:    index,
		retained: retained,
		auditor: auditor{
			index:  index,
			rules:  rules,
			logger: cfg.evaluatorLogger,
		},
		emitter:   newEmitter(cfg),
		scheduler: cfg.scheduler,
	}
	if cfg.initial != nil {
		s.tree = fields.Clone(*cfg.initial)
	}
	if s.scheduler == nil {
		s.queue = NewTaskQueue()
		s.scheduler = s.queue
	}

	// Payload hooks may rename or strip keys, so the unknown key check runs last.
	decoderOpts := append(append([]hydrate.DecoderOption(nil), cfg.decoderOptions...), hydrate.WithPreHook(s.rejectUnknownKeys))
	s.decoder = hydrate.NewDecoder(s.fieldType, decoderOpts...)
	return s, nil
}

// ApplyState applies patch for the given transition kind.
//
// Push, replace and plain data updates assign every changed field at once,
// after auditing the patch when it moves to another page. History pops strip
// retained fields, audit, swap the page immediately and assign the rest on
// the next tick. A patch naming unknown fields or carrying values of the
// wrong type aborts before anything is assigned.
func (s *Store) ApplyState(ctx context.Context, patch Patch, kind Transition) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch kind {
	case TransitionNone, TransitionPush, TransitionReplace:
		return s.commit(ctx, patch, kind, true)
	case TransitionPop:
		return s.pop(ctx, patch)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransition, string(kind))
	}
}

// ApplyJSON decodes a JSON page payload and applies it.
func (s *Store) ApplyJSON(ctx context.Context, data []byte, kind Transition) error {
	patch, err := s.decodePatch(data, kind)
	if err != nil {
		return err
	}
	return s.ApplyState(ctx, patch, kind)
}

// DecodePatch converts a JSON object into a typed patch without applying it.
func (s *Store) DecodePatch(data []byte) (Patch, error) {
	return s.decodePatch(data, TransitionNone)
}

func (s *Store) decodePatch(data []byte, kind Transition) (Patch, error) {
	s.mu.Lock()
	location := s.tree.URI()
	s.mu.Unlock()
	decoded, err := s.decoder.DecodeBytes(hydrate.Context{Location: location, Transition: kind.String()}, data)
	if err != nil {
		return nil, fmt.Errorf("appstate: decode patch: %w", err)
	}
	return Patch(decoded), nil
}

func (s *Store) fieldType(key string) (reflect.Type, bool) {
	field, ok := s.index.Lookup(key)
	if !ok {
		return nil, false
	}
	return field.Type, true
}

func (s *Store) rejectUnknownKeys(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for key := range payload {
		if _, ok := s.index.Lookup(key); !ok {
			return nil, &FieldError{Field: key, Value: payload[key], Err: ErrUnknownField}
		}
	}
	return payload, nil
}

// commit runs the push/replace algorithm. audit is false for transitions that
// are not navigations, such as error pages.
func (s *Store) commit(ctx context.Context, patch Patch, kind Transition, audit bool) error {
	id := s.cfg.newID()
	start := time.Now()

	s.mu.Lock()
	from := s.tree.Page
	typed, err := s.validate(patch)
	if err != nil {
		s.mu.Unlock()
		s.logTransition(TransitionLogEvent{ID: id, Kind: kind, Phase: PhaseCommit, FromPage: from, Duration: time.Since(start), Err: err})
		return err
	}

	_, navigates := typed.Page()
	var cancelled *pendingPhase
	if navigates {
		cancelled = s.takePending()
	}

	var dropped []string
	if audit {
		typed, dropped, err = s.auditor.Audit(&s.tree, typed, kind)
		if err != nil {
			s.mu.Unlock()
			s.logCancelled(cancelled, from)
			s.logTransition(TransitionLogEvent{ID: id, Kind: kind, Phase: PhaseCommit, FromPage: from, Duration: time.Since(start), Err: err})
			return err
		}
	}

	// Every forward navigation closes the menu unless the patch sets it.
	if kind == TransitionPush {
		if _, explicit := typed[fieldMenu]; !explicit && s.tree.Menu.Open {
			menu := fields.Clone(s.tree.Menu)
			menu.Open = false
			typed[fieldMenu] = menu
		}
	}

	changes := s.assign(typed, id, kind, PhaseCommit)
	to := s.tree.Page
	tree := s.eventTree()
	s.mu.Unlock()

	s.logCancelled(cancelled, from)
	s.subs.notify(changes)
	s.logTransition(TransitionLogEvent{
		ID:       id,
		Kind:     kind,
		Phase:    PhaseCommit,
		FromPage: from,
		ToPage:   to,
		Changed:  changedFields(changes),
		Dropped:  dropped,
		Duration: time.Since(start),
	})
	if kind == TransitionNone && from == to {
		return nil
	}
	input := s.eventInput(&tree, id)
	input.Page = to
	input.PreviousPage = from
	input.Kind = kind.String()
	input.Fields = changedFields(changes)
	return s.emit(ctx, activity.BuildTransitionEvent(input))
}

// pop runs the two-phase history back transition.
func (s *Store) pop(ctx context.Context, patch Patch) error {
	id := s.cfg.newID()
	start := time.Now()

	s.mu.Lock()
	from := s.tree.Page
	typed, err := s.validate(patch)
	if err != nil {
		s.mu.Unlock()
		s.logTransition(TransitionLogEvent{ID: id, Kind: TransitionPop, Phase: PhaseImmediate, FromPage: from, Duration: time.Since(start), Err: err})
		return err
	}
	cancelled := s.takePending()

	filtered, retained := retain(typed, s.retained)
	filtered, dropped, err := s.auditor.Audit(&s.tree, filtered, TransitionPop)
	if err != nil {
		s.mu.Unlock()
		s.logCancelled(cancelled, from)
		s.logTransition(TransitionLogEvent{ID: id, Kind: TransitionPop, Phase: PhaseImmediate, FromPage: from, Duration: time.Since(start), Err: err})
		return err
	}

	immediate := Patch{fieldLoading: false}
	if page, ok := filtered.Page(); ok {
		immediate[fieldPage] = page
	}
	deferred, _ := filtered.Without(fieldPage)

	changes := s.assign(immediate, id, TransitionPop, PhaseImmediate)
	to := s.tree.Page
	tree := s.eventTree()
	if len(deferred) > 0 {
		s.pending = &pendingPhase{id: id, kind: TransitionPop, patch: deferred}
	}
	s.mu.Unlock()

	s.logCancelled(cancelled, from)
	s.subs.notify(changes)
	s.logTransition(TransitionLogEvent{
		ID:       id,
		Kind:     TransitionPop,
		Phase:    PhaseImmediate,
		FromPage: from,
		ToPage:   to,
		Changed:  changedFields(changes),
		Dropped:  dropped,
		Retained: retained,
		Duration: time.Since(start),
	})

	// The scheduler is called without s.mu held and after the immediate
	// phase is out, so it may run fn inline.
	if s.cfg.deferPop && len(deferred) > 0 {
		task := s.scheduler.Schedule(func() {
			s.runDeferred(id, deferred)
		})
		s.mu.Lock()
		if s.pending != nil && s.pending.id == id {
			s.pending.task = task
		} else if task != nil {
			task.Cancel()
		}
		s.mu.Unlock()
	}
	if !s.cfg.deferPop && len(deferred) > 0 {
		s.runDeferred(id, deferred)
	}

	input := s.eventInput(&tree, id)
	input.Page = to
	input.PreviousPage = from
	input.Kind = TransitionPop.String()
	input.Fields = changedFields(changes)
	return s.emit(ctx, activity.BuildTransitionEvent(input))
}

// runDeferred assigns the remainder of a pop. The patch was validated and
// filtered when the pop started. It does nothing once a later navigation
// has taken the pending phase.
func (s *Store) runDeferred(id string, patch Patch) {
	start := time.Now()
	s.mu.Lock()
	if s.pending == nil || s.pending.id != id {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	changes := s.assign(patch, id, TransitionPop, PhaseDeferred)
	page := s.tree.Page
	s.mu.Unlock()

	s.subs.notify(changes)
	s.logTransition(TransitionLogEvent{
		ID:       id,
		Kind:     TransitionPop,
		Phase:    PhaseDeferred,
		FromPage: page,
		ToPage:   page,
		Changed:  changedFields(changes),
		Duration: time.Since(start),
	})
}

// takePending cancels the deferred phase of an earlier pop. Callers hold
// s.mu.
func (s *Store) takePending() *pendingPhase {
	pending := s.pending
	s.pending = nil
	if pending == nil {
		return nil
	}
	if pending.task != nil {
		pending.task.Cancel()
	}
	return pending
}

func (s *Store) logCancelled(pending *pendingPhase, page string) {
	if pending == nil {
		return
	}
	s.logTransition(TransitionLogEvent{
		ID:       pending.id,
		Kind:     pending.kind,
		Phase:    PhaseCancelled,
		FromPage: page,
		ToPage:   page,
	})
}

// validate converts every patch value into its field type. It fails on the
// first unknown key or mismatched value, before anything is assigned.
func (s *Store) validate(patch Patch) (Patch, error) {
	typed := make(Patch, len(patch))
	for _, key := range patch.Keys() {
		field, ok := s.index.Lookup(key)
		if !ok {
			return nil, &FieldError{Field: key, Value: patch[key], Err: ErrUnknownField}
		}
		value, err := convertValue(patch[key], field.Type)
		if err != nil {
			return nil, &FieldError{Field: key, Value: patch[key], Err: err}
		}
		typed[key] = value.Interface()
	}
	return typed, nil
}

func convertValue(raw any, typ reflect.Type) (reflect.Value, error) {
	if value, ok := fields.Convert(raw, typ); ok {
		return value, nil
	}
	// JSON-shaped payloads (maps and slices of any) are hydrated into typ.
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Map, reflect.Slice:
		value, err := hydrate.Value(raw, typ)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", ErrFieldType, err)
		}
		return value, nil
	}
	return reflect.Value{}, ErrFieldType
}

// assign writes each field whose value differs from the current one. Values
// are copied on the way in so callers cannot reach into the tree. Callers
// hold s.mu.
func (s *Store) assign(patch Patch, id string, kind Transition, phase Phase) []Change {
	return s.assignTo(&s.tree, patch, id, kind, phase)
}

func (s *Store) assignTo(tree *Tree, patch Patch, id string, kind Transition, phase Phase) []Change {
	root := reflect.ValueOf(tree).Elem()
	var changes []Change
	for _, key := range patch.Keys() {
		field, ok := s.index.Lookup(key)
		if !ok {
			continue
		}
		dst := root.Field(field.Index)
		src := reflect.ValueOf(patch[key])
		if !src.IsValid() {
			src = reflect.Zero(field.Type)
		}
		if fields.Equal(dst, src) {
			continue
		}
		old := dst.Interface()
		dst.Set(fields.CloneValue(src))
		changes = append(changes, Change{
			ID:    id,
			Field: key,
			Old:   old,
			New:   fields.CloneValue(dst).Interface(),
			Kind:  kind,
			Phase: phase,
		})
	}
	return changes
}

// eventTree copies the parts of the tree activity events read. Callers hold
// s.mu.
func (s *Store) eventTree() Tree {
	return Tree{Page: s.tree.Page, User: fields.Clone(s.tree.User)}
}

func (s *Store) logTransition(event TransitionLogEvent) {
	s.cfg.transitionLogger.LogTransition(event)
}

// Tick runs the deferred work queued before the call on the store-owned
// queue. It returns the number of tasks run, and 0 when a custom scheduler
// is configured.
func (s *Store) Tick() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.RunPending()
}

// Flush runs queued work until none is left.
func (s *Store) Flush() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Drain()
}

// Queue returns the store-owned task queue, or nil when a custom scheduler
// is configured. Run it with TaskQueue.Run on the goroutine that owns the UI.
func (s *Store) Queue() *TaskQueue {
	return s.queue
}

// Pending reports whether a deferred pop phase is waiting to run.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Snapshot returns a deep copy of the tree.
func (s *Store) Snapshot() Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fields.Clone(s.tree)
}

// Settled returns a deep copy of the tree as it will be once a pending pop
// phase has run. History snapshots read this so a page left before the
// deferred phase ran is stored whole.
func (s *Store) Settled() Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree := fields.Clone(s.tree)
	if s.pending != nil {
		s.assignTo(&tree, s.pending.patch, s.pending.id, s.pending.kind, PhaseDeferred)
	}
	return tree
}

// Page returns the current page identity.
func (s *Store) Page() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Page
}

// Loading reports whether a page load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Loading
}

// Value returns a copy of the field stored under key.
func (s *Store) Value(key string) (any, error) {
	field, ok := s.index.Lookup(key)
	if !ok {
		return nil, &FieldError{Field: key, Err: ErrUnknownField}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value := reflect.ValueOf(&s.tree).Elem().Field(field.Index)
	return fields.CloneValue(value).Interface(), nil
}

// TreePatch expands a tree into a full patch, one key per field. History
// collaborators store these to replay pages on pop.
func TreePatch(tree Tree) (Patch, error) {
	index, err := treeIndex()
	if err != nil {
		return nil, err
	}
	root := reflect.ValueOf(tree)
	patch := make(Patch, len(index.Fields()))
	for _, field := range index.Fields() {
		patch[field.Name] = fields.CloneValue(root.Field(field.Index)).Interface()
	}
	return patch, nil
}

func changedFields(changes []Change) []string {
	if len(changes) == 0 {
		return nil
	}
	out := make([]string, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.Field)
	}
	return out
}

// IsFieldError reports whether err was caused by a patch key.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
