package appstate

import (
	"context"
	"sync"
)

// Change describes one field assignment. Old is the value the tree held
// before; New is a copy of the value it holds now.
type Change struct {
	ID    string
	Field string
	Old   any
	New   any
	Kind  Transition
	Phase Phase
}

type subscription struct {
	id    uint64
	field string
	fn    func(Change)
}

// subscribers is the observer list. Listeners run outside the store lock,
// in registration order.
type subscribers struct {
	mu   sync.RWMutex
	next uint64
	list []subscription
}

func (s *subscribers) add(field string, fn func(Change)) func() {
	s.mu.Lock()
	s.next++
	id := s.next
	s.list = append(s.list, subscription{id: id, field: field, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.list {
				if sub.id == id {
					s.list = append(s.list[:i:i], s.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *subscribers) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.RLock()
	list := append([]subscription(nil), s.list...)
	s.mu.RUnlock()

	for _, change := range changes {
		for _, sub := range list {
			if sub.field == "" || sub.field == change.Field {
				sub.fn(change)
			}
		}
	}
}

// Subscribe calls fn whenever field changes value. The returned function
// removes the subscription.
func (s *Store) Subscribe(field string, fn func(Change)) (func(), error) {
	if _, ok := s.index.Lookup(field); !ok {
		return nil, &FieldError{Field: field, Err: ErrUnknownField}
	}
	if fn == nil {
		return func() {}, nil
	}
	return s.subs.add(field, fn), nil
}

// SubscribeAll calls fn for every field change.
func (s *Store) SubscribeAll(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	return s.subs.add("", fn)
}

// Watch streams changes of the named fields, or of every field when none are
// given, until ctx is done. The channel is closed afterwards. Once buffer is
// full, the goroutine applying a patch waits for the reader or for ctx.
func (s *Store) Watch(ctx context.Context, buffer int, names ...string) (<-chan Change, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	filter := map[string]struct{}{}
	for _, name := range names {
		if _, ok := s.index.Lookup(name); !ok {
			return nil, &FieldError{Field: name, Err: ErrUnknownField}
		}
		filter[name] = struct{}{}
	}
	if buffer < 0 {
		buffer = 0
	}

	w := &watcher{ctx: ctx, ch: make(chan Change, buffer)}
	unsubscribe := s.subs.add("", func(change Change) {
		if len(filter) > 0 {
			if _, ok := filter[change.Field]; !ok {
				return
			}
		}
		w.send(change)
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		w.close()
	}()
	return w.ch, nil
}

type watcher struct {
	mu     sync.Mutex
	ctx    context.Context
	ch     chan Change
	closed bool
}

func (w *watcher) send(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- change:
	case <-w.ctx.Done():
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}
