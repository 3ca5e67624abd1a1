package appstate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTaskQueueRunsInOrder(t *testing.T) {
	queue := NewTaskQueue()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		queue.Schedule(func() { order = append(order, i) })
	}
	if queue.Len() != 3 {
		t.Fatalf("expected three queued tasks, got %d", queue.Len())
	}
	if ran := queue.RunPending(); ran != 3 {
		t.Fatalf("expected three tasks run, got %d", ran)
	}
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestTaskQueueDefersTasksScheduledDuringTick(t *testing.T) {
	queue := NewTaskQueue()
	nested := false
	queue.Schedule(func() {
		queue.Schedule(func() { nested = true })
	})

	if ran := queue.RunPending(); ran != 1 || nested {
		t.Fatalf("expected nested task to wait for the next tick")
	}
	if ran := queue.RunPending(); ran != 1 || !nested {
		t.Fatalf("expected nested task on second tick")
	}
}

func TestTaskCancel(t *testing.T) {
	queue := NewTaskQueue()
	ran := false
	task := queue.Schedule(func() { ran = true })
	if !task.Cancel() {
		t.Fatalf("expected first cancel to succeed")
	}
	if task.Cancel() {
		t.Fatalf("expected second cancel to report false")
	}
	if queue.Drain() != 0 || ran {
		t.Fatalf("expected cancelled task not to run")
	}

	done := queue.Schedule(func() {})
	queue.RunPending()
	if done.Cancel() {
		t.Fatalf("expected cancel after run to report false")
	}
	if queue.Schedule(nil).Cancel() {
		t.Fatalf("expected nil task to be inert")
	}
}

func TestTaskQueueRunUntilCancelled(t *testing.T) {
	queue := NewTaskQueue()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- queue.Run(ctx) }()

	done := make(chan struct{})
	queue.Schedule(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for task")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for Run to return")
	}
}

func TestStoreQueueRunsDeferredPop(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Queue().Run(ctx) }()

	changed := make(chan Change, 4)
	if _, err := store.Subscribe("title", func(change Change) { changed <- change }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := store.ApplyState(context.Background(), Patch{"page": PageCategory, "title": "Shoes"}, TransitionPop); err != nil {
		t.Fatalf("pop: %v", err)
	}

	select {
	case change := <-changed:
		if change.Phase != PhaseDeferred || change.New != "Shoes" {
			t.Fatalf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for deferred phase")
	}
}
