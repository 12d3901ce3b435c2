package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"sheetTranslator/models"
)

type fakeTimer struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (f *fakeTimer) after(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.pending = append(f.pending, fn)
}

func (f *fakeTimer) fire() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func TestRegistry_Create_AssignsUniqueIDs(t *testing.T) {
	r := New()

	const n = 500
	ids := make(chan string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids <- r.Create(models.Task{Status: models.StatusIdle, Filename: fmt.Sprintf("f%d.xlsx", i)})
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if len(id) != 12 {
			t.Errorf("expected 12 char id, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if r.Len() != n {
		t.Fatalf("expected %d tasks, got %d", n, r.Len())
	}
}

func TestRegistry_Create_RetriesOnCollision(t *testing.T) {
	r := New()
	calls := 0
	r.newID = func() string {
		calls++
		if calls <= 2 {
			return "aaaaaaaaaaaa"
		}
		return "bbbbbbbbbbbb"
	}

	first := r.Create(models.Task{})
	second := r.Create(models.Task{})

	if first != "aaaaaaaaaaaa" || second != "bbbbbbbbbbbb" {
		t.Fatalf("unexpected ids %s, %s", first, second)
	}
}

func TestRegistry_Update_MissingTaskIsNoop(t *testing.T) {
	r := New()

	called := false
	ok := r.Update("missing", func(t *models.Task) { called = true })

	if ok || called {
		t.Fatalf("expected no-op update, got ok=%v called=%v", ok, called)
	}
}

func TestRegistry_Snapshot_ReturnsCopy(t *testing.T) {
	r := New()
	now := time.Now()
	id := r.Create(models.Task{Status: models.StatusIdle, StartedAt: &now})

	snap, ok := r.Snapshot(id)
	if !ok {
		t.Fatal("expected task to exist")
	}
	snap.Status = models.StatusDone
	*snap.StartedAt = now.Add(time.Hour)

	again, _ := r.Snapshot(id)
	if again.Status != models.StatusIdle {
		t.Errorf("snapshot mutation leaked into registry: %s", again.Status)
	}
	if !again.StartedAt.Equal(now) {
		t.Errorf("timestamp mutation leaked into registry: %v", again.StartedAt)
	}
}

func TestRegistry_Snapshot_Missing(t *testing.T) {
	r := New()

	if _, ok := r.Snapshot("nope"); ok {
		t.Fatal("expected missing task")
	}
}

func TestRegistry_Update_ConcurrentWriters(t *testing.T) {
	r := New()
	id := r.Create(models.Task{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Update(id, func(t *models.Task) { t.Current++ })
			r.Snapshot(id)
		}()
	}
	wg.Wait()

	snap, _ := r.Snapshot(id)
	if snap.Current != 100 {
		t.Fatalf("expected 100 increments, got %d", snap.Current)
	}
}

func TestRegistry_RequestCancel(t *testing.T) {
	r := New()
	running := r.Create(models.Task{Status: models.StatusRunning})
	finished := r.Create(models.Task{Status: models.StatusDone})

	if accepted, found := r.RequestCancel(running); !accepted || !found {
		t.Errorf("expected cancel accepted, got accepted=%v found=%v", accepted, found)
	}
	if snap, _ := r.Snapshot(running); !snap.CancelRequested {
		t.Error("expected cancel flag to be set")
	}
	if accepted, found := r.RequestCancel(finished); accepted || !found {
		t.Errorf("expected cancel refused for finished task, got accepted=%v found=%v", accepted, found)
	}
	if _, found := r.RequestCancel("missing"); found {
		t.Error("expected missing task")
	}
}

func TestRegistry_ScheduleEviction(t *testing.T) {
	timer := &fakeTimer{}
	r := New(WithRetention(30*time.Minute), WithAfterFunc(timer.after))
	id := r.Create(models.Task{Status: models.StatusDone})

	r.ScheduleEviction(id)

	if _, ok := r.Snapshot(id); !ok {
		t.Fatal("task must stay readable until the retention window elapses")
	}
	if len(timer.delays) != 1 || timer.delays[0] != 30*time.Minute {
		t.Fatalf("unexpected eviction delays %v", timer.delays)
	}

	timer.fire()

	if _, ok := r.Snapshot(id); ok {
		t.Fatal("expected task to be evicted")
	}
	if r.Update(id, func(t *models.Task) { t.Percent = 50 }) {
		t.Fatal("update after eviction must be a no-op")
	}
}

func TestRegistry_ScheduleEviction_RealTimer(t *testing.T) {
	r := New(WithRetention(10 * time.Millisecond))
	id := r.Create(models.Task{Status: models.StatusError})

	r.ScheduleEviction(id)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Snapshot(id); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task was not evicted")
}
