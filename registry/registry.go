// Package registry holds the in-memory state of translation tasks.
//
// Every read and write is a single critical section; callers never hold the
// lock across I/O. Snapshots are deep copies, so a reader can never observe a
// half-applied update or mutate stored state.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetTranslator/models"
)

const DefaultRetention = 1800 * time.Second

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func())

type Registry struct {
	mu        sync.Mutex
	tasks     map[string]*models.Task
	retention time.Duration
	after     AfterFunc
	newID     func() string
}

type Option func(*Registry)

// WithRetention overrides how long a finished task stays readable.
func WithRetention(d time.Duration) Option {
	return func(r *Registry) { r.retention = d }
}

// WithAfterFunc replaces the timer used for eviction.
func WithAfterFunc(after AfterFunc) Option {
	return func(r *Registry) { r.after = after }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		tasks:     make(map[string]*models.Task),
		retention: DefaultRetention,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		newID: shortID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Create stores a copy of initial under a fresh identifier and returns it.
// Any ID already set on initial is ignored.
func (r *Registry) Create(initial models.Task) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.tasks[id]; !taken {
			break
		}
		id = r.newID()
	}

	task := initial.Clone()
	task.ID = id
	r.tasks[id] = &task
	return id
}

// Update applies fn to the stored task. It returns false, without calling fn,
// when the task does not exist.
func (r *Registry) Update(id string, fn func(t *models.Task)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return false
	}
	fn(task)
	task.ID = id
	return true
}

func (r *Registry) Snapshot(id string) (models.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return task.Clone(), true
}

// RequestCancel raises the cancel flag of a task that has not finished yet.
// The second result is false when the task is unknown.
func (r *Registry) RequestCancel(id string) (accepted bool, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return false, false
	}
	if task.Status.Terminal() {
		return false, true
	}
	task.CancelRequested = true
	return true, true
}

// ScheduleEviction removes the task once the retention window has passed,
// whatever its status is at that time.
func (r *Registry) ScheduleEviction(id string) {
	r.after(r.retention, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.tasks, id)
	})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
