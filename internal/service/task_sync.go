package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"todo_webapp/internal/cache"
	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
	"todo_webapp/internal/notify"

	"golang.org/x/sync/singleflight"
)

// TaskStore is the persisted task collection. Implementations scope every call to userID.
type TaskStore interface {
	Insert(ctx context.Context, t domain.Task) (domain.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Task, error)
	Update(ctx context.Context, userID int64, id string, p domain.Patch, updatedAt time.Time) (domain.Task, error)
	Delete(ctx context.Context, userID int64, id string) error
}

// ActivityRecorder receives successful mutations for the user's activity trail.
type ActivityRecorder interface {
	LogTask(ctx context.Context, userID int64, action string, taskID string)
}

type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpToggle Op = "toggle"
)

var allOps = []Op{OpAdd, OpUpdate, OpDelete, OpToggle}

const (
	listTimeout     = 10 * time.Second
	maxListAttempts = 3
)

// OpState is where a single mutation is in its lifecycle.
type OpState string

const (
	StateIdle     OpState = "idle"
	StateInFlight OpState = "in_flight"
	StateSuccess  OpState = "success"
	StateFailed   OpState = "failed"
)

// Outcome is the settled result of a mutation. Failures are reported here and
// through the notifier; they are never returned as a bare error.
type Outcome struct {
	Op           Op                   `json:"op"`
	State        OpState              `json:"state"`
	Task         *domain.Task         `json:"task,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Err          error                `json:"-"`
}

func (o Outcome) OK() bool { return o.State == StateSuccess }

// CollectionState is the read lifecycle of a user's task collection.
type CollectionState string

const (
	CollectionUnloaded CollectionState = "unloaded"
	CollectionLoading  CollectionState = "loading"
	CollectionLoaded   CollectionState = "loaded"
	// CollectionStale means loaded once but invalidated; the next read refetches.
	CollectionStale CollectionState = "stale"
)

var (
	addedNotification = domain.Notification{
		Title:       "Task Added",
		Description: "Your new task has been created successfully.",
		Severity:    domain.SeverityDefault,
	}
	updatedNotification = domain.Notification{
		Title:       "Task Updated",
		Description: "Your task has been updated successfully.",
		Severity:    domain.SeverityDefault,
	}
	deletedNotification = domain.Notification{
		Title:       "Task Deleted",
		Description: "The task has been removed successfully.",
		Severity:    domain.SeverityDefault,
	}
)

type Deps struct {
	Store    TaskStore
	Cache    cache.ListCache
	Notifier notify.Notifier
	// optional
	Events   notify.EventPublisher
	Activity ActivityRecorder
	Now      func() time.Time
}

// TaskSync mediates every read and write of a user's tasks. Reads go through the
// cache; each successful write invalidates it so the next read refetches.
type TaskSync struct {
	store    TaskStore
	cache    cache.ListCache
	notifier notify.Notifier
	events   notify.EventPublisher
	activity ActivityRecorder
	now      func() time.Time

	sf singleflight.Group

	mu       sync.Mutex
	inflight map[int64]map[Op]int
	loading  map[int64]int
	loaded   map[int64]bool
	// gen counts successful writes per user
	gen map[int64]uint64
}

func NewTaskSync(d Deps) *TaskSync {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Log{}
	}
	return &TaskSync{
		store:    d.Store,
		cache:    d.Cache,
		notifier: d.Notifier,
		events:   d.Events,
		activity: d.Activity,
		now:      d.Now,
		inflight: make(map[int64]map[Op]int),
		loading:  make(map[int64]int),
		loaded:   make(map[int64]bool),
		gen:      make(map[int64]uint64),
	}
}

// List returns the user's tasks, newest first. Anonymous sessions get an empty list.
// Concurrent misses for one user share a single store read.
func (s *TaskSync) List(ctx context.Context, sess domain.Session) ([]domain.Task, error) {
	if !sess.Authenticated() {
		return []domain.Task{}, nil
	}
	userID := sess.UserID

	cached, found, err := s.cache.Get(ctx, userID)
	if err != nil {
		// fall through to the store on cache failure
		logger.WithContext(ctx).Warn("task cache read failed", "user_id", userID, "error", err)
	}
	if found {
		return cached, nil
	}

	var res loadResult
	for attempt := 0; ; attempt++ {
		gen := s.generation(userID)
		ch := s.sf.DoChan(flightKey(userID), func() (any, error) {
			return s.load(ctx, userID)
		})

		var r singleflight.Result
		select {
		case r = <-ch:
		case <-ctx.Done():
			return nil, domain.NewError(domain.KindTransport, "list", ctx.Err())
		}
		if r.Err != nil {
			logger.WithContext(ctx).Error("task list failed", "user_id", userID, "error", r.Err)
			if domain.KindOf(r.Err) == domain.KindTransport {
				return nil, domain.NewError(domain.KindTransport, "list", r.Err)
			}
			return nil, r.Err
		}

		res = r.Val.(loadResult)
		// a flight that started before a write this caller already saw is not good enough
		if res.gen >= gen || attempt >= maxListAttempts-1 {
			break
		}
	}

	out := make([]domain.Task, len(res.tasks))
	copy(out, res.tasks)
	return out, nil
}

type loadResult struct {
	tasks []domain.Task
	gen   uint64
}

// load reads the store on a context detached from the first caller, so one
// cancelled request does not fail everyone sharing the flight.
func (s *TaskSync) load(parent context.Context, userID int64) (loadResult, error) {
	s.setLoading(userID, 1)
	defer s.setLoading(userID, -1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), listTimeout)
	defer cancel()
	log := logger.WithContext(ctx)

	gen := s.generation(userID)
	start := time.Now()
	tasks, err := s.store.ListByUser(ctx, userID)
	storeDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	if err != nil {
		return loadResult{}, err
	}

	if err := s.cache.Set(ctx, userID, tasks); err != nil {
		log.Warn("task cache write failed", "user_id", userID, "error", err)
	}
	// a write that bumps gen after this check invalidates after our Set
	if s.generation(userID) != gen {
		log.Debug("task list raced a write, dropping cached copy", "user_id", userID)
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Warn("task cache invalidate failed", "user_id", userID, "error", err)
		}
	}
	s.markLoaded(userID)
	return loadResult{tasks: tasks, gen: gen}, nil
}

// Collection is a user's task list together with its read state.
type Collection struct {
	State CollectionState `json:"state"`
	Tasks []domain.Task   `json:"tasks"`
}

// Collection reads the user's tasks and reports the resulting state.
func (s *TaskSync) Collection(ctx context.Context, sess domain.Session) (Collection, error) {
	if !sess.Authenticated() {
		return Collection{State: CollectionUnloaded, Tasks: []domain.Task{}}, nil
	}
	tasks, err := s.List(ctx, sess)
	if err != nil {
		return Collection{}, err
	}
	return Collection{State: CollectionLoaded, Tasks: tasks}, nil
}

// View lists the user's tasks and derives the filtered subset and counts.
func (s *TaskSync) View(ctx context.Context, sess domain.Session, spec domain.FilterSpec) (domain.View, error) {
	tasks, err := s.List(ctx, sess)
	if err != nil {
		return domain.View{}, err
	}
	return domain.BuildView(tasks, spec), nil
}

// CollectionState peeks at the read lifecycle without fetching.
func (s *TaskSync) CollectionState(ctx context.Context, sess domain.Session) CollectionState {
	if !sess.Authenticated() {
		return CollectionUnloaded
	}

	s.mu.Lock()
	loading := s.loading[sess.UserID] > 0
	loaded := s.loaded[sess.UserID]
	s.mu.Unlock()

	if loading {
		return CollectionLoading
	}
	if _, found, _ := s.cache.Get(ctx, sess.UserID); found {
		return CollectionLoaded
	}
	if loaded {
		return CollectionStale
	}
	return CollectionUnloaded
}

// Pending reports whether a mutation of kind op is in flight for the session's user.
func (s *TaskSync) Pending(sess domain.Session, op Op) bool {
	if !sess.Authenticated() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[sess.UserID][op] > 0
}

// PendingAll reports Pending for every mutation kind.
func (s *TaskSync) PendingAll(sess domain.Session) map[Op]bool {
	out := make(map[Op]bool, len(allOps))
	for _, op := range allOps {
		out[op] = s.Pending(sess, op)
	}
	return out
}

// Add creates a task from draft. Completed stays false unless the draft sets it.
func (s *TaskSync) Add(ctx context.Context, sess domain.Session, draft domain.Draft) Outcome {
	return s.mutate(ctx, sess, OpAdd, &addedNotification, func(userID int64) (*domain.Task, error) {
		t, err := domain.NewTask(userID, draft, s.now())
		if err != nil {
			return nil, err
		}
		created, err := s.timedStore("insert", func() (domain.Task, error) {
			return s.store.Insert(ctx, t)
		})
		if err != nil {
			return nil, err
		}
		return &created, nil
	})
}

// Update applies a partial edit. The store decides whether id exists.
func (s *TaskSync) Update(ctx context.Context, sess domain.Session, id string, patch domain.Patch) Outcome {
	return s.mutate(ctx, sess, OpUpdate, &updatedNotification, func(userID int64) (*domain.Task, error) {
		p, err := patch.Normalize()
		if err != nil {
			return nil, err
		}
		updated, err := s.timedStore("update", func() (domain.Task, error) {
			return s.store.Update(ctx, userID, id, p, s.now())
		})
		if err != nil {
			return nil, err
		}
		return &updated, nil
	})
}

func (s *TaskSync) Delete(ctx context.Context, sess domain.Session, id string) Outcome {
	return s.mutate(ctx, sess, OpDelete, &deletedNotification, func(userID int64) (*domain.Task, error) {
		_, err := s.timedStore("delete", func() (domain.Task, error) {
			return domain.Task{}, s.store.Delete(ctx, userID, id)
		})
		return nil, err
	})
}

// Toggle flips Completed based on the cached collection, not on the store.
// An id missing from the collection fails before any write is issued.
// Two devices toggling the same task concurrently can both write the same value.
func (s *TaskSync) Toggle(ctx context.Context, sess domain.Session, id string) Outcome {
	return s.mutate(ctx, sess, OpToggle, nil, func(userID int64) (*domain.Task, error) {
		tasks, err := s.List(ctx, sess)
		if err != nil {
			return nil, err
		}
		current, ok := domain.FindTask(tasks, id)
		if !ok {
			return nil, domain.NotFound("toggle")
		}

		completed := !current.Completed
		updated, err := s.timedStore("update", func() (domain.Task, error) {
			return s.store.Update(ctx, userID, id, domain.Patch{Completed: &completed}, s.now())
		})
		if err != nil {
			return nil, err
		}
		return &updated, nil
	})
}

func (s *TaskSync) mutate(ctx context.Context, sess domain.Session, op Op, success *domain.Notification, fn func(userID int64) (*domain.Task, error)) Outcome {
	log := logger.WithContext(ctx).With("op", string(op), "user_id", sess.UserID)

	if !sess.Authenticated() {
		return s.fail(ctx, log, sess.UserID, op, domain.AuthRequired(string(op)))
	}
	userID := sess.UserID

	s.track(userID, op, 1)
	defer s.track(userID, op, -1)

	task, err := fn(userID)
	if err != nil {
		return s.fail(ctx, log, userID, op, err)
	}

	s.bump(userID)
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Warn("task cache invalidate failed", "error", err)
	}
	if s.events != nil {
		s.events.PublishInvalidate(ctx, userID)
	}
	if s.activity != nil {
		taskID := ""
		if task != nil {
			taskID = task.ID
		}
		s.activity.LogTask(ctx, userID, auditAction(op), taskID)
	}

	out := Outcome{Op: op, State: StateSuccess, Task: task}
	if success != nil {
		n := *success
		s.notifier.Notify(ctx, userID, n)
		out.Notification = &n
	}

	syncOperations.WithLabelValues(string(op), string(StateSuccess)).Inc()
	log.Info("task mutation succeeded")
	return out
}

func (s *TaskSync) fail(ctx context.Context, log *slog.Logger, userID int64, op Op, err error) Outcome {
	n := domain.ErrorNotification(err)
	s.notifier.Notify(ctx, userID, n)
	syncOperations.WithLabelValues(string(op), string(StateFailed)).Inc()
	log.Warn("task mutation failed", "kind", domain.KindOf(err).String(), "error", err)
	return Outcome{Op: op, State: StateFailed, Notification: &n, Err: err}
}

func (s *TaskSync) timedStore(op string, call func() (domain.Task, error)) (domain.Task, error) {
	start := time.Now()
	t, err := call()
	storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && domain.KindOf(err) == domain.KindTransport {
		err = domain.NewError(domain.KindTransport, op, err)
	}
	return t, err
}

func (s *TaskSync) track(userID int64, op Op, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops, ok := s.inflight[userID]
	if !ok {
		ops = make(map[Op]int)
		s.inflight[userID] = ops
	}
	ops[op] += delta
	if ops[op] <= 0 {
		delete(ops, op)
	}
	if len(ops) == 0 {
		delete(s.inflight, userID)
	}
}

func (s *TaskSync) setLoading(userID int64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[userID] += delta
	if s.loading[userID] <= 0 {
		delete(s.loading, userID)
	}
}

func (s *TaskSync) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[userID]
}

// bump records a successful write. Reads that start afterwards get a fresh flight.
func (s *TaskSync) bump(userID int64) {
	s.mu.Lock()
	s.gen[userID]++
	s.mu.Unlock()
	s.sf.Forget(flightKey(userID))
}

func flightKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (s *TaskSync) markLoaded(userID int64) {
	s.mu.Lock()
	s.loaded[userID] = true
	s.mu.Unlock()
}

func auditAction(op Op) string {
	switch op {
	case OpAdd:
		return domain.AuditActionTaskAdd
	case OpUpdate:
		return domain.AuditActionTaskUpdate
	case OpDelete:
		return domain.AuditActionTaskDelete
	default:
		return domain.AuditActionTaskToggle
	}
}
