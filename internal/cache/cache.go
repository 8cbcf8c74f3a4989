package cache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Status int

const (
	// StatusDisabled - нет токена, запросы не выполняются
	StatusDisabled Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the snapshot a read or subscription delivers. Data is set only
// on StatusSuccess; after a failed refetch the previous data is retained as
// Fallback and must not be rendered as current.
type Result struct {
	Status   Status
	Data     any
	Fallback any
	Err      string
}

// FetchFunc loads the data for one resource, parameterized by the
// normalized key params.
type FetchFunc func(ctx context.Context, params string) (any, error)

// Session gates all fetching: while no token exists entries stay disabled
// instead of failing, and Events signals when that may have changed.
type Session interface {
	Token() (string, bool)
	Events() <-chan struct{}
}

// Runner executes fetch jobs in the background.
type Runner interface {
	Submit(job func(context.Context)) bool
}

type Unsubscribe func()

type entry struct {
	status   Status
	data     any
	errMsg   string
	stale    bool
	inflight bool
	queued   bool   // refetch requested while a fetch was in flight
	gen      uint64 // newest started fetch; older completions are discarded
}

type notification struct {
	fn  func(Result)
	res Result
}

// Store is the keyed, invalidation-capable query cache. Reads are served
// from memory immediately; a missing or stale entry triggers exactly one
// background fetch per key, and concurrent readers attach to it.
type Store struct {
	session Session
	runner  Runner
	logger  *zap.Logger

	mu       sync.Mutex
	fetchers map[string]FetchFunc
	entries  map[Key]*entry
	subs     map[Key]map[int]func(Result)
	nextSub  int

	// notifyMu orders subscriber callbacks across goroutines. It is taken
	// before mu is released, so deliveries cannot overtake each other.
	// Callbacks must not call back into the Store.
	notifyMu sync.Mutex
}

func NewStore(session Session, runner Runner, logger *zap.Logger) *Store {
	return &Store{
		session:  session,
		runner:   runner,
		logger:   logger,
		fetchers: make(map[string]FetchFunc),
		entries:  make(map[Key]*entry),
		subs:     make(map[Key]map[int]func(Result)),
	}
}

// Register installs the fetcher for a resource kind. Must be called before
// any key of that resource is read.
func (s *Store) Register(resource string, fn FetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchers[resource] = fn
}

// Start reacts to session changes: a token appearing wakes disabled entries,
// a token disappearing returns every entry to the disabled state.
func (s *Store) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.session.Events():
				s.onSessionChange()
			}
		}
	}()
}

// Read returns the current snapshot for the key, triggering a background
// fetch when the entry is missing or stale. Errors are not retried by
// re-reading; only invalidation or a key change starts a new fetch.
func (s *Store) Read(key Key) Result {
	s.mu.Lock()
	e := s.entry(key)
	var notifs []notification
	if !e.inflight && e.stale {
		before := e.status
		s.startFetchLocked(key, e)
		if e.status != before {
			notifs = s.collectLocked(key, e)
		}
	}
	res := snapshot(e)
	s.deliverLocked(notifs)
	return res
}

// Subscribe registers a callback for every state change of the key and
// delivers the current snapshot immediately. Observed keys are refetched
// in the background when invalidated.
func (s *Store) Subscribe(key Key, fn func(Result)) Unsubscribe {
	s.mu.Lock()
	e := s.entry(key)
	id := s.nextSub
	s.nextSub++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func(Result))
	}
	s.subs[key][id] = fn

	before := e.status
	if !e.inflight && e.stale {
		s.startFetchLocked(key, e)
	}
	var notifs []notification
	if e.status != before {
		// The kicked-off fetch is a transition every subscriber should see
		notifs = s.collectLocked(key, e)
	} else {
		notifs = []notification{{fn: fn, res: snapshot(e)}}
	}
	s.deliverLocked(notifs)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

// Invalidate marks every entry whose resource matches the prefix as stale.
// Observed keys refetch right away; the rest refetch on their next read.
// Invalidating twice with no intervening fetch queues a single refetch.
func (s *Store) Invalidate(resourcePrefix string) {
	s.mu.Lock()
	var notifs []notification
	for key, e := range s.entries {
		if !strings.HasPrefix(key.Resource, resourcePrefix) {
			continue
		}
		e.stale = true
		if e.inflight {
			e.queued = true
			continue
		}
		if s.observedLocked(key) {
			before := e.status
			s.startFetchLocked(key, e)
			if e.status != before {
				notifs = append(notifs, s.collectLocked(key, e)...)
			}
		}
	}
	s.deliverLocked(notifs)
}

// entry returns the cached entry, creating a fresh stale one on first use.
// Must be called with the lock held.
func (s *Store) entry(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{status: StatusDisabled, stale: true}
		s.entries[key] = e
	}
	return e
}

// startFetchLocked transitions the entry to loading and submits the fetch,
// unless no token exists, in which case the entry stays disabled and no
// network call is made.
func (s *Store) startFetchLocked(key Key, e *entry) {
	if _, ok := s.session.Token(); !ok {
		e.status = StatusDisabled
		return
	}

	fn, ok := s.fetchers[key.Resource]
	if !ok {
		s.logger.Error("no fetcher registered", zap.String("resource", key.Resource))
		return
	}

	e.gen++
	gen := e.gen
	prev := e.status
	e.inflight = true
	e.stale = false
	e.status = StatusLoading

	submitted := s.runner.Submit(func(ctx context.Context) {
		data, err := fn(ctx, key.Params)
		s.apply(key, gen, data, err)
	})
	if !submitted {
		// Пул остановлен - откатываем
		e.inflight = false
		e.stale = true
		e.status = prev
	}
}

// apply records a completed fetch. A completion that is not the newest
// started fetch for its key was superseded and is discarded.
func (s *Store) apply(key Key, gen uint64, data any, err error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || gen != e.gen {
		s.mu.Unlock()
		return
	}

	e.inflight = false
	if err != nil {
		e.status = StatusError
		e.errMsg = err.Error()
		// Прежние данные остаются как fallback
	} else {
		e.status = StatusSuccess
		e.data = data
		e.errMsg = ""
	}

	if e.queued {
		e.queued = false
		s.startFetchLocked(key, e)
	}
	notifs := s.collectLocked(key, e)
	s.deliverLocked(notifs)
}

// onSessionChange re-keys the whole cache on login/logout.
func (s *Store) onSessionChange() {
	s.mu.Lock()
	_, haveToken := s.session.Token()
	var notifs []notification
	for key, e := range s.entries {
		if !haveToken {
			// In-flight completions for the old session are discarded
			changed := e.status != StatusDisabled
			e.gen++
			e.inflight = false
			e.queued = false
			e.stale = true
			e.status = StatusDisabled
			e.errMsg = ""
			if changed {
				notifs = append(notifs, s.collectLocked(key, e)...)
			}
			continue
		}

		e.stale = true
		if e.inflight {
			e.queued = true
			continue
		}
		if s.observedLocked(key) {
			before := e.status
			s.startFetchLocked(key, e)
			if e.status != before {
				notifs = append(notifs, s.collectLocked(key, e)...)
			}
		}
	}
	s.deliverLocked(notifs)
}

func (s *Store) observedLocked(key Key) bool {
	return len(s.subs[key]) > 0
}

func (s *Store) collectLocked(key Key, e *entry) []notification {
	subs := s.subs[key]
	if len(subs) == 0 {
		return nil
	}
	res := snapshot(e)
	notifs := make([]notification, 0, len(subs))
	for _, fn := range subs {
		notifs = append(notifs, notification{fn: fn, res: res})
	}
	return notifs
}

func snapshot(e *entry) Result {
	switch e.status {
	case StatusSuccess:
		return Result{Status: StatusSuccess, Data: e.data}
	case StatusError:
		return Result{Status: StatusError, Err: e.errMsg, Fallback: e.data}
	default:
		return Result{Status: e.status}
	}
}

// deliverLocked releases mu and runs the callbacks under the notify lock,
// which is acquired before mu is released.
func (s *Store) deliverLocked(notifs []notification) {
	if len(notifs) == 0 {
		s.mu.Unlock()
		return
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, n := range notifs {
		n.fn(n.res)
	}
	s.notifyMu.Unlock()
}
