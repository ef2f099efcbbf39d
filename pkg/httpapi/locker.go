package httpapi

import "sync"

// LockKind distinguishes the two lock modes a name can be held in.
type LockKind int

const (
	// Shared permits concurrent holders, all requesting Shared.
	Shared LockKind = iota
	// Exclusive permits exactly one holder at a time.
	Exclusive
)

func compatible(a, b LockKind) bool { return a == Shared && b == Shared }

type waiter struct {
	owner string
	kind  LockKind
	ready chan struct{}
}

type lockEntry struct {
	holders map[string]LockKind
	refs    map[string]int
	queue   []*waiter
}

// LockManager is a per-storage name locker providing shared/exclusive
// locking keyed by an opaque name string (§4.9). A lock is reentrant: an
// owner that already holds a name is granted any further compatible
// request on it immediately, without queueing behind itself. Incompatible
// requests queue FIFO, so a queued exclusive request is never starved by
// a stream of later-arriving shared requests (§4.9, "queue FIFO to avoid
// writer starvation").
//
// Grounded on the teacher's pkg/middleware idiom of a mutex-guarded map
// keyed by opaque string (rate limiter bucket keys in
// pkg/middleware/ratelimit.go), generalised here from a token-bucket
// counter to a full reader/writer admission queue.
type LockManager struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewLockManager builds an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{entries: make(map[string]*lockEntry)}
}

func (l *LockManager) entryFor(name string) *lockEntry {
	e, ok := l.entries[name]
	if !ok {
		e = &lockEntry{holders: make(map[string]LockKind), refs: make(map[string]int)}
		l.entries[name] = e
	}
	return e
}

// Acquire blocks until owner holds name in the given kind, or ctx-less
// immediate return if already reentrant-compatible. Release must be
// called exactly once per successful Acquire.
func (l *LockManager) Acquire(name, owner string, kind LockKind) {
	l.mu.Lock()
	e := l.entryFor(name)

	if existing, ok := e.holders[owner]; ok && (existing == Exclusive || compatible(existing, kind)) {
		e.refs[owner]++
		l.mu.Unlock()
		return
	}

	if len(e.queue) == 0 && l.admissible(e, kind) {
		e.holders[owner] = kind
		e.refs[owner]++
		l.mu.Unlock()
		return
	}

	w := &waiter{owner: owner, kind: kind, ready: make(chan struct{})}
	e.queue = append(e.queue, w)
	l.mu.Unlock()
	<-w.ready
}

// admissible reports whether kind may be granted immediately given e's
// current holders (the queue is assumed empty; callers check that).
func (l *LockManager) admissible(e *lockEntry, kind LockKind) bool {
	if len(e.holders) == 0 {
		return true
	}
	if kind != Shared {
		return false
	}
	for _, held := range e.holders {
		if held != Shared {
			return false
		}
	}
	return true
}

// Release releases one reentrant level of owner's hold on name, waking
// the next admissible run of queued waiters once owner's hold is fully
// released.
func (l *LockManager) Release(name, owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[name]
	if !ok {
		return
	}
	e.refs[owner]--
	if e.refs[owner] > 0 {
		return
	}
	delete(e.refs, owner)
	delete(e.holders, owner)

	if len(e.holders) == 0 {
		l.admitQueued(e)
	}
	if len(e.holders) == 0 && len(e.queue) == 0 {
		delete(l.entries, name)
	}
}

// admitQueued grants the longest admissible run at the front of the
// queue: the first waiter always starts a run; if it is Shared, every
// immediately-following Shared waiter joins the same run; an Exclusive
// waiter always runs alone.
func (l *LockManager) admitQueued(e *lockEntry) {
	if len(e.queue) == 0 {
		return
	}
	first := e.queue[0]
	granted := 1
	if first.kind == Shared {
		for granted < len(e.queue) && e.queue[granted].kind == Shared {
			granted++
		}
	}
	for _, w := range e.queue[:granted] {
		e.holders[w.owner] = w.kind
		e.refs[w.owner]++
		close(w.ready)
	}
	e.queue = e.queue[granted:]
}
