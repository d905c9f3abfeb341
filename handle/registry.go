package handle

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
)

// liveMarker is stored in every entry while it is live and cleared on release.
const liveMarker uint32 = 0xFF00F0A5

var (
	ErrClosed = errors.New(errors.PhaseRegistry, errors.KindConstruction).
			Detail("handle registry closed").Build()
	ErrPinned = errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
			ID("registry", "pinned").Detail("objects are still outstanding").Build()
	// ErrNilValue is the cause of a construction that returned no object.
	ErrNilValue = errors.New(errors.PhaseRegistry, errors.KindConstruction).
			Detail("Constructor failed silently.").Build()
	// ErrBusy is returned when releasing an entry that a Use call is still
	// running on.
	ErrBusy = errors.New(errors.PhaseRegistry, errors.KindInvalidHandle).
			ID("invalidObjectHandle").Detail("Handle is in use by a running action.").Build()
)

type entry struct {
	value  any
	tag    Tag
	token  Token
	marker uint32
	uses   int
	mu     sync.Mutex
}

type slot struct {
	e   *entry
	gen uint32
}

// Registry owns native objects referenced from the host side by Token.
// Slots are reused through a free list; each reuse bumps the slot
// generation so stale tokens never resolve to the new occupant.
type Registry struct {
	pinner     Pinner
	slots      []slot
	freeList   []uint32
	observers  []Observer
	live       int
	maxEntries int
	mu         sync.RWMutex
	obsMu      sync.RWMutex
	closed     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithPinner sets the pin/unpin callbacks of the hosting module.
func WithPinner(p Pinner) Option {
	return func(r *Registry) {
		r.pinner = p
	}
}

// WithMaxEntries limits the number of live entries. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(r *Registry) {
		r.maxEntries = n
	}
}

// WithObserver subscribes o before the registry is used.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, o)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
		pinner:   &CountingPinner{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry. It starts with no pins.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Allocate runs ctor and stores its result under a new token.
// If ctor fails, panics or returns a nil value no token is issued and
// nothing is pinned.
func (r *Registry) Allocate(tag Tag, ctor func() (any, error)) (Token, error) {
	if tag.IsZero() {
		return 0, errors.Construction(nil, "allocate without a type tag")
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return 0, ErrClosed
	}

	value, err := construct(ctor)
	if err == nil && isNil(value) {
		err = ErrNilValue
	}
	if err != nil {
		return 0, errors.Construction(err, fmt.Sprintf("construct %s", tag))
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		dropValue(value)
		return 0, ErrClosed
	}
	if r.maxEntries > 0 && r.live >= r.maxEntries {
		r.mu.Unlock()
		dropValue(value)
		return 0, errors.Construction(nil, fmt.Sprintf("handle registry full (%d entries)", r.maxEntries))
	}

	var idx uint32
	if n := len(r.freeList); n > 0 {
		idx = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		if uint64(len(r.slots)) >= math.MaxUint32 {
			r.mu.Unlock()
			dropValue(value)
			return 0, errors.Construction(nil, "handle registry index space exhausted")
		}
		r.slots = append(r.slots, slot{})
		idx = uint32(len(r.slots) - 1)
	}

	tok := makeToken(idx, r.slots[idx].gen)
	r.slots[idx].e = &entry{
		value:  value,
		tag:    tag,
		token:  tok,
		marker: liveMarker,
	}
	r.live++
	r.mu.Unlock()

	r.pinner.Pin()
	Logger().Debug("handle allocated", zap.Stringer("token", tok), zap.Stringer("type", tag))
	r.notify(Event{Type: EventAllocated, Token: tok, Tag: tag, Value: value})
	return tok, nil
}

func construct(ctor func() (any, error)) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("constructor panicked: %v", p)
		}
	}()
	return ctor()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

func dropValue(v any) {
	if d, ok := v.(Dropper); ok {
		d.Drop()
	}
}

// lookup validates the token against the slot table and the entry's tag.
// Liveness is checked by the caller under the entry lock.
func (r *Registry) lookup(tok Token, tag Tag) (*entry, error) {
	idx, ok := tok.index()
	if !ok {
		return nil, errors.InvalidHandle("Handle is null.")
	}

	r.mu.RLock()
	if int(idx) >= len(r.slots) {
		r.mu.RUnlock()
		return nil, errors.InvalidHandle("Handle does not refer to a registry entry.")
	}
	s := r.slots[idx]
	r.mu.RUnlock()

	if s.e == nil || s.gen != tok.generation() {
		return nil, errors.InvalidHandle("Handle not valid.")
	}
	if s.e.tag != tag {
		return nil, errors.InvalidHandle("Handle is either invalid or not wrapping the intended object.")
	}
	return s.e, nil
}

func (e *entry) alive() bool {
	return e.marker == liveMarker
}

// Resolve returns the value stored under tok if tok is live and was
// created for tag.
func (r *Registry) Resolve(tok Token, tag Tag) (any, error) {
	e, err := r.lookup(tok, tag)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.alive() {
		return nil, errors.InvalidHandle("Handle not valid.")
	}
	return e.value, nil
}

// Use validates tok and calls fn with its value. The entry is marked in use
// until fn returns: Release and Detach fail with ErrBusy meanwhile, while
// nested Use calls on the same token, including from fn itself, go through.
func (r *Registry) Use(tok Token, tag Tag, fn func(any) error) error {
	e, err := r.lookup(tok, tag)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if !e.alive() {
		e.mu.Unlock()
		return errors.InvalidHandle("Handle not valid.")
	}
	e.uses++
	value := e.value
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.uses--
		e.mu.Unlock()
	}()
	return fn(value)
}

// Release destroys the entry behind tok: the liveness marker is cleared,
// the value's Drop is called if it has one, and the module is unpinned.
// Releasing the same token twice returns an invalid handle error.
func (r *Registry) Release(tok Token, tag Tag) error {
	value, err := r.remove(tok, tag)
	if err != nil {
		return err
	}
	dropValue(value)
	r.pinner.Unpin()
	Logger().Debug("handle released", zap.Stringer("token", tok), zap.Stringer("type", tag))
	r.notify(Event{Type: EventReleased, Token: tok, Tag: tag, Value: value})
	return nil
}

// Detach removes the entry behind tok like Release but hands the value back
// to the caller instead of dropping it.
func (r *Registry) Detach(tok Token, tag Tag) (any, error) {
	value, err := r.remove(tok, tag)
	if err != nil {
		return nil, err
	}
	r.pinner.Unpin()
	Logger().Debug("handle detached", zap.Stringer("token", tok), zap.Stringer("type", tag))
	r.notify(Event{Type: EventDetached, Token: tok, Tag: tag, Value: value})
	return value, nil
}

func (r *Registry) remove(tok Token, tag Tag) (any, error) {
	e, err := r.lookup(tok, tag)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.alive() {
		e.mu.Unlock()
		return nil, errors.InvalidHandle("Handle not valid.")
	}
	if e.uses > 0 {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.marker = 0
	value := e.value
	e.value = nil
	e.mu.Unlock()

	idx, _ := tok.index()
	r.mu.Lock()
	s := &r.slots[idx]
	s.e = nil
	if s.gen < math.MaxUint32 {
		s.gen++
		r.freeList = append(r.freeList, idx)
	}
	// A slot whose generation is exhausted is retired rather than reused.
	r.live--
	r.mu.Unlock()

	return value, nil
}

// Outstanding returns the number of live entries.
func (r *Registry) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Each calls fn for every live entry until fn returns false.
func (r *Registry) Each(fn func(Token, Tag) bool) {
	r.mu.RLock()
	tokens := make([]Token, 0, r.live)
	tags := make([]Tag, 0, r.live)
	for _, s := range r.slots {
		if s.e != nil {
			tokens = append(tokens, s.e.token)
			tags = append(tags, s.e.tag)
		}
	}
	r.mu.RUnlock()

	for i := range tokens {
		if !fn(tokens[i], tags[i]) {
			return
		}
	}
}

// Unload reports whether the hosting module may be unloaded. It refuses
// with ErrPinned while any entry is live.
func (r *Registry) Unload() error {
	if n := r.Outstanding(); n > 0 {
		Logger().Warn("refusing to unload with live objects", zap.Int("outstanding", n))
		return errors.Wrap(errors.PhaseRegistry, errors.KindInvalidInput, ErrPinned.ID,
			fmt.Errorf("%d objects outstanding: %w", n, ErrPinned))
	}
	return nil
}

// Close releases every live entry and stops accepting allocations.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var tokens []Token
	var tags []Tag
	r.Each(func(tok Token, tag Tag) bool {
		tokens = append(tokens, tok)
		tags = append(tags, tag)
		return true
	})
	if len(tokens) > 0 {
		Logger().Warn("tearing down registry with live objects", zap.Int("outstanding", len(tokens)))
	}
	for i := range tokens {
		// Entries released concurrently since Each are skipped.
		if err := r.Release(tokens[i], tags[i]); err == ErrBusy {
			Logger().Warn("entry still in use at teardown", zap.Stringer("token", tokens[i]))
		}
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnHandleEvent(e)
	}
}
