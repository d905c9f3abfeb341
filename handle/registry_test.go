package handle

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/wippyai/objbridge/errors"
)

type counter struct {
	value   int
	dropped int
}

func (c *counter) Drop() { c.dropped++ }

type timer struct {
	ticks int
}

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

func nilCause(err error) bool {
	var e *errors.Error
	return errors.As(err, &e) && e.Cause == ErrNilValue
}

func isInvalidHandle(err error) bool {
	return errors.KindOf(err) == errors.KindInvalidHandle
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := NewRegistry()

	tok, err := Allocate(r, func() (*counter, error) { return &counter{value: 7}, nil })
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if tok == 0 {
		t.Fatal("Expected non-zero token")
	}

	c, err := Resolve[*counter](r, tok)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.value != 7 {
		t.Fatalf("Expected value 7, got %d", c.value)
	}

	if err := Release[*counter](r, tok); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if c.dropped != 1 {
		t.Fatalf("Expected Drop() once, got %d", c.dropped)
	}

	_, err = Resolve[*counter](r, tok)
	if !isInvalidHandle(err) {
		t.Fatalf("Expected invalid handle after Release, got %v", err)
	}
}

func TestRegistry_TypeTagIsolation(t *testing.T) {
	r := NewRegistry()

	tok, err := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve[*timer](r, tok); !isInvalidHandle(err) {
		t.Fatalf("Expected invalid handle for foreign type, got %v", err)
	}
	if err := Release[*timer](r, tok); !isInvalidHandle(err) {
		t.Fatalf("Expected invalid handle releasing as foreign type, got %v", err)
	}
	if _, err := Resolve[counter](r, tok); !isInvalidHandle(err) {
		t.Fatal("Value and pointer types must have different tags")
	}

	// The entry must survive the rejected release.
	if _, err := Resolve[*counter](r, tok); err != nil {
		t.Fatalf("Resolve with the right type failed: %v", err)
	}
}

func TestRegistry_ForgedTokens(t *testing.T) {
	r := NewRegistry()
	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })

	forged := []Token{
		0,
		tok + 1,                       // index past the table
		tok | Token(1)<<40,            // wrong generation
		Token(0xFFFFFFFF00000000),     // zero index bits
		Token(0xFFFFFFFFFFFFFFFF),     // everything set
		makeToken(1000, tok.generation()),
	}
	for _, f := range forged {
		if _, err := Resolve[*counter](r, f); !isInvalidHandle(err) {
			t.Errorf("Resolve(%v): expected invalid handle, got %v", f, err)
		}
	}
}

func TestRegistry_DoubleRelease(t *testing.T) {
	r := NewRegistry()
	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })

	if err := Release[*counter](r, tok); err != nil {
		t.Fatal(err)
	}
	if err := Release[*counter](r, tok); !isInvalidHandle(err) {
		t.Fatalf("Expected invalid handle on second Release, got %v", err)
	}
	if r.Outstanding() != 0 {
		t.Fatalf("Outstanding = %d after double release", r.Outstanding())
	}
}

func TestRegistry_SlotReuseBumpsGeneration(t *testing.T) {
	r := NewRegistry()
	old, _ := Allocate(r, func() (*counter, error) { return &counter{value: 1}, nil })
	if err := Release[*counter](r, old); err != nil {
		t.Fatal(err)
	}

	fresh, _ := Allocate(r, func() (*counter, error) { return &counter{value: 2}, nil })
	oldIdx, _ := old.index()
	freshIdx, _ := fresh.index()
	if oldIdx != freshIdx {
		t.Fatalf("Expected slot reuse, got %d and %d", oldIdx, freshIdx)
	}
	if old == fresh {
		t.Fatal("Reused slot must issue a different token")
	}

	if _, err := Resolve[*counter](r, old); !isInvalidHandle(err) {
		t.Fatal("Stale token resolved to the new occupant")
	}
	c, err := Resolve[*counter](r, fresh)
	if err != nil || c.value != 2 {
		t.Fatalf("Resolve(fresh) = %v, %v", c, err)
	}
}

func TestRegistry_ConstructionFailure(t *testing.T) {
	pinner := &CountingPinner{}
	r := NewRegistry(WithPinner(pinner))
	cause := errors.Raise("counter:badInit", "initial value out of range")

	tok, err := Allocate(r, func() (*counter, error) { return nil, cause })
	if tok != 0 {
		t.Fatal("Failed construction must not issue a token")
	}
	if errors.KindOf(err) != errors.KindConstruction {
		t.Fatalf("Expected construction error, got %v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("Construction error must wrap the constructor error")
	}
	if errors.IDOf(err) != "counter:badInit" {
		t.Fatalf("IDOf = %q, want native id", errors.IDOf(err))
	}
	if pinner.Count() != 0 || r.Outstanding() != 0 {
		t.Fatal("Failed construction must not pin")
	}
}

func TestRegistry_ConstructorPanic(t *testing.T) {
	r := NewRegistry()
	_, err := Allocate(r, func() (*counter, error) { panic("boom") })
	if errors.KindOf(err) != errors.KindConstruction {
		t.Fatalf("Expected construction error, got %v", err)
	}
	if r.Outstanding() != 0 {
		t.Fatal("Panicking constructor must not leave an entry")
	}
}

func TestRegistry_NilConstruction(t *testing.T) {
	pinner := &CountingPinner{}
	r := NewRegistry(WithPinner(pinner))

	tok, err := Allocate(r, func() (*counter, error) { return nil, nil })
	if tok != 0 || errors.KindOf(err) != errors.KindConstruction {
		t.Fatalf("nil pointer: tok=%v err=%v", tok, err)
	}
	if !nilCause(err) || errors.MessageOf(ErrNilValue) != "Constructor failed silently." {
		t.Fatalf("nil pointer must wrap ErrNilValue, got %v", err)
	}

	_, err = Allocate(r, func() (fmt.Stringer, error) { return nil, nil })
	if !nilCause(err) {
		t.Fatalf("nil interface must wrap ErrNilValue, got %v", err)
	}
	_, err = Allocate(r, func() (map[string]int, error) { return nil, nil })
	if !nilCause(err) {
		t.Fatalf("nil map must wrap ErrNilValue, got %v", err)
	}

	if pinner.Count() != 0 || r.Outstanding() != 0 {
		t.Fatal("nil construction must not pin")
	}

	if _, err := Allocate(r, func() (int, error) { return 0, nil }); err != nil {
		t.Fatalf("zero value is not nil: %v", err)
	}
}

func TestRegistry_StoredValueNotOfType(t *testing.T) {
	r := NewRegistry()
	tok, err := r.Allocate(TagOf[fmt.Stringer](), func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve[fmt.Stringer](r, tok); !isInvalidHandle(err) {
		t.Fatalf("Resolve: expected invalid handle, got %v", err)
	}
	called := false
	err = Use(r, tok, func(fmt.Stringer) error {
		called = true
		return nil
	})
	if !isInvalidHandle(err) || called {
		t.Fatalf("Use: expected invalid handle without calling fn, got %v", err)
	}
	if _, err := Detach[fmt.Stringer](r, tok); !isInvalidHandle(err) {
		t.Fatalf("Detach: expected invalid handle, got %v", err)
	}
}

func TestRegistry_PinDiscipline(t *testing.T) {
	pinner := &CountingPinner{}
	r := NewRegistry(WithPinner(pinner))

	var tokens []Token
	check := func(want int) {
		t.Helper()
		if r.Outstanding() != want {
			t.Fatalf("Outstanding = %d, want %d", r.Outstanding(), want)
		}
		if pinner.Count() != int64(want) {
			t.Fatalf("pin count = %d, want %d", pinner.Count(), want)
		}
	}

	check(0)
	for i := 0; i < 5; i++ {
		tok, err := Allocate(r, func() (*counter, error) { return &counter{}, nil })
		if err != nil {
			t.Fatal(err)
		}
		tokens = append(tokens, tok)
		check(i + 1)
	}

	// Failed operations do not move the count.
	_, _ = Allocate(r, func() (*counter, error) { return nil, stderrors.New("no") })
	_ = Release[*timer](r, tokens[0])
	check(5)

	for i, tok := range tokens {
		if err := Release[*counter](r, tok); err != nil {
			t.Fatal(err)
		}
		check(len(tokens) - i - 1)
	}
	_ = Release[*counter](r, tokens[0])
	check(0)
}

func TestRegistry_PinFuncs(t *testing.T) {
	locks := 0
	r := NewRegistry(WithPinner(PinFuncs{
		OnPin:   func() { locks++ },
		OnUnpin: func() { locks-- },
	}))

	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if locks != 1 {
		t.Fatalf("locks = %d, want 1", locks)
	}
	_ = Release[*counter](r, tok)
	if locks != 0 {
		t.Fatalf("locks = %d, want 0", locks)
	}
}

func TestRegistry_Unload(t *testing.T) {
	r := NewRegistry()
	if err := r.Unload(); err != nil {
		t.Fatalf("Unload of empty registry failed: %v", err)
	}

	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	err := r.Unload()
	if !stderrors.Is(err, ErrPinned) {
		t.Fatalf("Expected ErrPinned, got %v", err)
	}

	_ = Release[*counter](r, tok)
	if err := r.Unload(); err != nil {
		t.Fatalf("Unload after release failed: %v", err)
	}
}

func TestRegistry_Close(t *testing.T) {
	pinner := &CountingPinner{}
	r := NewRegistry(WithPinner(pinner))

	a := &counter{}
	b := &counter{}
	tokA, _ := Allocate(r, func() (*counter, error) { return a, nil })
	_, _ = Allocate(r, func() (*counter, error) { return b, nil })

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.dropped != 1 || b.dropped != 1 {
		t.Fatal("Close must drop every live entry")
	}
	if pinner.Count() != 0 {
		t.Fatalf("pin count = %d after Close", pinner.Count())
	}
	if _, err := Resolve[*counter](r, tokA); !isInvalidHandle(err) {
		t.Fatal("Tokens must be invalid after Close")
	}

	_, err := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if !stderrors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatal("Second Close should be a no-op")
	}
}

func TestRegistry_MaxEntries(t *testing.T) {
	r := NewRegistry(WithMaxEntries(2))
	dropped := &counter{}

	for i := 0; i < 2; i++ {
		if _, err := Allocate(r, func() (*counter, error) { return &counter{}, nil }); err != nil {
			t.Fatal(err)
		}
	}
	_, err := Allocate(r, func() (*counter, error) { return dropped, nil })
	if errors.KindOf(err) != errors.KindConstruction {
		t.Fatalf("Expected construction error when full, got %v", err)
	}
	if dropped.dropped != 1 {
		t.Fatal("Value built for a full registry must be dropped")
	}
}

func TestRegistry_Detach(t *testing.T) {
	r := NewRegistry()
	c := &counter{value: 3}
	tok, _ := Allocate(r, func() (*counter, error) { return c, nil })

	got, err := Detach[*counter](r, tok)
	if err != nil {
		t.Fatal(err)
	}
	if got != c || c.dropped != 0 {
		t.Fatal("Detach must return the value without dropping it")
	}
	if r.Outstanding() != 0 {
		t.Fatal("Detach must remove the entry")
	}
	if _, err := Detach[*counter](r, tok); !isInvalidHandle(err) {
		t.Fatal("Second Detach must fail")
	}
}

func TestRegistry_Use(t *testing.T) {
	r := NewRegistry()
	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })

	err := Use(r, tok, func(c *counter) error {
		c.value++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := Resolve[*counter](r, tok)
	if c.value != 1 {
		t.Fatalf("value = %d, want 1", c.value)
	}

	want := stderrors.New("inner")
	if err := Use(r, tok, func(*counter) error { return want }); err != want {
		t.Fatalf("Use must return the callback error, got %v", err)
	}
}

func TestRegistry_UseReentrantAndBusy(t *testing.T) {
	r := NewRegistry()
	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })

	err := Use(r, tok, func(outer *counter) error {
		err := Use(r, tok, func(inner *counter) error {
			inner.value++
			return nil
		})
		if err != nil {
			return err
		}
		if err := Release[*counter](r, tok); err != ErrBusy {
			t.Errorf("Release inside Use = %v, want ErrBusy", err)
		}
		if _, err := Detach[*counter](r, tok); err != ErrBusy {
			t.Errorf("Detach inside Use = %v, want ErrBusy", err)
		}
		outer.value++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, _ := Resolve[*counter](r, tok)
	if c.value != 2 {
		t.Fatalf("value = %d, want 2", c.value)
	}
	if err := Release[*counter](r, tok); err != nil {
		t.Fatalf("Release after Use: %v", err)
	}
	if c.dropped != 1 || r.Outstanding() != 0 {
		t.Fatal("entry must be dropped once use ends")
	}
}

func TestRegistry_ConcurrentUseAndRelease(t *testing.T) {
	r := NewRegistry()
	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := Use(r, tok, func(c *counter) error {
					if c.dropped != 0 {
						t.Error("used a dropped value")
					}
					return nil
				})
				if err != nil && !isInvalidHandle(err) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for Release[*counter](r, tok) == ErrBusy {
			runtime.Gosched()
		}
	}()
	wg.Wait()

	if r.Outstanding() != 0 {
		t.Fatal("entry must be released")
	}
}

func TestRegistry_Observer(t *testing.T) {
	obs := &testObserver{}
	r := NewRegistry(WithObserver(obs))

	tok, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if len(obs.events) != 1 || obs.events[0].Type != EventAllocated || obs.events[0].Token != tok {
		t.Fatalf("unexpected events %+v", obs.events)
	}
	if obs.events[0].Tag != TagOf[*counter]() {
		t.Fatal("Wrong tag in event")
	}

	_ = Release[*counter](r, tok)
	if len(obs.events) != 2 || obs.events[1].Type != EventReleased {
		t.Fatalf("Expected EventReleased, got %+v", obs.events)
	}

	r.Unsubscribe(obs)
	_, _ = Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}

	r.Subscribe(obs)
	_, _ = Allocate(r, func() (*counter, error) { return &counter{}, nil })
	if len(obs.events) != 3 {
		t.Fatal("Subscribe should resume events")
	}
}

func TestRegistry_Each(t *testing.T) {
	r := NewRegistry()
	a, _ := Allocate(r, func() (*counter, error) { return &counter{}, nil })
	b, _ := Allocate(r, func() (*timer, error) { return &timer{}, nil })

	seen := map[Token]Tag{}
	r.Each(func(tok Token, tag Tag) bool {
		seen[tok] = tag
		return true
	})
	if len(seen) != 2 || seen[a] != TagOf[*counter]() || seen[b] != TagOf[*timer]() {
		t.Fatalf("unexpected entries %v", seen)
	}

	n := 0
	r.Each(func(Token, Tag) bool {
		n++
		return false
	})
	if n != 1 {
		t.Fatal("Each must stop when fn returns false")
	}
}

func TestRegistry_ZeroTag(t *testing.T) {
	r := NewRegistry()
	_, err := r.Allocate(Tag{}, func() (any, error) { return 1, nil })
	if errors.KindOf(err) != errors.KindConstruction {
		t.Fatalf("Expected construction error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default must return the same registry")
	}
}

func TestToken_Layout(t *testing.T) {
	tok := makeToken(4, 9)
	idx, ok := tok.index()
	if !ok || idx != 4 {
		t.Fatalf("index = %d, %v", idx, ok)
	}
	if tok.generation() != 9 {
		t.Fatalf("generation = %d", tok.generation())
	}
	if _, ok := Token(0).index(); ok {
		t.Fatal("Token 0 must not decode")
	}
	if tok.String() != "0x0000000900000005" {
		t.Fatalf("String = %s", tok.String())
	}
}
