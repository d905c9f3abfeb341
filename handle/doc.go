// Package handle provides the registry that owns native objects referenced
// from a host environment by opaque 64-bit tokens.
//
// A host class instance cannot hold a Go pointer across calls, so the
// registry keeps the object and hands out a Token instead. Tokens are
// checked on every use and a stale, forged or foreign-typed token produces
// an invalid handle error rather than touching the wrong object.
//
// # Token Layout
//
// A token is a slot index plus a slot generation:
//
//	bits 63..32  generation of the slot when the entry was created
//	bits 31..0   slot index + 1 (0 is never issued)
//
// Releasing an entry bumps its slot generation before the slot returns to
// the free list, so the released token never matches the next occupant.
//
// # Validity Checks
//
// Resolve checks, in order:
//
//	structure  token non-zero, index inside the table, slot occupied, generation equal
//	type tag   the entry was created for exactly the requested Go type
//	liveness   the entry's liveness marker has not been cleared by a release
//
// Only the slot table is consulted until the structural check passes.
//
// # Typed Access
//
// The generic helpers derive the tag from the type parameter:
//
//	tok, err := handle.Allocate(reg, func() (*Counter, error) {
//	    return &Counter{}, nil
//	})
//
//	c, err := handle.Resolve[*Counter](reg, tok) // ok
//	_, err = handle.Resolve[*Timer](reg, tok)    // invalid handle
//
//	err = handle.Release[*Counter](reg, tok)
//	err = handle.Release[*Counter](reg, tok)     // invalid handle
//
// # Pinning
//
// Every successful allocation pins the hosting module through the
// registry's Pinner and every release unpins it. Unload refuses while
// entries are outstanding; Close releases everything that is left.
//
// # Concurrency
//
// The slot table is guarded by a read/write lock and each entry has its
// own mutex. Use marks the entry in use for the duration of the callback
// and a Release or Detach meanwhile fails with ErrBusy, so a value is never
// dropped under a running callback. Nested Use calls on the same token are
// not blocked; callers sharing one object across goroutines synchronize it
// themselves.
package handle
