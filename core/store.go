package core

import "sync"

// Table and Handle implement the "dual table/handle idiom" called out in
// spec.md §9: a row is fetched into a handle that exclusively owns the
// row for its lifetime and writes back a single conditional mutation on
// Release. Two disjoint dirty bits separate "cheap columns" from "full
// payload" writes (spec.md §9, §3 "Ownership semantics") so a caller that
// only flipped an indexed column (e.g. `Busy`) doesn't pay for rewriting
// the whole tagged-union row.
//
// This is a from-scratch generalisation (via Go generics) of the
// lock-per-call, single-struct shape of the teacher's
// core/account_and_balance_operations.go AccountManager and
// core/ledger.go's map-of-rows Ledger — there every table was a bespoke
// map plus bespoke methods; here one Table[K, T] serves Characters,
// Buildings, Regions, OngoingOps, Accounts, GroundLoot,
// BuildingInventories, DexOrders, and DamageLists alike.
type Table[K comparable, T any] struct {
	mu     sync.Mutex
	rows   map[K]T
	leased map[K]bool
}

// NewTable constructs an empty table.
func NewTable[K comparable, T any]() *Table[K, T] {
	return &Table[K, T]{
		rows:   make(map[K]T),
		leased: make(map[K]bool),
	}
}

// Handle is an exclusive lease on one row. Every mutation goes through
// Get()'s pointer; the caller marks what changed and Releases when done.
type Handle[K comparable, T any] struct {
	key       K
	table     *Table[K, T]
	row       T
	dirtyCols bool
	dirtyFull bool
	deleted   bool
	released  bool
}

// Key returns the handle's row key.
func (h *Handle[K, T]) Key() K { return h.key }

// Get returns a pointer to the row for in-place mutation.
func (h *Handle[K, T]) Get() *T { return &h.row }

// TouchColumns marks the handle as having changed only cheap, indexed
// columns (spec.md §9's "cheap columns" dirty bit).
func (h *Handle[K, T]) TouchColumns() { h.dirtyCols = true }

// TouchFull marks the handle as having changed the full tagged-union
// payload, implying a full-row write-back (spec.md §9).
func (h *Handle[K, T]) TouchFull() { h.dirtyFull = true; h.dirtyCols = true }

// Delete marks the row for removal on Release.
func (h *Handle[K, T]) Delete() { h.deleted = true }

// Release writes back the row (if dirty) and drops the exclusive lease.
// It is idempotent; calling it twice is a no-op the second time.
func (h *Handle[K, T]) Release() {
	if h.released {
		return
	}
	h.released = true
	h.table.release(h)
}

// Fetch leases an existing row by key. It returns ok=false if the key is
// absent. A second Fetch of an already-leased key before the first
// handle's Release is a dev-mode bug — drop-order would silently decide
// which writes persist (spec.md §5) — so it raises a ConsistencyError
// rather than returning a confusing second handle.
func (t *Table[K, T]) Fetch(key K) (*Handle[K, T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.leased[key] {
		fatalf("double handle", "row %v already leased", key)
	}
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	t.leased[key] = true
	return &Handle[K, T]{key: key, table: t, row: row}, true
}

// MustFetch is Fetch, but raises the named ConsistencyError if the row is
// absent — for the many call sites where spec.md's invariants guarantee
// the row must exist (e.g. "a region's prospecting_character references a
// live character").
func (t *Table[K, T]) MustFetch(key K, invariant string) *Handle[K, T] {
	h, ok := t.Fetch(key)
	if !ok {
		fatalf(invariant, "key %v not found", key)
	}
	return h
}

// Create leases a brand-new row under key, which must not already exist.
func (t *Table[K, T]) Create(key K, row T) *Handle[K, T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[key]; exists {
		fatalf("duplicate row", "key %v already exists", key)
	}
	if t.leased[key] {
		fatalf("double handle", "row %v already leased", key)
	}
	t.leased[key] = true
	return &Handle[K, T]{key: key, table: t, row: row, dirtyFull: true}
}

func (t *Table[K, T]) release(h *Handle[K, T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.leased, h.key)
	if h.deleted {
		delete(t.rows, h.key)
		return
	}
	if h.dirtyFull || h.dirtyCols {
		t.rows[h.key] = h.row
	}
}

// Has reports whether key currently has a row, without leasing it.
func (t *Table[K, T]) Has(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rows[key]
	return ok
}

// Peek returns a copy of the row without leasing it — for read-only scans
// (pending-state projection, validator, JSON export) that must not
// participate in the exclusive-lease discipline.
func (t *Table[K, T]) Peek(key K) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	return row, ok
}

// Keys returns every key currently present, in map (unordered) iteration.
// Callers that need determinism (every consensus-visible iteration must,
// per spec.md §5/§9) are responsible for sorting the result themselves;
// this method exists for the unordered cases only (e.g. building an
// index), never fed directly into consensus-visible output.
func (t *Table[K, T]) Keys() []K {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]K, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of rows.
func (t *Table[K, T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}
