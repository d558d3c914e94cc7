package handle

import (
	"sync"
)

// Table maps handles to values with kind tags and observer support.
type Table struct {
	store     *store
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{store: newStore()}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(kind uint32, value any) Handle {
	h, err := t.store.create(kind, value)
	if err != nil {
		return 0
	}
	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	v, _, ok := t.store.get(h)
	return v, ok
}

// GetKind retrieves a value only if it carries the expected kind.
func (t *Table) GetKind(h Handle, kind uint32) (any, bool) {
	v, k, ok := t.store.get(h)
	if !ok || k != kind {
		return nil, false
	}
	return v, true
}

// Remove drops an entry and returns its value. It fails with
// ErrOutstandingBorrow while the entry is borrowed.
func (t *Table) Remove(h Handle) (any, bool, error) {
	value, kind, ok, err := t.store.drop(h)
	if err != nil || !ok {
		return nil, false, err
	}

	if r, ok := value.(Releaser); ok {
		r.ReleaseHandle()
	}
	t.notify(Event{Type: EventRemoved, Handle: h, Kind: kind, Value: value})
	return value, true, nil
}

// Borrow marks the entry as in use.
func (t *Table) Borrow(h Handle) bool {
	if !t.store.borrow(h) {
		return false
	}
	t.notify(Event{Type: EventBorrowed, Handle: h})
	return true
}

// ReturnBorrow releases a borrow taken with Borrow.
func (t *Table) ReturnBorrow(h Handle) bool {
	if !t.store.returnBorrow(h) {
		return false
	}
	t.notify(Event{Type: EventBorrowReturned, Handle: h})
	return true
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.store.len()
}

// Count returns the number of live entries of the given kind.
func (t *Table) Count(kind uint32) int {
	n := 0
	t.store.each(func(_ Handle, k uint32, _ any) bool {
		if k == kind {
			n++
		}
		return true
	})
	return n
}

// Each iterates over live entries until fn returns false.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.store.each(fn)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close releases every live entry and stops accepting inserts.
func (t *Table) Close() error {
	for _, v := range t.store.close() {
		if r, ok := v.(Releaser); ok {
			r.ReleaseHandle()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
