package handle

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("handle table closed")
	ErrOutstandingBorrow = errors.New("cannot remove entry with outstanding borrows")
)

// store is the slot storage behind a Table. Freed slots are recycled
// through a free list so handles stay small.
type store struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value   any
	kind    uint32
	borrows uint32
	valid   bool
}

func newStore() *store {
	return &store{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *store) create(kind uint32, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	e := entry{kind: kind, value: value, valid: true}

	if n := len(s.freeList); n > 0 {
		h := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.entries[h-1] = e
		return h, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

// slot returns the entry for h; callers hold s.mu.
func (s *store) slot(h Handle) *entry {
	if h == 0 || int(h) > len(s.entries) {
		return nil
	}
	e := &s.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

func (s *store) get(h Handle) (any, uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.slot(h)
	if e == nil {
		return nil, 0, false
	}
	return e.value, e.kind, true
}

func (s *store) drop(h Handle) (any, uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(h)
	if e == nil {
		return nil, 0, false, nil
	}
	if e.borrows > 0 {
		return nil, 0, false, ErrOutstandingBorrow
	}

	value, kind := e.value, e.kind
	*e = entry{}
	s.freeList = append(s.freeList, h)
	return value, kind, true, nil
}

func (s *store) borrow(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(h)
	if e == nil {
		return false
	}
	e.borrows++
	return true
}

func (s *store) returnBorrow(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(h)
	if e == nil || e.borrows == 0 {
		return false
	}
	e.borrows--
	return true
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if e.valid {
			n++
		}
	}
	return n
}

func (s *store) each(fn func(Handle, uint32, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.valid && !fn(Handle(i+1), e.kind, e.value) {
			return
		}
	}
}

func (s *store) close() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var live []any
	for _, e := range s.entries {
		if e.valid {
			live = append(live, e.value)
		}
	}
	s.entries = nil
	s.freeList = nil
	return live
}
