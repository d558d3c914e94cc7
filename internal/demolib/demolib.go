// Package demolib is a small native library with a matching typelib used
// by tests and the inspector. It models the parts of a GObject-style
// runtime the bridge talks to: refcounted objects with properties and
// signals, fundamentals, boxed records and callback-taking functions.
package demolib

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
)

// Typelib is the metadata of the Demo namespace.
//
//go:embed demo.yaml
var Typelib []byte

// LoadTypelib returns a repository holding the Demo namespace.
func LoadTypelib() (*typelib.Repository, error) {
	repo := typelib.NewRepository()
	if err := repo.LoadYAML(Typelib); err != nil {
		return nil, err
	}
	return repo, nil
}

// Property flags reported by demo_object_find_property.
const (
	flagReadable = 1
	flagWritable = 2
)

type prop struct {
	str   string
	data  uint64
	gtype uint32
	null  bool
}

type handler struct {
	name    string
	detail  string
	id      uint32
	fn      uint32
	data    uint32
	destroy uint32
	after   bool
}

type object struct {
	props    map[string]prop
	handlers []handler
	gtype    uint32
	refs     int
	floating bool
}

type shape struct {
	radius float64
	gtype  uint32
	refs   int
}

type scheduled struct {
	fn, data, destroy uint32
	once              bool
}

// GTypes are the type ids the library was built against.
type GTypes struct {
	Object, Widget, Button, Shape, Circle, Color uint32
}

// State is the native library's bookkeeping. Tests inspect it to check
// what the bridge did on the native side.
type State struct {
	gtypes    GTypes
	objects   map[uint32]*object
	shapes    map[uint32]*shape
	propTypes map[string]uint32
	statics   map[string]uint32
	scheduled []scheduled
	errs      []error
	origin    uint32
	nextID    uint32

	boxedCopies int
	boxedFrees  int

	mu sync.Mutex
}

// New builds the native library. repo must hold the Demo namespace.
func New(repo *typelib.Repository) (*native.Library, *State, error) {
	gt := GTypes{}
	for name, dst := range map[string]*uint32{
		"Demo.Object": &gt.Object,
		"Demo.Widget": &gt.Widget,
		"Demo.Button": &gt.Button,
		"Demo.Shape":  &gt.Shape,
		"Demo.Circle": &gt.Circle,
		"Demo.Color":  &gt.Color,
	} {
		info, err := repo.Lookup(name)
		if err != nil {
			return nil, nil, fmt.Errorf("demolib: %w", err)
		}
		*dst = info.GType
	}

	st := &State{
		gtypes:  gt,
		objects: make(map[uint32]*object),
		shapes:  make(map[uint32]*shape),
		statics: make(map[string]uint32),
		propTypes: map[string]uint32{
			"label":  types.GTypeString,
			"count":  types.GTypeInt,
			"secret": types.GTypeString,
			"scale":  types.GTypeDouble,
			"color":  gt.Color,
			"tag":    types.GTypeString,
		},
	}

	lib := native.NewLibrary("demo")
	st.defineFunctions(lib)
	st.defineRecords(lib)
	st.defineObjects(lib)
	st.defineSignals(lib)
	st.defineShapes(lib)
	return lib, st, nil
}

// GTypes returns the type ids of the Demo types.
func (s *State) GTypes() GTypes {
	return s.gtypes
}

// Refs returns the reference count of a live object or fundamental, 0
// when it was finalized.
func (s *State) Refs(addr uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[addr]; ok {
		return o.refs
	}
	if sh, ok := s.shapes[addr]; ok {
		return sh.refs
	}
	return 0
}

// Floating reports whether an object still carries a floating reference.
func (s *State) Floating(addr uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[addr]
	return ok && o.floating
}

// Handlers returns the number of connected handlers of an object.
func (s *State) Handlers(addr uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[addr]; ok {
		return len(o.handlers)
	}
	return 0
}

// Objects returns the addresses of live objects in ascending order.
func (s *State) Objects() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, 0, len(s.objects))
	for addr := range s.objects {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Scheduled returns the number of queued callbacks.
func (s *State) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scheduled)
}

// Errors returns the failures of callbacks invoked by the library.
func (s *State) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *State) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// static returns a library-owned copy of str.
func (s *State) static(h *native.Heap, str string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.statics[str]; ok {
		return p
	}
	p := must(native.NewCString(h, str))
	s.statics[str] = p
	return p
}

func must(v uint32, err error) uint32 {
	if err != nil {
		panic(err)
	}
	return v
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
