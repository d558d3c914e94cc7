package typelib

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/wippyai/gi-bridge/errors"
	"gopkg.in/yaml.v3"
)

// FirstDynamicGType is the first type id assigned to named entries.
// Lower ids are reserved for fundamental types.
const FirstDynamicGType uint32 = 0x1000

// Namespace is one loadable unit of metadata.
type Namespace struct {
	Name      string          `yaml:"namespace"`
	Version   string          `yaml:"version,omitempty"`
	Types     []*Info         `yaml:"types,omitempty"`
	Functions []*CallableInfo `yaml:"functions,omitempty"`
}

// Repository is an in-memory Loader. Entries are immutable once added.
type Repository struct {
	infos      map[string]*Info
	byGType    map[uint32]*Info
	namespaces map[string]*Namespace
	order      []string
	nextGType  uint32
	mu         sync.RWMutex
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		infos:      make(map[string]*Info),
		byGType:    make(map[uint32]*Info),
		namespaces: make(map[string]*Namespace),
		nextGType:  FirstDynamicGType,
	}
}

// ParseYAML decodes a namespace document without adding it.
func ParseYAML(data []byte) (*Namespace, error) {
	var ns Namespace
	if err := yaml.Unmarshal(data, &ns); err != nil {
		return nil, errors.Load("parse typelib", err)
	}
	return &ns, nil
}

// LoadYAML parses and adds a namespace document.
func (r *Repository) LoadYAML(data []byte) error {
	ns, err := ParseYAML(data)
	if err != nil {
		return err
	}
	return r.Add(ns)
}

// LoadFile reads and adds a namespace document from disk.
func (r *Repository) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Load("read "+path, err)
	}
	return r.LoadYAML(data)
}

// Add validates a namespace, qualifies its type references, assigns type
// ids in declaration order and indexes every entry.
func (r *Repository) Add(ns *Namespace) error {
	if ns == nil || ns.Name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "namespace name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.namespaces[ns.Name]; exists {
		return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("namespace %q already loaded", ns.Name))
	}

	staged := make(map[string]*Info)
	stage := func(info *Info) error {
		key := info.QualifiedName()
		if _, dup := staged[key]; dup {
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("duplicate entry %q", key))
		}
		if _, dup := r.infos[key]; dup {
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("duplicate entry %q", key))
		}
		staged[key] = info
		return nil
	}

	for _, info := range ns.Types {
		if info == nil || info.Name == "" {
			return errors.InvalidInput(errors.PhaseLoad, "type entry without a name")
		}
		info.Namespace = ns.Name
		if err := validateInfo(info); err != nil {
			return err
		}
		qualifyInfo(ns.Name, info)
		if err := stage(info); err != nil {
			return err
		}
		for _, m := range info.Methods {
			m.Container = info.QualifiedName()
			if err := validateCallable(m); err != nil {
				return err
			}
			if err := stage(&Info{Kind: InfoFunction, Name: m.Name, Namespace: ns.Name, Container: m.Container, Signature: m}); err != nil {
				return err
			}
		}
	}
	for _, fn := range ns.Functions {
		if err := validateCallable(fn); err != nil {
			return err
		}
		qualifyCallable(ns.Name, fn)
		if err := stage(&Info{Kind: InfoFunction, Name: fn.Name, Namespace: ns.Name, Signature: fn}); err != nil {
			return err
		}
	}

	for _, info := range ns.Types {
		info.GType = r.nextGType
		r.nextGType++
		r.byGType[info.GType] = info
	}
	for key, info := range staged {
		r.infos[key] = info
	}
	r.namespaces[ns.Name] = ns
	r.order = append(r.order, ns.Name)
	return nil
}

// Lookup implements Loader.
func (r *Repository) Lookup(qualifiedName string) (*Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if info, ok := r.infos[qualifiedName]; ok {
		return info, nil
	}
	return nil, errors.UnknownType(qualifiedName)
}

// Members implements Loader.
func (r *Repository) Members(info *Info) []Member {
	if info == nil {
		return nil
	}
	members := make([]Member, 0, len(info.Fields)+len(info.Properties)+len(info.Signals)+len(info.Methods)+len(info.Values))
	for i := range info.Fields {
		f := &info.Fields[i]
		members = append(members, Member{Kind: MemberField, Name: f.Name, Field: f})
	}
	for i := range info.Properties {
		p := &info.Properties[i]
		members = append(members, Member{Kind: MemberProperty, Name: p.Name, Property: p})
	}
	for i := range info.Signals {
		s := &info.Signals[i]
		members = append(members, Member{Kind: MemberSignal, Name: s.Name, Signal: s})
	}
	for _, m := range info.Methods {
		members = append(members, Member{Kind: MemberMethod, Name: m.Name, Method: m})
	}
	for i := range info.Values {
		v := &info.Values[i]
		members = append(members, Member{Kind: MemberValue, Name: v.Name, Value: v})
	}
	return members
}

// Signature implements Loader.
func (r *Repository) Signature(info *Info) (*CallableInfo, error) {
	if info == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil info")
	}
	if info.Signature == nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindTypeMismatch).
			NativeType(info.QualifiedName()).
			Detail("%s is not callable", info.Kind).
			Build()
	}
	return info.Signature, nil
}

// ByGType returns the entry registered under a type id.
func (r *Repository) ByGType(id uint32) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byGType[id]
	return info, ok
}

// Namespaces returns loaded namespace names in load order.
func (r *Repository) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Entries returns every entry of a namespace sorted by qualified name,
// methods included.
func (r *Repository) Entries(namespace string) []*Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Info
	for _, info := range r.infos {
		if info.Namespace == namespace {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

func validateInfo(info *Info) error {
	switch info.Kind {
	case InfoStruct, InfoObject, InfoInterface, InfoFundamental, InfoEnum, InfoFlags:
	case InfoCallback:
		if info.Signature == nil {
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("callback %q has no signature", info.Name))
		}
		return validateCallable(info.Signature)
	default:
		return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%q: unknown kind %q", info.Name, info.Kind))
	}
	for _, p := range info.Properties {
		switch p.Access {
		case "rw", "r", "w":
		default:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s.%s: access must be rw, r or w", info.Name, p.Name))
		}
	}
	for i := range info.Signals {
		sig := &CallableInfo{Name: info.Signals[i].Name, Params: info.Signals[i].Params}
		if err := validateCallable(sig); err != nil {
			return err
		}
	}
	return nil
}

func validateCallable(c *CallableInfo) error {
	if c == nil || c.Name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "callable without a name")
	}
	switch c.ReturnTransfer {
	case "", "none", "container", "full", "everything":
	default:
		return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s: invalid return transfer %q", c.Name, c.ReturnTransfer))
	}

	names := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		names[p.Name] = true
	}
	ref := func(kind, name string) error {
		if name != "" && !names[name] {
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s: %s refers to unknown parameter %q", c.Name, kind, name))
		}
		return nil
	}

	for _, p := range c.Params {
		switch p.Direction {
		case "", "in", "out", "inout":
		default:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s.%s: invalid direction %q", c.Name, p.Name, p.Direction))
		}
		switch p.Transfer {
		case "", "none", "container", "full", "everything":
		default:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s.%s: invalid transfer %q", c.Name, p.Name, p.Transfer))
		}
		switch p.Scope {
		case "", "call", "async", "notified", "forever":
		default:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("%s.%s: invalid scope %q", c.Name, p.Name, p.Scope))
		}
		if err := ref("closure", p.Closure); err != nil {
			return err
		}
		if err := ref("destroy", p.Destroy); err != nil {
			return err
		}
		if err := ref("length", p.Type.Length); err != nil {
			return err
		}
	}
	if c.Return != nil {
		if err := ref("length", c.Return.Length); err != nil {
			return err
		}
	}
	return nil
}

func qualifyInfo(ns string, info *Info) {
	if info.Parent != "" {
		info.Parent = qualifyName(ns, info.Parent)
	}
	for i, iface := range info.Interfaces {
		info.Interfaces[i] = qualifyName(ns, iface)
	}
	for i := range info.Fields {
		qualifyType(ns, &info.Fields[i].Type)
	}
	for i := range info.Properties {
		qualifyType(ns, &info.Properties[i].Type)
	}
	for i := range info.Signals {
		s := &info.Signals[i]
		for j := range s.Params {
			qualifyType(ns, &s.Params[j].Type)
		}
		if s.Return != nil {
			qualifyType(ns, s.Return)
		}
	}
	for _, m := range info.Methods {
		qualifyCallable(ns, m)
	}
	if info.Signature != nil {
		qualifyCallable(ns, info.Signature)
	}
}

func qualifyCallable(ns string, c *CallableInfo) {
	for i := range c.Params {
		qualifyType(ns, &c.Params[i].Type)
	}
	if c.Return != nil {
		qualifyType(ns, c.Return)
	}
}

func qualifyType(ns string, t *TypeInfo) {
	if t == nil {
		return
	}
	if t.Tag == TagInterface {
		t.Name = qualifyName(ns, t.Name)
	}
	qualifyType(ns, t.Elem)
	qualifyType(ns, t.Key)
	qualifyType(ns, t.Value)
}

func qualifyName(ns, name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name
		}
	}
	return ns + "." + name
}
