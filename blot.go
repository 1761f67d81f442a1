package parchment

import "fmt"

// Blot is a node of the model tree. Every blot is bound to exactly one host
// node. Indexes are in content units and relative to the blot itself.
//
// Implementations embed Shadow, which supplies the tree linkage and the
// default leaf behavior; containers embed Container.
type Blot interface {
	// Kind is the name of the Definition the blot was created from.
	Kind() string
	Host() HostNode
	Parent() Parent
	Prev() Blot
	Next() Blot
	Length() int
	// Offset is the index at which the blot starts within its parent.
	Offset() int

	InsertAt(index int, value string, def interface{}) error
	DeleteAt(index, length int) error
	FormatAt(index, length int, name string, value interface{}) error
	// Split divides the blot at index and returns the blot that starts
	// there. Without force, index 0 returns the blot itself and an index at
	// the end returns the next sibling, both without splitting.
	Split(index int, force bool) (Blot, error)
	// Clone returns a detached copy without children.
	Clone() (Blot, error)
	// Remove takes the blot out of both trees and forgets its binding.
	Remove()
	// Optimize normalizes the blot after structural edits.
	Optimize() error
	// Update reconciles host change records targeting the blot's host node.
	Update(records []ChangeRecord) error

	shadow() *Shadow
}

// Parent is a Blot with children.
type Parent interface {
	Blot
	Children() []Blot
	ChildCount() int
	InsertBefore(child, ref Blot) error
	AppendChild(child Blot) error
	MoveChildren(target Parent, ref Blot) error
	Descendant(match func(Blot) bool, index int, inclusive bool) (Blot, int)
	Descendants(match func(Blot) bool, index, length int) []Blot
	Path(index int, inclusive bool) []PathEntry
	Format(name string, value interface{}) error
	Unwrap() error
	Replace(target Parent) error

	container() *Container
}

// PathEntry is one step of a Path: a blot and an index relative to it.
type PathEntry struct {
	Blot  Blot
	Index int
}

// Shadow holds the linkage every blot shares: its host node, its parent and
// its siblings. Used on its own, it behaves as an opaque leaf of length 1.
type Shadow struct {
	self   Blot
	reg    *Registry
	def    *Definition
	host   HostNode
	parent Parent
	prev   Blot
	next   Blot
}

// Init binds self, the blot embedding s, to host. It must be called once by
// every constructor registered in a Definition.
func (s *Shadow) Init(self Blot, reg *Registry, host HostNode) {
	s.self = self
	s.reg = reg
	s.host = host
	reg.bind(host, self)
}

func (s *Shadow) shadow() *Shadow { return s }

// Registry returns the registry the blot was created with.
func (s *Shadow) Registry() *Registry { return s.reg }

func (s *Shadow) Kind() string {
	if s.def == nil {
		return ""
	}
	return s.def.Name
}

// Definition returns the definition the blot was created from, if any.
func (s *Shadow) Definition() *Definition { return s.def }

func (s *Shadow) Host() HostNode { return s.host }
func (s *Shadow) Parent() Parent { return s.parent }
func (s *Shadow) Prev() Blot     { return s.prev }
func (s *Shadow) Next() Blot     { return s.next }
func (s *Shadow) Length() int    { return 1 }

func (s *Shadow) Offset() int {
	if s.parent == nil {
		return 0
	}
	return s.parent.container().children.offset(s.self)
}

// Resized publishes a change of delta in the blot's own length to the
// length caches of its ancestors. Leaves whose content changes call it
// after the change.
func (s *Shadow) Resized(delta int) {
	if delta == 0 {
		return
	}
	for p := s.parent; p != nil; p = p.shadow().parent {
		p.container().children.size += delta
	}
}

func (s *Shadow) InsertAt(index int, value string, def interface{}) error {
	if s.parent == nil {
		return preconditionf("insert into a %s with no parent", s.Kind())
	}
	var blot Blot
	var err error
	if def == nil {
		blot, err = s.reg.Create(TextKind, value)
	} else {
		blot, err = s.reg.Create(value, def)
	}
	if err != nil {
		return err
	}
	parent := s.parent
	ref, err := s.self.Split(index, false)
	if err != nil {
		blot.Remove()
		return err
	}
	return parent.InsertBefore(blot, ref)
}

func (s *Shadow) DeleteAt(index, length int) error {
	target, err := s.Isolate(index, length)
	if err != nil {
		return err
	}
	if target != nil {
		target.Remove()
	}
	return nil
}

// FormatAt wraps the range in a blot of kind name when name is a registered
// kind and value is set; when name is a registered attribute, it sets or
// clears that attribute on the range's host node.
func (s *Shadow) FormatAt(index, length int, name string, value interface{}) error {
	target, err := s.Isolate(index, length)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if s.reg.Query(name) != nil {
		if Truthy(value) {
			_, err = target.shadow().Wrap(name, value)
		}
		return err
	}
	if attr, ok := s.reg.Attribute(name); ok && target.Host().Name() != textHostName {
		applyAttribute(target.Host(), attr, value)
	}
	return nil
}

func (s *Shadow) Split(index int, force bool) (Blot, error) {
	if index == 0 {
		return s.self, nil
	}
	return s.next, nil
}

func (s *Shadow) Clone() (Blot, error) {
	return s.reg.CreateFromHost(s.host.CloneNode(false))
}

func (s *Shadow) Remove() {
	if hp := s.host.Parent(); hp != nil {
		hp.RemoveChild(s.host)
	}
	s.detach()
	s.reg.unbindTree(s.self)
}

func (s *Shadow) Optimize() error                     { return nil }
func (s *Shadow) Update(records []ChangeRecord) error { return nil }

// Isolate splits the blot so that [index, index+length) is a blot of its
// own, and returns it.
func (s *Shadow) Isolate(index, length int) (Blot, error) {
	target, err := s.self.Split(index, false)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	if _, err = target.Split(length, false); err != nil {
		return nil, err
	}
	return target, nil
}

// Wrap inserts a new blot of the given kind where this one is and moves
// this one into it.
func (s *Shadow) Wrap(kind string, value interface{}) (Parent, error) {
	if s.parent == nil {
		return nil, preconditionf("wrap a %s with no parent", s.Kind())
	}
	created, err := s.reg.Create(kind, value)
	if err != nil {
		return nil, err
	}
	wrapper, ok := created.(Parent)
	if !ok {
		created.Remove()
		return nil, preconditionf("wrap in %s, which cannot have children", kind)
	}
	if err = s.parent.InsertBefore(wrapper, s.self); err != nil {
		return nil, err
	}
	if err = wrapper.AppendChild(s.self); err != nil {
		return nil, err
	}
	return wrapper, nil
}

// detach unlinks the blot from its model parent. The host tree and the
// identity binding are left alone.
func (s *Shadow) detach() {
	if s.parent == nil {
		return
	}
	parent := s.parent
	length := s.self.Length()
	parent.container().children.remove(s.self)
	s.parent = nil
	parent.shadow().Resized(-length)
}

// Truthy reports whether a format value turns a format on.
func Truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	default:
		return true
	}
}

func applyAttribute(host HostNode, attr string, value interface{}) {
	if !Truthy(value) {
		host.RemoveAttribute(attr)
		return
	}
	switch v := value.(type) {
	case string:
		host.SetAttribute(attr, v)
	case bool:
		host.SetAttribute(attr, attr)
	default:
		host.SetAttribute(attr, fmt.Sprint(v))
	}
}
