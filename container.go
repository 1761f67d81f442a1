package parchment

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Container is a blot that owns an ordered collection of children. All of
// its index-addressed operations find the affected children and delegate to
// them with indexes translated into their own coordinates.
//
// Container kinds embed Container and call Init from their constructor.
type Container struct {
	Shadow
	children   childList
	selfParent Parent
}

// NewContainer constructs a plain Container; it is suitable as the New of
// a Definition.
func NewContainer(reg *Registry, host HostNode, _ interface{}) (Blot, error) {
	c := &Container{}
	if err := c.Init(c, reg, host); err != nil {
		return nil, err
	}
	return c, nil
}

// Init binds self, the blot embedding c, to host, and imports the existing
// children of host in document order. Host children that no definition
// claims are left out of the model.
func (c *Container) Init(self Parent, reg *Registry, host HostNode) error {
	c.Shadow.Init(self, reg, host)
	c.selfParent = self
	return c.build()
}

func (c *Container) container() *Container { return c }

func (c *Container) build() error {
	var hosts []HostNode
	for h := c.host.FirstChild(); h != nil; h = h.NextSibling() {
		hosts = append(hosts, h)
	}
	// reversed, so that each child is linked before the one linked last
	for i := len(hosts) - 1; i >= 0; i-- {
		child, err := c.adopt(hosts[i], false)
		if errors.Is(err, ErrUnrecognized) {
			c.reg.log.Debug("skipping unrecognized host node",
				zap.String("name", hosts[i].Name()),
				zap.String("parent", c.host.Name()))
			continue
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", hosts[i].Name(), err)
		}
		c.link(child, c.children.head)
	}
	return nil
}

// adopt returns the blot for a host node that is a child of c's host node,
// creating it if the host node is not bound yet. A bound container is
// rebuilt from its host node if it was detached from the model, or if
// moved is set.
func (c *Container) adopt(host HostNode, moved bool) (Blot, error) {
	blot := c.reg.Find(host)
	if blot == nil {
		return c.reg.CreateFromHost(host)
	}
	if p, ok := blot.(Parent); ok && (moved || blot.Parent() == nil) {
		// changes to its host subtree while it was out of the tree were not
		// observed
		if err := p.container().resync(); err != nil {
			return nil, err
		}
	}
	return blot, nil
}

func (c *Container) resync() error {
	previous := c.children.slice()
	for _, child := range previous {
		child.shadow().detach()
	}
	if err := c.build(); err != nil {
		return err
	}
	for _, child := range previous {
		if child.Parent() == nil {
			c.reg.orphan(child)
		}
	}
	return nil
}

// link places child before ref in the model tree only.
func (c *Container) link(child, ref Blot) {
	child.shadow().detach()
	c.children.insertBefore(child, ref)
	child.shadow().parent = c.selfParent
	c.Resized(child.Length())
}

func (c *Container) Length() int { return c.children.size }

// Children returns the children in order.
func (c *Container) Children() []Blot { return c.children.slice() }

func (c *Container) ChildCount() int { return c.children.count }

// InsertBefore moves child in front of ref, or to the end when ref is nil,
// in both the model tree and the host tree.
func (c *Container) InsertBefore(child, ref Blot) error {
	if ref != nil && ref.Parent() != c.selfParent {
		return preconditionf("insert before a %s that is not a child of this %s", ref.Kind(), c.Kind())
	}
	if child == ref {
		return nil
	}
	for p := c.selfParent; p != nil; p = p.Parent() {
		if Blot(p) == child {
			return preconditionf("insert a %s into its own descendant", child.Kind())
		}
	}
	c.link(child, ref)
	var refHost HostNode
	if ref != nil {
		refHost = ref.Host()
	}
	h := child.Host()
	if h.Parent() != c.host || h.NextSibling() != refHost {
		c.host.InsertBefore(h, refHost)
	}
	return nil
}

func (c *Container) AppendChild(child Blot) error {
	return c.InsertBefore(child, nil)
}

// InsertAt delegates to the child at index, or appends a new blot when
// index is at the end: text when def is nil, otherwise a blot of kind value
// created with def.
func (c *Container) InsertAt(index int, value string, def interface{}) error {
	child, offset := c.children.find(index, false)
	if child != nil {
		return child.InsertAt(offset, value, def)
	}
	var blot Blot
	var err error
	if def == nil {
		blot, err = c.reg.Create(TextKind, value)
	} else {
		blot, err = c.reg.Create(value, def)
	}
	if err != nil {
		return err
	}
	return c.AppendChild(blot)
}

// DeleteAt removes the container outright when the range covers all of it.
func (c *Container) DeleteAt(index, length int) error {
	if index == 0 && length == c.Length() {
		c.self.Remove()
		return nil
	}
	return c.deleteChildren(index, length)
}

func (c *Container) deleteChildren(index, length int) error {
	return c.children.forEachAt(index, length, func(child Blot, offset, length int) error {
		return child.DeleteAt(offset, length)
	})
}

func (c *Container) FormatAt(index, length int, name string, value interface{}) error {
	return c.children.forEachAt(index, length, func(child Blot, offset, length int) error {
		return child.FormatAt(offset, length, name, value)
	})
}

// Format applies a format to the container itself: clearing the format
// named after the container's own kind unwraps it, and registered
// attributes are set on its host node.
func (c *Container) Format(name string, value interface{}) error {
	if name == c.Kind() && !Truthy(value) {
		return c.selfParent.Unwrap()
	}
	if attr, ok := c.reg.Attribute(name); ok {
		applyAttribute(c.host, attr, value)
	}
	return nil
}

// Descendant returns the blot at index satisfying match, searching down
// through containers, with the index relative to it. It returns nil and -1
// when there is none.
func (c *Container) Descendant(match func(Blot) bool, index int, inclusive bool) (Blot, int) {
	child, offset := c.children.find(index, inclusive)
	if child == nil {
		return nil, -1
	}
	if match(child) {
		return child, offset
	}
	if p, ok := child.(Parent); ok {
		return p.Descendant(match, offset, inclusive)
	}
	return nil, -1
}

// Descendants returns, in document order, every blot in the range that
// satisfies match.
func (c *Container) Descendants(match func(Blot) bool, index, length int) []Blot {
	var res []Blot
	_ = c.children.forEachAt(index, length, func(child Blot, offset, length int) error {
		if match(child) {
			res = append(res, child)
		}
		if p, ok := child.(Parent); ok {
			res = append(res, p.Descendants(match, offset, length)...)
		}
		return nil
	})
	return res
}

// Path returns the chain of blots from c down to the leaf at index.
func (c *Container) Path(index int, inclusive bool) []PathEntry {
	child, offset := c.children.find(index, inclusive)
	path := []PathEntry{{c.self, index}}
	if p, ok := child.(Parent); ok {
		return append(path, p.Path(offset, inclusive)...)
	} else if child != nil {
		path = append(path, PathEntry{child, offset})
	}
	return path
}

func (c *Container) Split(index int, force bool) (Blot, error) {
	if !force {
		if index == 0 {
			return c.self, nil
		}
		if index == c.Length() {
			return c.next, nil
		}
	}
	if c.parent == nil {
		return nil, preconditionf("split a %s with no parent", c.Kind())
	}
	cloned, err := c.self.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	after, ok := cloned.(Parent)
	if !ok {
		cloned.Remove()
		return nil, preconditionf("clone of %s cannot have children", c.Kind())
	}
	if err = c.parent.InsertBefore(after, c.next); err != nil {
		return nil, err
	}
	err = c.children.forEachAt(index, c.Length(), func(child Blot, offset, _ int) error {
		piece, err := child.Split(offset, force)
		if err != nil {
			return err
		}
		if piece == nil {
			return nil
		}
		return after.AppendChild(piece)
	})
	if err != nil {
		return nil, fmt.Errorf("split children: %w", err)
	}
	return after, nil
}

// Optimize normalizes children first, then fills the container with its
// childless placeholder, or removes it, if it is left empty.
func (c *Container) Optimize() error {
	if err := c.optimizeChildren(); err != nil {
		return err
	}
	if c.children.count > 0 {
		return nil
	}
	filled, err := c.fillChildless()
	if err != nil || filled {
		return err
	}
	c.self.Remove()
	return nil
}

func (c *Container) optimizeChildren() error {
	for _, child := range c.children.slice() {
		if child.Parent() != c.selfParent {
			// merged away by an earlier sibling
			continue
		}
		if err := child.Optimize(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) fillChildless() (bool, error) {
	if c.def == nil || c.def.Childless == "" {
		return false, nil
	}
	child, err := c.reg.Create(c.def.Childless, nil)
	if err != nil {
		return false, fmt.Errorf("childless %s: %w", c.def.Childless, err)
	}
	if err = c.AppendChild(child); err != nil {
		return false, err
	}
	return true, child.Optimize()
}

// MoveChildren moves every child, in order, into target before ref.
func (c *Container) MoveChildren(target Parent, ref Blot) error {
	for _, child := range c.children.slice() {
		if err := target.InsertBefore(child, ref); err != nil {
			return err
		}
	}
	return nil
}

// Unwrap moves the children up into the parent, where the container was,
// and removes the container.
func (c *Container) Unwrap() error {
	if c.parent == nil {
		return preconditionf("unwrap a %s with no parent", c.Kind())
	}
	if err := c.MoveChildren(c.parent, c.next); err != nil {
		return err
	}
	c.self.Remove()
	return nil
}

// Replace moves the children into target and removes the container.
func (c *Container) Replace(target Parent) error {
	if Blot(target) == c.self {
		return nil
	}
	if err := c.MoveChildren(target, nil); err != nil {
		return err
	}
	c.self.Remove()
	return nil
}

// Update reconciles the childList records targeting the container's own
// host node. Records about other host nodes are ignored. A host node that
// cannot be mirrored is left out and reported, and the remaining records
// are still reconciled. Detached blots stay bound until the root's Update
// finishes, so that a later record can relink them.
func (c *Container) Update(records []ChangeRecord) error {
	var errs []error
	var added, removed []HostNode
	for _, rec := range records {
		if rec.Target == c.host && rec.Kind == ChangeChildList {
			added = append(added, rec.Added...)
			removed = append(removed, rec.Removed...)
		}
	}
	for _, h := range removed {
		blot := c.reg.Find(h)
		if blot == nil || blot.Parent() != c.selfParent || h.Parent() == c.host {
			// already moved by another record, or re-added here
			continue
		}
		blot.shadow().detach()
		c.reg.orphan(blot)
	}
	sort.SliceStable(added, func(i, j int) bool {
		return added[i].ComparePosition(added[j]) < 0
	})
	for i := len(added) - 1; i >= 0; i-- {
		h := added[i]
		if h.Parent() != c.host {
			continue
		}
		ref := c.boundNextSibling(h)
		blot, err := c.adopt(h, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", h.Name(), err))
			continue
		}
		if blot.Parent() != c.selfParent || blot.Next() != ref {
			c.link(blot, ref)
		}
	}
	return errors.Join(errs...)
}

// boundNextSibling returns the blot of the nearest following host sibling
// that is already a model child of c.
func (c *Container) boundNextSibling(h HostNode) Blot {
	for sib := h.NextSibling(); sib != nil; sib = sib.NextSibling() {
		if b := c.reg.Find(sib); b != nil && b.Parent() == c.selfParent {
			return b
		}
	}
	return nil
}

func (c *Container) Remove() {
	c.Shadow.Remove()
}

// OfKind matches blots of any of the given kinds.
func OfKind(kinds ...string) func(Blot) bool {
	return func(b Blot) bool {
		for _, k := range kinds {
			if b.Kind() == k {
				return true
			}
		}
		return false
	}
}

// DescendantOf is Descendant matching blots that implement T.
func DescendantOf[T Blot](p Parent, index int, inclusive bool) (T, int) {
	b, offset := p.Descendant(func(b Blot) bool {
		_, ok := b.(T)
		return ok
	}, index, inclusive)
	if b == nil {
		var zero T
		return zero, -1
	}
	return b.(T), offset
}

// DescendantsOf is Descendants matching blots that implement T.
func DescendantsOf[T Blot](p Parent, index, length int) []T {
	found := p.Descendants(func(b Blot) bool {
		_, ok := b.(T)
		return ok
	}, index, length)
	res := make([]T, len(found))
	for i, b := range found {
		res[i] = b.(T)
	}
	return res
}
