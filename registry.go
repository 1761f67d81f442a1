package parchment

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Definition describes a kind of blot: how to recognize its host nodes and
// how to construct it.
type Definition struct {
	// Name identifies the kind, e.g. "text" or "block".
	Name string

	// Tags are the host node names claimed by the kind. The first one is
	// used when creating a fresh host node; "#text" creates a text node.
	Tags []string

	// Classes are values of the host "class" attribute claimed by the kind.
	// A class match takes precedence over a tag match.
	Classes []string

	// Childless names the kind to place in a container of this kind when it
	// would otherwise be left empty. Empty containers without one are
	// removed.
	Childless string

	// New constructs a blot around host, which is freshly created when the
	// blot is being created by kind name, in which case value is the value
	// given to Create.
	New func(reg *Registry, host HostNode, value interface{}) (Blot, error)
}

// RegistryConfig controls how a Registry creates and classifies host nodes.
type RegistryConfig struct {
	// Factory creates the host nodes of blots created by kind name.
	Factory HostFactory

	// DefinitionCache memoizes classification of host nodes. Nil means
	// NewDefinitionCache(DefaultDefinitionCacheSize).
	DefinitionCache DefinitionCache

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Registry maps kind names and host nodes to Definitions, and keeps the
// identity table binding each host node to its blot.
type Registry struct {
	factory    HostFactory
	defs       map[string]*Definition
	byTag      map[string]*Definition
	byClass    map[string]*Definition
	attributes map[string]string
	classified DefinitionCache
	nodes      map[HostNode]Blot
	orphans    []Blot
	log        *zap.Logger
}

const textHostName = "#text"

// NewRegistry returns an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		factory:    cfg.Factory,
		defs:       map[string]*Definition{},
		byTag:      map[string]*Definition{},
		byClass:    map[string]*Definition{},
		attributes: map[string]string{},
		classified: cfg.DefinitionCache,
		nodes:      map[HostNode]Blot{},
		log:        cfg.Logger,
	}
	if r.classified == nil {
		r.classified = NewDefinitionCache(DefaultDefinitionCacheSize)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// Register adds a kind. Kind names must be unique; a later definition
// claiming an already-claimed tag or class takes it over.
func (r *Registry) Register(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("register: definition has no name")
	}
	if def.New == nil {
		return fmt.Errorf("register %s: definition has no constructor", def.Name)
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("register %s: kind already registered", def.Name)
	}
	r.defs[def.Name] = def
	for _, tag := range def.Tags {
		r.byTag[strings.ToLower(tag)] = def
	}
	for _, class := range def.Classes {
		r.byClass[class] = def
	}
	r.classified.Purge()
	return nil
}

// RegisterAttribute makes format name set the host attribute attr.
func (r *Registry) RegisterAttribute(name, attr string) {
	r.attributes[name] = attr
}

// Attribute returns the host attribute behind format name.
func (r *Registry) Attribute(name string) (string, bool) {
	attr, ok := r.attributes[name]
	return attr, ok
}

// Query returns the definition of kind name, or nil.
func (r *Registry) Query(name string) *Definition {
	return r.defs[name]
}

// Factory returns the factory used for fresh host nodes.
func (r *Registry) Factory() HostFactory {
	return r.factory
}

// Classify returns the definition claiming host, or nil.
func (r *Registry) Classify(host HostNode) *Definition {
	class, _ := host.Attribute("class")
	key := host.Name() + "\x00" + class
	if cached, ok := r.classified.Get(key); ok {
		return cached.(*Definition)
	}
	var def *Definition
	for _, c := range strings.Fields(class) {
		if d, ok := r.byClass[c]; ok {
			def = d
			break
		}
	}
	if def == nil {
		def = r.byTag[strings.ToLower(host.Name())]
	}
	r.classified.Add(key, def)
	return def
}

// Create returns a new blot of the given kind, on a fresh host node.
func (r *Registry) Create(kind string, value interface{}) (Blot, error) {
	def := r.defs[kind]
	if def == nil {
		return nil, &UnrecognizedError{Kind: kind}
	}
	if r.factory == nil {
		return nil, fmt.Errorf("create %s: registry has no host factory", kind)
	}
	var host HostNode
	if len(def.Tags) == 0 || def.Tags[0] == textHostName {
		host = r.factory.CreateText("")
	} else {
		host = r.factory.CreateElement(def.Tags[0])
	}
	return r.construct(def, host, value)
}

// CreateFromHost returns a new blot for an existing host node, importing
// its descendants.
func (r *Registry) CreateFromHost(host HostNode) (Blot, error) {
	def := r.Classify(host)
	if def == nil {
		return nil, &UnrecognizedError{Name: host.Name()}
	}
	return r.construct(def, host, nil)
}

func (r *Registry) construct(def *Definition, host HostNode, value interface{}) (Blot, error) {
	blot, err := def.New(r, host, value)
	if err != nil {
		if b, bound := r.nodes[host]; bound {
			r.unbindTree(b)
		}
		return nil, fmt.Errorf("new %s: %w", def.Name, err)
	}
	blot.shadow().def = def
	return blot, nil
}

// Find returns the blot bound to host, or nil.
func (r *Registry) Find(host HostNode) Blot {
	if host == nil {
		return nil
	}
	return r.nodes[host]
}

// FindAncestor returns the blot bound to host or to its nearest bound
// ancestor, or nil.
func (r *Registry) FindAncestor(host HostNode) Blot {
	for ; host != nil; host = host.Parent() {
		if b, ok := r.nodes[host]; ok {
			return b
		}
	}
	return nil
}

// Bound returns the number of host nodes in the identity table.
func (r *Registry) Bound() int {
	return len(r.nodes)
}

func (r *Registry) bind(host HostNode, b Blot) {
	if existing, ok := r.nodes[host]; ok && existing != b {
		panic(fmt.Sprintf("bug! host node %s is already bound to a %s", host.Name(), existing.Kind()))
	}
	r.nodes[host] = b
}

func (r *Registry) unbind(b Blot) {
	if r.nodes[b.Host()] == b {
		delete(r.nodes, b.Host())
	}
}

// orphan notes a blot that reconciliation detached while its host node
// still has a parent. A later record of the same batch may relink it.
func (r *Registry) orphan(b Blot) {
	r.orphans = append(r.orphans, b)
}

// release unbinds the orphans that were not relinked.
func (r *Registry) release() {
	for _, b := range r.orphans {
		if b.Parent() == nil {
			r.unbindTree(b)
		}
	}
	r.orphans = nil
}

// unbindTree forgets b and all of its descendants.
func (r *Registry) unbindTree(b Blot) {
	r.unbind(b)
	if p, ok := b.(Parent); ok {
		for cur := p.container().children.head; cur != nil; cur = cur.Next() {
			r.unbindTree(cur)
		}
	}
}
