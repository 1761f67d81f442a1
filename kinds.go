package parchment

import "fmt"

// Kind names of the standard registry.
const (
	ImageKind  = "image"
	BlockKind  = "block"
	BoldKind   = "bold"
	ItalicKind = "italic"
	RootKind   = "root"

	// AlignFormat is the attribute format setting a block's "align".
	AlignFormat = "align"
)

// Image is an opaque leaf of length 1 whose value is its source URL.
type Image struct {
	Shadow
}

func NewImage(reg *Registry, host HostNode, value interface{}) (Blot, error) {
	img := &Image{}
	img.Init(img, reg, host)
	if src, ok := value.(string); ok && src != "" {
		host.SetAttribute("src", src)
	}
	return img, nil
}

// Value returns the source URL.
func (img *Image) Value() string {
	src, _ := img.host.Attribute("src")
	return src
}

// Block is a paragraph-level container. Attribute formats apply to the
// block itself rather than to its content.
type Block struct {
	Container
}

func NewBlock(reg *Registry, host HostNode, _ interface{}) (Blot, error) {
	b := &Block{}
	if err := b.Init(b, reg, host); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Block) FormatAt(index, length int, name string, value interface{}) error {
	if _, ok := b.reg.Attribute(name); ok {
		return b.Format(name, value)
	}
	return b.Container.FormatAt(index, length, name, value)
}

// Inline is a formatting container such as bold. Formatting a range with
// the inline's own kind isolates that range and formats the isolated piece,
// so that a false value unwraps exactly the range.
type Inline struct {
	Container
}

func NewInline(reg *Registry, host HostNode, _ interface{}) (Blot, error) {
	in := &Inline{}
	if err := in.Init(in, reg, host); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Inline) FormatAt(index, length int, name string, value interface{}) error {
	if name != in.Kind() {
		return in.Container.FormatAt(index, length, name, value)
	}
	target, err := in.Isolate(index, length)
	if err != nil {
		return err
	}
	p, ok := target.(Parent)
	if !ok {
		return nil
	}
	return p.Format(name, value)
}

// Optimize merges an adjacent inline of the same kind and attributes into
// this one.
func (in *Inline) Optimize() error {
	if err := in.Container.Optimize(); err != nil {
		return err
	}
	if in.parent == nil {
		return nil
	}
	merged := false
	for {
		next, ok := in.next.(*Inline)
		if !ok || next.Kind() != in.Kind() || next.host != in.host.NextSibling() ||
			!sameAttributes(in.host, next.host) {
			break
		}
		if err := next.MoveChildren(in, nil); err != nil {
			return err
		}
		next.Remove()
		merged = true
	}
	if merged {
		// the children met at the seam, e.g. two texts
		return in.optimizeChildren()
	}
	return nil
}

func sameAttributes(a, b HostNode) bool {
	aa, ba := a.Attributes(), b.Attributes()
	if len(aa) != len(ba) {
		return false
	}
	for k, v := range aa {
		if bv, ok := ba[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// StandardDefinitions returns the definitions of the standard kinds.
func StandardDefinitions() []*Definition {
	return []*Definition{
		{Name: TextKind, Tags: []string{textHostName}, New: NewText},
		{Name: BreakKind, Tags: []string{"br"}, New: NewBreak},
		{Name: ImageKind, Tags: []string{"img"}, New: NewImage},
		{Name: BlockKind, Tags: []string{"p"}, Childless: BreakKind, New: NewBlock},
		{Name: BoldKind, Tags: []string{"strong", "b"}, New: NewInline},
		{Name: ItalicKind, Tags: []string{"em", "i"}, New: NewInline},
	}
}

// StandardRegistry returns a registry with the standard kinds and the align
// attribute registered.
func StandardRegistry(cfg RegistryConfig) (*Registry, error) {
	reg := NewRegistry(cfg)
	for _, def := range StandardDefinitions() {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("standard registry: %w", err)
		}
	}
	reg.RegisterAttribute(AlignFormat, "align")
	return reg, nil
}
