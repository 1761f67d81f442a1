package parchment

import "unicode/utf8"

// Kind names of the leaves every standard registry carries.
const (
	TextKind  = "text"
	BreakKind = "break"
)

// Text is a leaf holding the character data of a text host node. Its length
// is the number of runes.
type Text struct {
	Shadow
	n int
}

// NewText constructs a Text; a string value replaces the host's data.
func NewText(reg *Registry, host HostNode, value interface{}) (Blot, error) {
	if host.Name() != textHostName {
		return nil, preconditionf("text blot on a %s host node", host.Name())
	}
	t := &Text{}
	t.Init(t, reg, host)
	if s, ok := value.(string); ok && s != "" {
		host.SetText(s)
	}
	t.n = utf8.RuneCountInString(host.Text())
	return t, nil
}

func (t *Text) Length() int { return t.n }

// Value returns the text content.
func (t *Text) Value() string { return t.host.Text() }

func (t *Text) setText(s string) {
	t.host.SetText(s)
	t.sync()
}

// sync re-reads the host text and publishes the length change.
func (t *Text) sync() {
	n := utf8.RuneCountInString(t.host.Text())
	delta := n - t.n
	t.n = n
	t.Resized(delta)
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

// InsertAt inserts value into the text itself when def is nil; otherwise
// the text is split and a blot of kind value is inserted between the halves.
func (t *Text) InsertAt(index int, value string, def interface{}) error {
	if def != nil {
		return t.Shadow.InsertAt(index, value, def)
	}
	r := []rune(t.Value())
	if index < 0 || index > len(r) {
		return preconditionf("insert at %d outside text length %d", index, len(r))
	}
	t.setText(string(r[:index]) + value + string(r[index:]))
	return nil
}

// DeleteAt cuts the range out of the text. A text left empty is removed by
// Optimize.
func (t *Text) DeleteAt(index, length int) error {
	r := []rune(t.Value())
	if index < 0 || length < 0 || index+length > len(r) {
		return preconditionf("delete [%d, %d) outside text length %d", index, index+length, len(r))
	}
	t.setText(string(r[:index]) + string(r[index+length:]))
	return nil
}

func (t *Text) Split(index int, force bool) (Blot, error) {
	if !force {
		if index == 0 {
			return t, nil
		}
		if index == t.n {
			return t.next, nil
		}
	}
	if t.parent == nil {
		return nil, preconditionf("split a text with no parent")
	}
	r := []rune(t.Value())
	index = clamp(index, 0, len(r))
	after, err := t.reg.Create(TextKind, string(r[index:]))
	if err != nil {
		return nil, err
	}
	t.setText(string(r[:index]))
	if err = t.parent.InsertBefore(after, t.next); err != nil {
		return nil, err
	}
	return after, nil
}

// Optimize removes an empty text and absorbs the texts that follow it.
func (t *Text) Optimize() error {
	if t.n == 0 {
		t.Remove()
		return nil
	}
	for {
		next, ok := t.next.(*Text)
		if !ok || next.host != t.host.NextSibling() {
			return nil
		}
		t.setText(t.Value() + next.Value())
		next.Remove()
	}
}

// Update re-reads the host text on character data records.
func (t *Text) Update(records []ChangeRecord) error {
	for _, rec := range records {
		if rec.Kind == ChangeCharacterData && rec.Target == t.host {
			t.sync()
		}
	}
	return nil
}

// Break is the empty leaf used as the childless placeholder of blocks. It
// removes itself as soon as it has a sibling.
type Break struct {
	Shadow
}

func NewBreak(reg *Registry, host HostNode, _ interface{}) (Blot, error) {
	b := &Break{}
	b.Init(b, reg, host)
	return b, nil
}

func (b *Break) Length() int { return 0 }

func (b *Break) Optimize() error {
	if b.prev != nil || b.next != nil {
		b.Remove()
	}
	return nil
}
