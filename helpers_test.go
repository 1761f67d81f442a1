package parchment_test

import (
	"strings"
	"testing"

	"github.com/jrhy/parchment"
	"github.com/jrhy/parchment/dom"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	recorderKind = "recorder"
	boxKind      = "box"
)

// call is a FormatAt or DeleteAt that reached a recorder.
type call struct {
	Op            string
	Index, Length int
	Name          string
}

// recorder is an opaque leaf of length 4 that remembers the calls reaching
// it, for checking how containers clip ranges.
type recorder struct {
	parchment.Shadow
	calls *[]call
}

func (r *recorder) Length() int { return 4 }

func (r *recorder) DeleteAt(index, length int) error {
	*r.calls = append(*r.calls, call{"delete", index, length, ""})
	if index == 0 && length == r.Length() {
		r.Remove()
	}
	return nil
}

func (r *recorder) FormatAt(index, length int, name string, value interface{}) error {
	*r.calls = append(*r.calls, call{"format", index, length, name})
	return nil
}

type fixture struct {
	t     *testing.T
	doc   *dom.Document
	reg   *parchment.Registry
	host  *dom.Node
	root  *parchment.Root
	calls []call
}

type fixtureOption func(*parchment.Config)

func withChildless(kind string) fixtureOption {
	return func(cfg *parchment.Config) { cfg.Childless = kind }
}

// newFixture mirrors the given HTML fragment in a root with the standard
// kinds, plus recorders (<x-rec>) and boxes (<div>).
func newFixture(t *testing.T, fragment string, options ...fixtureOption) *fixture {
	f := &fixture{t: t, doc: dom.NewDocument()}
	var err error
	f.reg, err = parchment.StandardRegistry(parchment.RegistryConfig{
		Factory: f.doc,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NoError(t, f.reg.Register(&parchment.Definition{
		Name: recorderKind,
		Tags: []string{"x-rec"},
		New: func(reg *parchment.Registry, host parchment.HostNode, _ interface{}) (parchment.Blot, error) {
			r := &recorder{calls: &f.calls}
			r.Init(r, reg, host)
			return r, nil
		},
	}))
	require.NoError(t, f.reg.Register(&parchment.Definition{
		Name: boxKind,
		Tags: []string{"div"},
		New:  parchment.NewContainer,
	}))
	f.host, err = f.doc.ParseFragmentString(fragment)
	require.NoError(t, err)
	cfg := parchment.Config{Registry: f.reg, Observable: f.doc}
	for _, o := range options {
		o(&cfg)
	}
	f.root, err = parchment.NewRoot(cfg, f.host)
	require.NoError(t, err)
	f.verify()
	return f
}

func (f *fixture) html() string {
	return dom.InnerHTML(f.host)
}

func (f *fixture) verify() {
	f.t.Helper()
	require.NoError(f.t, parchment.Verify(f.root))
}

func (f *fixture) dump() string {
	var sb strings.Builder
	require.NoError(f.t, parchment.Dump(&sb, f.root))
	return sb.String()
}

// deliver hands the pending host changes to the root.
func (f *fixture) deliver() {
	f.t.Helper()
	require.NoError(f.t, f.doc.Deliver())
	f.verify()
}

// find returns the first host element with the given tag, in document
// order.
func (f *fixture) find(tag string) *dom.Node {
	var walk func(n *dom.Node) *dom.Node
	walk = func(n *dom.Node) *dom.Node {
		for _, c := range n.Children() {
			if c.Name() == tag {
				return c
			}
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	n := walk(f.host)
	require.NotNil(f.t, n, "no <%s>", tag)
	return n
}

func (f *fixture) blot(tag string) parchment.Blot {
	b := f.reg.Find(f.find(tag))
	require.NotNil(f.t, b, "<%s> is not bound", tag)
	return b
}

func (f *fixture) parent(tag string) parchment.Parent {
	p, ok := f.blot(tag).(parchment.Parent)
	require.True(f.t, ok, "<%s> is not a container", tag)
	return p
}

func texts(p parchment.Parent) []string {
	var res []string
	for _, t := range parchment.DescendantsOf[*parchment.Text](p, 0, p.Length()) {
		res = append(res, t.Value())
	}
	return res
}
