package parchment_test

import (
	"testing"

	"github.com/jrhy/parchment"
	"github.com/jrhy/parchment/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStandardRegistry(t *testing.T) (*dom.Document, *parchment.Registry) {
	doc := dom.NewDocument()
	reg, err := parchment.StandardRegistry(parchment.RegistryConfig{Factory: doc})
	require.NoError(t, err)
	return doc, reg
}

func element(doc *dom.Document, tag string, attrs ...string) *dom.Node {
	n := doc.Element(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttribute(attrs[i], attrs[i+1])
	}
	return n
}

func TestClassify(t *testing.T) {
	t.Parallel()
	doc, reg := newStandardRegistry(t)
	require.NoError(t, reg.Register(&parchment.Definition{
		Name:    "note",
		Classes: []string{"note"},
		New:     parchment.NewContainer,
	}))

	for _, tc := range []struct {
		host *dom.Node
		kind string
	}{
		{element(doc, "p"), parchment.BlockKind},
		{element(doc, "b"), parchment.BoldKind},
		{element(doc, "strong"), parchment.BoldKind},
		{element(doc, "em"), parchment.ItalicKind},
		{element(doc, "img"), parchment.ImageKind},
		{element(doc, "br"), parchment.BreakKind},
		{doc.TextNode("x"), parchment.TextKind},
		{element(doc, "p", "class", "x note"), "note"},
		{element(doc, "span", "class", "note"), "note"},
		{element(doc, "p", "class", "other"), parchment.BlockKind},
		{element(doc, "span"), ""},
	} {
		def := reg.Classify(tc.host)
		if tc.kind == "" {
			assert.Nil(t, def, "%v", tc.host)
			continue
		}
		require.NotNil(t, def, "%v", tc.host)
		assert.Equal(t, tc.kind, def.Name, "%v", tc.host)
	}
}

func TestRegisterPurgesClassification(t *testing.T) {
	t.Parallel()
	doc, reg := newStandardRegistry(t)
	host := doc.Element("x-new")
	assert.Nil(t, reg.Classify(host))
	require.NoError(t, reg.Register(&parchment.Definition{
		Name: "new",
		Tags: []string{"X-NEW"},
		New:  parchment.NewContainer,
	}))
	def := reg.Classify(host)
	require.NotNil(t, def)
	assert.Equal(t, "new", def.Name)
}

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	t.Parallel()
	_, reg := newStandardRegistry(t)
	assert.Error(t, reg.Register(&parchment.Definition{Name: parchment.BlockKind, New: parchment.NewContainer}))
	assert.Error(t, reg.Register(&parchment.Definition{New: parchment.NewContainer}))
	assert.Error(t, reg.Register(&parchment.Definition{Name: "nothing"}))
	assert.Nil(t, reg.Query("nothing"))
	assert.NotNil(t, reg.Query(parchment.TextKind))
}

func TestCreate(t *testing.T) {
	t.Parallel()
	_, reg := newStandardRegistry(t)

	b, err := reg.Create(parchment.TextKind, "héllo")
	require.NoError(t, err)
	assert.Equal(t, parchment.TextKind, b.Kind())
	assert.Equal(t, 5, b.Length())
	assert.Nil(t, b.Parent())
	assert.Same(t, b, reg.Find(b.Host()))

	b, err = reg.Create(parchment.ImageKind, "pic.png")
	require.NoError(t, err)
	assert.Equal(t, "img", b.Host().Name())
	assert.Equal(t, "pic.png", b.(*parchment.Image).Value())
	assert.Equal(t, 1, b.Length())

	b, err = reg.Create(parchment.BlockKind, nil)
	require.NoError(t, err)
	assert.Equal(t, "p", b.Host().Name())
	assert.Equal(t, 0, b.(parchment.Parent).ChildCount())

	_, err = reg.Create("nonesuch", nil)
	var unrecognized *parchment.UnrecognizedError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "nonesuch", unrecognized.Kind)
	assert.ErrorIs(t, err, parchment.ErrUnrecognized)
}

func TestCreateWithoutFactory(t *testing.T) {
	t.Parallel()
	reg, err := parchment.StandardRegistry(parchment.RegistryConfig{})
	require.NoError(t, err)
	_, err = reg.Create(parchment.TextKind, "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, parchment.ErrUnrecognized)
}

func TestCreateFromHost(t *testing.T) {
	t.Parallel()
	doc, reg := newStandardRegistry(t)
	host, err := doc.ParseFragmentString(`<p>a<em>b</em><span>c</span></p>`)
	require.NoError(t, err)
	p := host.FirstChild()

	b, err := reg.CreateFromHost(p)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Length())
	assert.Equal(t, 4, reg.Bound(), "p, a, em and b are bound")

	_, err = reg.CreateFromHost(element(doc, "span"))
	var unrecognized *parchment.UnrecognizedError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "span", unrecognized.Name)

	_, err = parchment.NewText(reg, element(doc, "p"), nil)
	assert.ErrorIs(t, err, parchment.ErrPrecondition)
}

func TestFindAncestor(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab<span>cd</span></p>`)
	span := f.find("span")
	assert.Nil(t, f.reg.Find(span))
	assert.Nil(t, f.reg.Find(nil))
	assert.Same(t, f.blot("p"), f.reg.FindAncestor(span.FirstChild()))
	assert.Same(t, f.root, f.reg.FindAncestor(f.host))
	assert.Nil(t, f.reg.FindAncestor(f.doc.Element("p")))
}

func TestDefinitionCache(t *testing.T) {
	t.Parallel()
	cache := parchment.NewDefinitionCache(2)
	doc := dom.NewDocument()
	reg, err := parchment.StandardRegistry(parchment.RegistryConfig{Factory: doc, DefinitionCache: cache})
	require.NoError(t, err)
	for _, class := range []string{"a", "b", "c"} {
		reg.Classify(element(doc, "p", "class", class))
	}
	_, ok := cache.Get("p\x00a")
	assert.False(t, ok, "evicted")
	cached, ok := cache.Get("p\x00c")
	require.True(t, ok)
	assert.Equal(t, parchment.BlockKind, cached.(*parchment.Definition).Name)
}
