package parchment_test

import (
	"testing"

	"github.com/jrhy/parchment"
	"github.com/jrhy/parchment/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var everything = parchment.ObserveOptions{
	ChildList:     true,
	Attributes:    true,
	CharacterData: true,
	Subtree:       true,
}

// watch starts an observer of its own on the fixture's host tree, so that a
// test can hand the root a batch of records explicitly.
func (f *fixture) watch() *dom.Observer {
	o := f.doc.Observer(nil)
	o.Observe(f.host, everything)
	f.t.Cleanup(func() { f.doc.Release(o) })
	return o
}

func TestModelEditsAreNotObserved(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	assert.False(t, f.root.Dirty())
	require.NoError(t, f.root.InsertAt(1, "X", nil))
	require.NoError(t, f.root.FormatAt(0, 2, parchment.BoldKind, true))
	require.NoError(t, f.root.DeleteAt(2, 1))
	assert.Equal(t, `<p><strong>aX</strong></p>`, f.html())
	assert.True(t, f.root.Dirty())

	f.deliver()
	assert.True(t, f.root.Dirty(), "no records were delivered")
	require.NoError(t, f.root.Update(nil))
	assert.False(t, f.root.Dirty())
}

func TestHostEditsAreReconciled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	text, _ := parchment.DescendantOf[*parchment.Text](f.root, 0, false)
	require.NotNil(t, text)

	text.Host().SetText("abc")
	f.deliver()
	assert.Equal(t, 3, text.Length())
	assert.Equal(t, 3, f.root.Length())

	p := f.doc.Element("p")
	p.AppendChild(f.doc.TextNode("de"))
	f.host.AppendChild(p)
	f.deliver()
	assert.Equal(t, 2, f.root.ChildCount())
	assert.Equal(t, 5, f.root.Length())
	block, ok := f.reg.Find(p).(*parchment.Block)
	require.True(t, ok)
	assert.Equal(t, []string{"de"}, texts(block))

	p.SetText("xyz")
	f.deliver()
	assert.Equal(t, []string{"abc", "xyz"}, texts(f.root))
	assert.Equal(t, 6, f.root.Length())

	strong := f.doc.Element("strong")
	p.AppendChild(strong)
	strong.AppendChild(f.doc.TextNode("!"))
	f.deliver()
	assert.Equal(t, `<p>abc</p><p>xyz<strong>!</strong></p>`, f.html())
	assert.Equal(t, parchment.BoldKind, f.blot("strong").Kind())
	assert.Equal(t, 7, f.root.Length())
}

func TestHostRemovalUnbinds(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p><p>cd</p>`)
	host := f.find("p")
	removed := f.blot("p")
	text := removed.(parchment.Parent).Children()[0]
	require.Equal(t, 5, f.reg.Bound())

	host.Remove()
	f.deliver()
	assert.Nil(t, f.reg.Find(host))
	assert.Nil(t, f.reg.Find(text.Host()))
	assert.Nil(t, removed.Parent())
	assert.Equal(t, 3, f.reg.Bound())
	assert.Equal(t, 1, f.root.ChildCount())
	assert.Equal(t, 2, f.root.Length())
}

func TestAddedAndRemovedInOneBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	p := f.doc.Element("p")
	f.host.AppendChild(p)
	p.Remove()
	f.deliver()
	assert.Nil(t, f.reg.Find(p))
	assert.Equal(t, 3, f.reg.Bound())
}

func TestReparentKeepsIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p><p><strong>cd</strong></p>`)
	first, second := f.root.Children()[0].(parchment.Parent), f.root.Children()[1].(parchment.Parent)
	strong := f.find("strong")
	bold := f.blot("strong")
	text := bold.(parchment.Parent).Children()[0]

	first.Host().AppendChild(strong)
	f.deliver()
	assert.Same(t, bold, f.reg.Find(strong))
	assert.Same(t, first, bold.Parent())
	assert.Same(t, text, bold.(parchment.Parent).Children()[0])
	assert.Equal(t, 0, second.ChildCount())
	assert.Equal(t, 4, first.Length())
	assert.Equal(t, 4, f.root.Length())
}

func TestReparentInEitherRecordOrder(t *testing.T) {
	t.Parallel()
	for _, addedFirst := range []bool{false, true} {
		f := newFixture(t, `<p>ab</p><p><strong>cd</strong></p>`)
		f.root.Close()
		first, second := f.root.Children()[0].(parchment.Parent), f.root.Children()[1].(parchment.Parent)
		strong := f.find("strong")
		bold := f.blot("strong")

		first.Host().AppendChild(strong)
		removal := parchment.ChangeRecord{Kind: parchment.ChangeChildList, Target: second.Host(), Removed: []parchment.HostNode{strong}}
		addition := parchment.ChangeRecord{Kind: parchment.ChangeChildList, Target: first.Host(), Added: []parchment.HostNode{strong}}
		records := []parchment.ChangeRecord{removal, addition}
		if addedFirst {
			records = []parchment.ChangeRecord{addition, removal}
		}
		require.NoError(t, f.root.Update(records))
		f.verify()
		assert.Same(t, bold, f.reg.Find(strong), "added first: %v", addedFirst)
		assert.Same(t, first, bold.Parent(), "added first: %v", addedFirst)
		assert.Equal(t, 0, second.ChildCount(), "added first: %v", addedFirst)
		assert.Equal(t, 6, f.reg.Bound(), "added first: %v", addedFirst)
	}
}

func TestChangesWhileDetached(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p><p>cd</p>`)
	p := f.find("p")
	block := f.blot("p")
	p.Remove()
	p.AppendChild(f.doc.TextNode("ef"))
	f.host.AppendChild(p)
	f.deliver()
	assert.Same(t, block, f.reg.Find(p))
	assert.Equal(t, []string{"cd", "ab", "ef"}, texts(f.root))
	assert.Equal(t, 6, f.root.Length())
}

func TestUpdateIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab<strong>cd</strong></p>`)
	o := f.watch()
	f.root.Close()

	p := f.find("p")
	p.InsertBefore(f.find("strong"), p.FirstChild())
	f.find("strong").FirstChild().SetText("cde")
	p.AppendChild(f.doc.TextNode("f"))
	records := o.TakeRecords()
	require.NotEmpty(t, records)

	require.NoError(t, f.root.Update(records))
	f.verify()
	once := f.dump()
	assert.Equal(t, []string{"cde", "ab", "f"}, texts(f.root))

	require.NoError(t, f.root.Update(records))
	f.verify()
	assert.Equal(t, once, f.dump())
}

func TestPendingRecordsReconciledBeforeEdit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	text, _ := parchment.DescendantOf[*parchment.Text](f.root, 0, false)
	text.Host().SetText("abcd")

	require.NoError(t, f.root.InsertAt(3, "!", nil))
	assert.Equal(t, `<p>abc!d</p>`, f.html())
	assert.Equal(t, 5, f.root.Length())
	f.deliver()
}

func TestRootPreconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	for name, err := range map[string]error{
		"insert before start": f.root.InsertAt(-1, "x", nil),
		"insert past end":     f.root.InsertAt(3, "x", nil),
		"delete past end":     f.root.DeleteAt(1, 5),
		"negative length":     f.root.DeleteAt(1, -1),
		"format past end":     f.root.FormatAt(0, 3, parchment.BoldKind, true),
		"unformat the root":   f.root.Format(parchment.RootKind, false),
	} {
		assert.ErrorIs(t, err, parchment.ErrPrecondition, name)
	}
	assert.Equal(t, `<p>ab</p>`, f.html())
	f.verify()
}

func TestRootIsNeverRemoved(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p><p>cd</p>`)
	require.NoError(t, f.root.DeleteAt(0, f.root.Length()))
	assert.Equal(t, "", f.html())
	assert.Equal(t, 0, f.root.ChildCount())
	assert.Same(t, f.root, f.reg.Find(f.host))
	assert.Equal(t, parchment.RootKind, f.root.Kind())

	require.NoError(t, f.root.InsertAt(0, "new", nil))
	assert.Equal(t, `new`, f.html())
	f.verify()
}

func TestAttributeRecordsAreIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	f.find("p").SetAttribute("align", "left")
	f.host.SetAttribute("class", "doc")
	f.deliver()
	assert.Equal(t, 2, f.root.Length())
}

func TestUnrecognizedDuringUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	p := f.doc.Element("p")
	p.AppendChild(f.doc.TextNode("cd"))
	f.host.AppendChild(f.doc.Element("span"))
	f.host.AppendChild(p)
	err := f.doc.Deliver()
	require.ErrorIs(t, err, parchment.ErrUnrecognized)
	var unrecognized *parchment.UnrecognizedError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "span", unrecognized.Name)
	f.verify()
	assert.Equal(t, 4, f.root.Length(), "the rest of the batch is reconciled")
	assert.NotNil(t, f.reg.Find(p))
	require.NoError(t, f.root.Update(nil))
}

func TestUnrecognizedInOneRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	f.root.Close()
	span, p := f.doc.Element("span"), f.doc.Element("p")
	f.host.AppendChild(span)
	f.host.AppendChild(p)
	err := f.root.Update([]parchment.ChangeRecord{{
		Kind:   parchment.ChangeChildList,
		Target: f.host,
		Added:  []parchment.HostNode{span, p},
	}})
	require.ErrorIs(t, err, parchment.ErrUnrecognized)
	assert.Equal(t, 2, f.root.ChildCount())
	f.verify()
}

func TestMoveOutOfMirrorUnbinds(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab<span></span></p><p>cd</p>`)
	span := f.find("span")
	text := f.parent("p").Children()[0]
	require.Equal(t, 5, f.reg.Bound())

	span.AppendChild(text.Host())
	f.deliver()
	assert.Nil(t, f.reg.Find(text.Host()))
	assert.Nil(t, text.Parent())
	assert.Equal(t, 4, f.reg.Bound())
	assert.Equal(t, 2, f.root.Length())

	span.Remove()
	f.deliver()
	assert.Equal(t, 4, f.reg.Bound())

	elsewhere := f.doc.Element("div")
	moved := f.find("p")
	elsewhere.AppendChild(moved)
	f.deliver()
	assert.Nil(t, f.reg.Find(moved))
	assert.Equal(t, 3, f.reg.Bound())
}

func TestVerifyReportsStaleBindings(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	stray, err := f.reg.Create(parchment.TextKind, "x")
	require.NoError(t, err)
	require.Error(t, parchment.Verify(f.root))
	stray.Remove()
	f.verify()
}

func TestClose(t *testing.T) {
	t.Parallel()
	f := newFixture(t, `<p>ab</p>`)
	f.root.Close()
	f.find("p").AppendChild(f.doc.TextNode("c"))
	require.NoError(t, f.doc.Deliver())
	assert.Equal(t, 2, f.root.Length())
	require.NoError(t, f.root.Update(nil))
	assert.Equal(t, 2, f.root.Length())

	f.root.Remove()
	assert.Equal(t, 0, f.reg.Bound())
	assert.Equal(t, `<p>abc</p>`, f.html(), "the host tree is left in place")
}

func TestNewRootRequiresRegistry(t *testing.T) {
	t.Parallel()
	doc := dom.NewDocument()
	_, err := parchment.NewRoot(parchment.Config{}, doc.Element("div"))
	require.Error(t, err)
}

func TestRootWithoutObservable(t *testing.T) {
	t.Parallel()
	doc := dom.NewDocument()
	reg, err := parchment.StandardRegistry(parchment.RegistryConfig{Factory: doc})
	require.NoError(t, err)
	host, err := doc.ParseFragmentString(`<p>ab</p>`)
	require.NoError(t, err)
	root, err := parchment.NewRoot(parchment.Config{Registry: reg}, host)
	require.NoError(t, err)

	require.NoError(t, root.InsertAt(1, "c", nil))
	p := doc.Element("p")
	host.AppendChild(p)
	require.NoError(t, root.Update([]parchment.ChangeRecord{{
		Kind:   parchment.ChangeChildList,
		Target: host,
		Added:  []parchment.HostNode{p},
	}}))
	assert.Equal(t, 2, root.ChildCount())
	require.NoError(t, parchment.Verify(root))
}
