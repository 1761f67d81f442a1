// Package dom is a host tree for parchment built on golang.org/x/net/html
// nodes, with a change feed in the manner of a browser's MutationObserver.
//
// Mutations must go through the Node wrappers to be observed. A Node
// belongs to the Document that created it and must not be inserted into
// another Document's tree.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jrhy/parchment"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns the canonical wrappers of its HTML nodes and their
// observers. Wrappers are kept until Discard, including those of removed
// nodes, so that a Node stays the identity of its HTML node.
type Document struct {
	nodes     map[*html.Node]*Node
	observers []*Observer
	seq       int
}

// Node wraps an *html.Node. There is exactly one Node per *html.Node in a
// Document, so Nodes can be compared and used as map keys.
type Node struct {
	doc *Document
	n   *html.Node
	seq int
}

var (
	_ parchment.HostNode    = (*Node)(nil)
	_ parchment.HostFactory = (*Document)(nil)
	_ parchment.Observable  = (*Document)(nil)
)

func NewDocument() *Document {
	return &Document{nodes: map[*html.Node]*Node{}}
}

// Wrap returns the canonical Node of n.
func (d *Document) Wrap(n *html.Node) *Node {
	if w, ok := d.nodes[n]; ok {
		return w
	}
	d.seq++
	w := &Node{doc: d, n: n, seq: d.seq}
	d.nodes[n] = w
	return w
}

// Discard forgets the wrappers of the detached subtree rooted at n. Neither
// n nor its descendants may be used afterwards; wrapping their HTML nodes
// again yields new Nodes.
func (d *Document) Discard(n *Node) {
	if n.n.Parent != nil {
		panic(fmt.Sprintf("bug! discard %s while it is attached", n))
	}
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		delete(d.nodes, h)
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
}

// host avoids handing out a typed nil inside a HostNode.
func (d *Document) host(n *html.Node) parchment.HostNode {
	if n == nil {
		return nil
	}
	return d.Wrap(n)
}

func (d *Document) CreateElement(tag string) parchment.HostNode {
	return d.Element(tag)
}

// Element creates a detached element.
func (d *Document) Element(tag string) *Node {
	tag = strings.ToLower(tag)
	return d.Wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (d *Document) CreateText(data string) parchment.HostNode {
	return d.TextNode(data)
}

// TextNode creates a detached text node.
func (d *Document) TextNode(data string) *Node {
	return d.Wrap(&html.Node{Type: html.TextNode, Data: data})
}

// ParseFragment parses HTML into the children of a new detached div.
func (d *Document) ParseFragment(r io.Reader) (*Node, error) {
	div := d.Element("div")
	nodes, err := html.ParseFragment(r, div.n)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		div.n.AppendChild(n)
	}
	return div, nil
}

// ParseFragmentString is ParseFragment of a string.
func (d *Document) ParseFragmentString(s string) (*Node, error) {
	return d.ParseFragment(strings.NewReader(s))
}

// Render writes the HTML of n and its descendants.
func Render(w io.Writer, n *Node) error {
	return html.Render(w, n.n)
}

// InnerHTML returns the HTML of the children of n.
func InnerHTML(n *Node) string {
	var buf bytes.Buffer
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			panic(fmt.Sprintf("bug! render to a buffer: %v", err))
		}
	}
	return buf.String()
}

// HTML returns the wrapped node. Changes made to it directly are not
// observed.
func (n *Node) HTML() *html.Node { return n.n }

func (n *Node) Name() string {
	switch n.n.Type {
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	case html.DoctypeNode:
		return "#doctype"
	default:
		return n.n.Data
	}
}

func (n *Node) Parent() parchment.HostNode      { return n.doc.host(n.n.Parent) }
func (n *Node) FirstChild() parchment.HostNode  { return n.doc.host(n.n.FirstChild) }
func (n *Node) NextSibling() parchment.HostNode { return n.doc.host(n.n.NextSibling) }
func (n *Node) PrevSibling() parchment.HostNode { return n.doc.host(n.n.PrevSibling) }

// Children returns the child Nodes in order.
func (n *Node) Children() []*Node {
	var res []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		res = append(res, n.doc.Wrap(c))
	}
	return res
}

func (n *Node) own(h parchment.HostNode) *Node {
	o, ok := h.(*Node)
	if !ok || o.doc != n.doc {
		panic(fmt.Sprintf("bug! %s is not a node of this document", h.Name()))
	}
	return o
}

func (n *Node) AppendChild(child parchment.HostNode) {
	n.InsertBefore(child, nil)
}

// InsertBefore moves child before ref, recording its removal from its
// previous parent first.
func (n *Node) InsertBefore(child, ref parchment.HostNode) {
	c := n.own(child)
	var r *html.Node
	if ref != nil {
		r = n.own(ref).n
		if r.Parent != n.n {
			panic(fmt.Sprintf("bug! insert before a %s that is not a child", ref.Name()))
		}
	}
	if c.n == r {
		return
	}
	for a := n.n; a != nil; a = a.Parent {
		if a == c.n {
			panic("bug! insert a node into its own subtree")
		}
	}
	if old := c.n.Parent; old != nil {
		old.RemoveChild(c.n)
		n.doc.record(parchment.ChangeRecord{
			Kind:    parchment.ChangeChildList,
			Target:  n.doc.Wrap(old),
			Removed: []parchment.HostNode{c},
		})
	}
	n.n.InsertBefore(c.n, r)
	n.doc.record(parchment.ChangeRecord{
		Kind:   parchment.ChangeChildList,
		Target: n,
		Added:  []parchment.HostNode{c},
	})
}

func (n *Node) RemoveChild(child parchment.HostNode) {
	c := n.own(child)
	if c.n.Parent != n.n {
		panic(fmt.Sprintf("bug! remove a %s that is not a child", child.Name()))
	}
	n.n.RemoveChild(c.n)
	n.doc.record(parchment.ChangeRecord{
		Kind:    parchment.ChangeChildList,
		Target:  n,
		Removed: []parchment.HostNode{c},
	})
}

// Remove detaches n from its parent, if it has one.
func (n *Node) Remove() {
	if n.n.Parent != nil {
		n.doc.Wrap(n.n.Parent).RemoveChild(n)
	}
}

func (n *Node) CloneNode(deep bool) parchment.HostNode {
	return n.doc.Wrap(cloneHTML(n.n, deep))
}

func cloneHTML(n *html.Node, deep bool) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if deep {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.AppendChild(cloneHTML(child, true))
		}
	}
	return c
}

// path returns the root of n's tree and the child indexes leading to n.
func (n *Node) path() (*html.Node, []int) {
	var rev []int
	cur := n.n
	for cur.Parent != nil {
		i := 0
		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		rev = append(rev, i)
		cur = cur.Parent
	}
	res := make([]int, len(rev))
	for i := range rev {
		res[i] = rev[len(rev)-1-i]
	}
	return cur, res
}

// ComparePosition orders nodes of the same tree in document order, where
// an ancestor precedes its descendants. Nodes of different trees are
// ordered by the creation of their tree roots.
func (n *Node) ComparePosition(other parchment.HostNode) int {
	o := n.own(other)
	if o == n {
		return 0
	}
	nRoot, nPath := n.path()
	oRoot, oPath := o.path()
	if nRoot != oRoot {
		return compareInts(n.doc.Wrap(nRoot).seq, n.doc.Wrap(oRoot).seq)
	}
	for i := 0; i < len(nPath) && i < len(oPath); i++ {
		if c := compareInts(nPath[i], oPath[i]); c != 0 {
			return c
		}
	}
	return compareInts(len(nPath), len(oPath))
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Text returns the data of a text node, or the concatenated text of an
// element's descendants.
func (n *Node) Text() string {
	if n.n.Type == html.TextNode {
		return n.n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(n.n)
	return sb.String()
}

// SetText sets the data of a text node. On an element it replaces the
// children with a single text node.
func (n *Node) SetText(s string) {
	if n.n.Type != html.TextNode {
		for _, c := range n.Children() {
			n.RemoveChild(c)
		}
		if s != "" {
			n.AppendChild(n.doc.TextNode(s))
		}
		return
	}
	old := n.n.Data
	if old == s {
		return
	}
	n.n.Data = s
	n.doc.record(parchment.ChangeRecord{
		Kind:     parchment.ChangeCharacterData,
		Target:   n,
		OldValue: old,
	})
}

func (n *Node) Attribute(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) SetAttribute(name, value string) {
	if n.n.Type != html.ElementNode {
		return
	}
	old, had := n.Attribute(name)
	if had && old == value {
		return
	}
	if had {
		for i := range n.n.Attr {
			if n.n.Attr[i].Namespace == "" && n.n.Attr[i].Key == name {
				n.n.Attr[i].Val = value
			}
		}
	} else {
		n.n.Attr = append(n.n.Attr, html.Attribute{Key: name, Val: value})
	}
	n.doc.record(parchment.ChangeRecord{
		Kind:          parchment.ChangeAttributes,
		Target:        n,
		AttributeName: name,
		OldValue:      old,
	})
}

func (n *Node) RemoveAttribute(name string) {
	old, had := n.Attribute(name)
	if !had {
		return
	}
	attrs := n.n.Attr[:0]
	for _, a := range n.n.Attr {
		if a.Namespace != "" || a.Key != name {
			attrs = append(attrs, a)
		}
	}
	n.n.Attr = attrs
	n.doc.record(parchment.ChangeRecord{
		Kind:          parchment.ChangeAttributes,
		Target:        n,
		AttributeName: name,
		OldValue:      old,
	})
}

func (n *Node) Attributes() map[string]string {
	res := map[string]string{}
	for _, a := range n.n.Attr {
		if a.Namespace == "" {
			res[a.Key] = a.Val
		}
	}
	return res
}

func (n *Node) String() string {
	if n.n.Type == html.TextNode {
		return fmt.Sprintf("#text %q", n.n.Data)
	}
	return "<" + n.Name() + ">"
}
