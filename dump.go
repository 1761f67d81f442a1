package parchment

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dump writes the model subtree rooted at b, one blot per line.
func Dump(w io.Writer, b Blot) error {
	return dump(w, b, "")
}

func dump(w io.Writer, b Blot, indent string) error {
	label := b.Kind()
	if label == "" {
		label = b.Host().Name()
	}
	line := fmt.Sprintf("%s%s len=%d", indent, label, b.Length())
	switch v := b.(type) {
	case *Text:
		line += fmt.Sprintf(" %q", v.Value())
	case *Image:
		line += fmt.Sprintf(" src=%q", v.Value())
	}
	p, ok := b.(Parent)
	if !ok || p.ChildCount() == 0 {
		_, err := fmt.Fprintln(w, line)
		return err
	}
	if _, err := fmt.Fprintln(w, line+" {"); err != nil {
		return err
	}
	for _, child := range p.Children() {
		if err := dump(w, child, indent+"   "); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, indent+"}")
	return err
}

// Verify checks that the model subtree rooted at b mirrors its host
// subtree: at every level the children's host nodes are exactly the host
// children that the registry recognizes, in order, each bound to its blot,
// and every cached length is the sum of the children's lengths. For a
// root it also checks that the registry binds no host node outside the
// tree.
func Verify(b Blot) error {
	errs := verify(b, nil)
	if r, ok := b.(*Root); ok {
		if blots, bound := countBlots(r), r.reg.Bound(); blots != bound {
			errs = append(errs, fmt.Errorf("%d host nodes bound, %d blots in the tree", bound, blots))
		}
	}
	return errors.Join(errs...)
}

func countBlots(b Blot) int {
	n := 1
	if p, ok := b.(Parent); ok {
		n = reduce(&p.container().children, n, func(n int, child Blot) int {
			return n + countBlots(child)
		})
	}
	return n
}

func verify(b Blot, errs []error) []error {
	s := b.shadow()
	if s.reg.Find(s.host) != b {
		errs = append(errs, fmt.Errorf("%s: host node not bound to its blot", describe(b)))
	}
	p, ok := b.(Parent)
	if !ok {
		return errs
	}
	c := p.container()

	var want []HostNode
	for h := s.host.FirstChild(); h != nil; h = h.NextSibling() {
		if s.reg.Classify(h) != nil {
			want = append(want, h)
		}
	}
	var got []HostNode
	size, count := 0, 0
	var prev Blot
	for cur := c.children.head; cur != nil; cur = cur.Next() {
		got = append(got, cur.Host())
		size += cur.Length()
		count++
		if cur.Parent() != p {
			errs = append(errs, fmt.Errorf("%s: child %s has another parent", describe(b), describe(cur)))
		}
		if cur.Prev() != prev {
			errs = append(errs, fmt.Errorf("%s: child %s has a broken prev link", describe(b), describe(cur)))
		}
		prev = cur
	}
	if prev != c.children.tail {
		errs = append(errs, fmt.Errorf("%s: tail is not the last child", describe(b)))
	}
	if size != c.children.size || count != c.children.count {
		errs = append(errs, fmt.Errorf("%s: cached length %d and count %d, children sum to %d and %d",
			describe(b), c.children.size, c.children.count, size, count))
	}
	if !sameHosts(got, want) {
		errs = append(errs, fmt.Errorf("%s: model children [%s], host children [%s]",
			describe(b), hostNames(got), hostNames(want)))
	}
	for cur := c.children.head; cur != nil; cur = cur.Next() {
		errs = verify(cur, errs)
	}
	return errs
}

func sameHosts(a, b []HostNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hostNames(hosts []HostNode) string {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name()
	}
	return strings.Join(names, " ")
}

func describe(b Blot) string {
	if k := b.Kind(); k != "" {
		return fmt.Sprintf("%s@%s", k, b.Host().Name())
	}
	return b.Host().Name()
}
