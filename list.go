package parchment

// childList is the ordered collection of a container's children, linked
// through the children's own sibling pointers. It caches both the child
// count and the summed content length of the children.
type childList struct {
	head  Blot
	tail  Blot
	count int
	size  int
}

type span struct {
	child  Blot
	offset int
	length int
}

// insertBefore links b in front of ref, or at the end if ref is nil. b must
// not be linked into any list.
func (l *childList) insertBefore(b, ref Blot) {
	s := b.shadow()
	if s.prev != nil || s.next != nil || l.head == b {
		panic("bug! inserting a blot that is still linked")
	}
	if ref == nil {
		s.prev = l.tail
		if l.tail != nil {
			l.tail.shadow().next = b
		} else {
			l.head = b
		}
		l.tail = b
	} else {
		rs := ref.shadow()
		s.next = ref
		s.prev = rs.prev
		if rs.prev != nil {
			rs.prev.shadow().next = b
		} else {
			l.head = b
		}
		rs.prev = b
	}
	l.count++
	l.size += b.Length()
}

func (l *childList) remove(b Blot) {
	s := b.shadow()
	if s.prev != nil {
		s.prev.shadow().next = s.next
	} else {
		l.head = s.next
	}
	if s.next != nil {
		s.next.shadow().prev = s.prev
	} else {
		l.tail = s.prev
	}
	s.prev = nil
	s.next = nil
	l.count--
	l.size -= b.Length()
}

func (l *childList) contains(b Blot) bool {
	for cur := l.head; cur != nil; cur = cur.Next() {
		if cur == b {
			return true
		}
	}
	return false
}

// offset returns the flattened index at which b starts, or -1.
func (l *childList) offset(b Blot) int {
	index := 0
	for cur := l.head; cur != nil; cur = cur.Next() {
		if cur == b {
			return index
		}
		index += cur.Length()
	}
	return -1
}

// find returns the child whose span contains index and the offset into it.
// An index on a boundary resolves to the following child, unless inclusive
// is set, in which case it resolves to the preceding one (skipping over a
// following zero-length child). A nil child means index is past the end.
func (l *childList) find(index int, inclusive bool) (Blot, int) {
	for cur := l.head; cur != nil; cur = cur.Next() {
		length := cur.Length()
		if index < length {
			return cur, index
		}
		if inclusive && index == length {
			next := cur.Next()
			if next == nil || next.Length() != 0 {
				return cur, index
			}
		}
		index -= length
	}
	return nil, 0
}

// spans lists the children overlapping [index, index+length), each clipped
// to the window. It is computed up front so that callers may restructure
// the list while visiting.
func (l *childList) spans(index, length int) []span {
	if length <= 0 {
		return nil
	}
	start, offset := l.find(index, false)
	if start == nil {
		return nil
	}
	end := index + length
	if length > l.size-index {
		end = l.size
	}
	var res []span
	curIndex := index - offset
	for cur := start; cur != nil && curIndex < end; cur = cur.Next() {
		curLength := cur.Length()
		if index > curIndex {
			res = append(res, span{cur, index - curIndex, min(end-index, curIndex+curLength-index)})
		} else {
			res = append(res, span{cur, 0, min(curLength, end-curIndex)})
		}
		curIndex += curLength
	}
	return res
}

func (l *childList) forEachAt(index, length int, f func(child Blot, offset, length int) error) error {
	for _, s := range l.spans(index, length) {
		if err := f(s.child, s.offset, s.length); err != nil {
			return err
		}
	}
	return nil
}

func (l *childList) forEach(f func(Blot) error) error {
	for _, child := range l.slice() {
		if err := f(child); err != nil {
			return err
		}
	}
	return nil
}

func (l *childList) slice() []Blot {
	res := make([]Blot, 0, l.count)
	for cur := l.head; cur != nil; cur = cur.Next() {
		res = append(res, cur)
	}
	return res
}

func reduce[T any](l *childList, memo T, f func(T, Blot) T) T {
	for cur := l.head; cur != nil; cur = cur.Next() {
		memo = f(memo, cur)
	}
	return memo
}
