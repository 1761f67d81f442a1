package parchment

// HostNode is a node of the externally-owned tree that a model tree mirrors.
// Implementations must be comparable (usually pointers), since host nodes
// key the identity table.
type HostNode interface {
	// Name is the element tag, or "#text" for text nodes.
	Name() string
	Parent() HostNode
	FirstChild() HostNode
	NextSibling() HostNode
	PrevSibling() HostNode
	// AppendChild and InsertBefore move child out of its current parent
	// first, if it has one. A nil ref appends.
	AppendChild(child HostNode)
	InsertBefore(child, ref HostNode)
	RemoveChild(child HostNode)
	// CloneNode copies the node and its attributes, and its descendants if
	// deep is set. The clone is detached.
	CloneNode(deep bool) HostNode
	// ComparePosition returns -1 if the receiver precedes other in document
	// order, 1 if it follows, and 0 if they are the same node.
	ComparePosition(other HostNode) int
	Text() string
	SetText(string)
	Attribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	Attributes() map[string]string
}

// HostFactory creates detached host nodes.
type HostFactory interface {
	CreateElement(tag string) HostNode
	CreateText(data string) HostNode
}

// ChangeKind classifies a ChangeRecord.
type ChangeKind int

const (
	// ChangeAttributes reports an attribute set or removed on Target.
	ChangeAttributes ChangeKind = iota + 1

	// ChangeCharacterData reports new text content of Target.
	ChangeCharacterData

	// ChangeChildList reports children Added to or Removed from Target.
	ChangeChildList
)

// String returns a human-readable name of the change class.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAttributes:
		return "attributes"
	case ChangeCharacterData:
		return "characterData"
	case ChangeChildList:
		return "childList"
	default:
		return "unknown"
	}
}

// ChangeRecord describes one mutation of the host tree.
type ChangeRecord struct {
	Kind    ChangeKind
	Target  HostNode
	Added   []HostNode
	Removed []HostNode
	// AttributeName is set for ChangeAttributes.
	AttributeName string
	// OldValue is the previous attribute value or text, when known.
	OldValue string
}

// ObserveOptions selects which change classes a ChangeFeed reports.
type ObserveOptions struct {
	ChildList     bool
	Attributes    bool
	CharacterData bool
	// Subtree extends observation to all descendants of the target.
	Subtree bool
}

// ChangeFeed is a subscription to host tree changes.
type ChangeFeed interface {
	// Observe starts (or restarts) reporting changes under target.
	Observe(target HostNode, options ObserveOptions)
	// Disconnect stops reporting and discards undelivered records.
	Disconnect()
	// TakeRecords returns and clears the undelivered records.
	TakeRecords() []ChangeRecord
}

// Observable is a host tree that can notify about its changes. The callback
// is invoked with batches of records between synchronous operations, never
// concurrently with them.
type Observable interface {
	NewObserver(callback func([]ChangeRecord) error) ChangeFeed
}

var observeAll = ObserveOptions{
	ChildList:     true,
	Attributes:    true,
	CharacterData: true,
	Subtree:       true,
}
