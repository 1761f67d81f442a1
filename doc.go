/*
Package parchment maintains a model tree of blots that mirrors a host
tree owned by someone else, like an HTML DOM, and keeps the two in sync
in both directions.  Edits issued against the model (insert, delete,
format, split) are applied to the host tree, and changes made directly
to the host tree are reconciled back into the model from the host's
change feed, keeping the identity and order of every node.

Uses

- Rich-text editing on top of a document the editor doesn't own

- Addressing a tree's content by flattened index rather than by path

- Content-addressed snapshots of a mirrored document

Blots

Every blot is bound to exactly one host node; the Registry keeps that
identity table and knows, from Definitions, how to classify host nodes
and construct blots for them.  Leaves embed Shadow, containers embed
Container.  Lengths are in content units: a rune of text, an image, or
nothing for a line break.  A container's length is the sum of its
children's, and every index-addressed operation finds the children it
affects and delegates to them with translated indexes.

Synchronization

A Root owns the subscription to the host's change feed.  Model edits
made through the Root are bracketed: change records collected so far
are reconciled first, then the feed is suspended while the edit is
applied and the tree is optimized, so the edit's own host changes are
never observed.  Host changes are reconciled by Update, either when the
feed delivers them or when Update(nil) drains them.  Reconciliation
does not depend on the order of records within a batch: a node removed
from one container and added to another ends up bound once, under its
new parent.

Snapshots

Capture copies a model subtree, and StoreSnapshot persists it as a
Merkle tree of encoded nodes in any Persist, like the included
in-memory, file and S3 stores.  Unchanged subtrees of successive
snapshots are stored once.

The dom package provides a host tree built on golang.org/x/net/html.
*/
package parchment
