package parchment

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/minio/blake2b-simd"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Persist stores the encoded nodes of snapshots.
type Persist interface {
	// Store makes the given bytes accessible by the given name. The given string identity corresponds to the content which is immutable (never modified).
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// storeConcurrency bounds the node stores in flight during StoreSnapshot.
const storeConcurrency = 40

// Snapshot is a detached copy of a blot subtree: what the model knew about
// each host node, independent of any registry.
type Snapshot struct {
	Kind     string
	Name     string
	Text     string            `json:",omitempty"`
	Attrs    map[string]string `json:",omitempty"`
	Children []*Snapshot       `json:",omitempty"`
}

// Capture copies the model subtree rooted at b.
func Capture(b Blot) *Snapshot {
	host := b.Host()
	s := &Snapshot{
		Kind: b.Kind(),
		Name: host.Name(),
	}
	if s.Name == textHostName {
		s.Text = host.Text()
	}
	if attrs := host.Attributes(); len(attrs) > 0 {
		s.Attrs = attrs
	}
	if p, ok := b.(Parent); ok {
		for _, child := range p.Children() {
			s.Children = append(s.Children, Capture(child))
		}
	}
	return s
}

// Host creates a detached host subtree from the snapshot.
func (s *Snapshot) Host(f HostFactory) HostNode {
	if s.Name == textHostName {
		return f.CreateText(s.Text)
	}
	h := f.CreateElement(s.Name)
	for k, v := range s.Attrs {
		h.SetAttribute(k, v)
	}
	for _, child := range s.Children {
		h.AppendChild(child.Host(f))
	}
	return h
}

// StoreSnapshot persists every node of the snapshot and returns the link of
// its top node. Each node is stored under the hash of its encoding, which
// includes the links of its children, so unchanged subtrees of successive
// snapshots share storage; nodes the cache has seen are not stored again.
func StoreSnapshot(ctx context.Context, snap *Snapshot, persist Persist, cache NodeCache) (string, error) {
	if persist == nil {
		return "", fmt.Errorf("store snapshot: no persistence mechanism set")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(storeConcurrency)
	link, err := snap.store(gctx, g, persist, cache)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return link, nil
}

func (s *Snapshot) store(ctx context.Context, g *errgroup.Group, persist Persist, cache NodeCache) (string, error) {
	links := make([]string, len(s.Children))
	for i, child := range s.Children {
		link, err := child.store(ctx, g, persist, cache)
		if err != nil {
			return "", err
		}
		links[i] = link
	}
	encoded, err := s.encode(links)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", s.Name, err)
	}
	link := linkOf(encoded)
	if cache != nil && cache.Contains(link) {
		return link, nil
	}
	g.Go(func() error {
		if err := persist.Store(ctx, link, encoded); err != nil {
			return fmt.Errorf("persist store %s: %w", link, err)
		}
		if cache != nil {
			cache.Add(link, s)
		}
		return nil
	})
	return link, nil
}

func linkOf(encoded []byte) string {
	hashBytes := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

func (s *Snapshot) encode(links []string) ([]byte, error) {
	fields := map[string]interface{}{
		"kind": s.Kind,
		"name": s.Name,
	}
	if s.Text != "" {
		fields["text"] = s.Text
	}
	if len(s.Attrs) > 0 {
		attrs := make(map[string]interface{}, len(s.Attrs))
		for k, v := range s.Attrs {
			attrs[k] = v
		}
		fields["attrs"] = attrs
	}
	if len(links) > 0 {
		list := make([]interface{}, len(links))
		for i, l := range links {
			list[i] = l
		}
		fields["links"] = list
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(st)
}

// LoadSnapshot loads the snapshot whose top node is stored at link. Loaded
// snapshots may be shared through the cache and must not be modified.
func LoadSnapshot(ctx context.Context, persist Persist, cache NodeCache, link string) (*Snapshot, error) {
	if cache != nil {
		if cached, ok := cache.Get(link); ok {
			return cached.(*Snapshot), nil
		}
	}
	encoded, err := persist.Load(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", link, err)
	}
	if linkOf(encoded) != link {
		return nil, fmt.Errorf("load %s: content does not match its link", link)
	}
	var st structpb.Struct
	if err = proto.Unmarshal(encoded, &st); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", link, err)
	}
	fields := st.GetFields()
	s := &Snapshot{
		Kind: fields["kind"].GetStringValue(),
		Name: fields["name"].GetStringValue(),
		Text: fields["text"].GetStringValue(),
	}
	if s.Name == "" {
		return nil, fmt.Errorf("load %s: node has no name", link)
	}
	if attrs := fields["attrs"].GetStructValue().GetFields(); len(attrs) > 0 {
		s.Attrs = make(map[string]string, len(attrs))
		for k, v := range attrs {
			s.Attrs[k] = v.GetStringValue()
		}
	}
	for _, l := range fields["links"].GetListValue().GetValues() {
		child, err := LoadSnapshot(ctx, persist, cache, l.GetStringValue())
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, child)
	}
	if cache != nil {
		cache.Add(link, s)
	}
	return s, nil
}
