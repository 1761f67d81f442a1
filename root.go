package parchment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Config controls NewRoot.
type Config struct {
	// Registry classifies host nodes and keeps the identity table. Required.
	Registry *Registry

	// Observable supplies the change feed of the host tree. Without one,
	// host changes are only reconciled when passed to Update explicitly.
	Observable Observable

	// Childless names the kind placed into the root when it is left empty.
	Childless string

	// Logger defaults to the registry's logger.
	Logger *zap.Logger
}

// Root is the top of a model tree. It owns the subscription to the host
// tree's change feed, and brackets every model edit so that the host
// changes the edit makes are not observed and reconciled back.
type Root struct {
	Container
	feed      ChangeFeed
	suspended int
	dirty     bool
	log       *zap.Logger
}

// NewRoot mirrors host, importing its existing content, and starts
// observing it.
func NewRoot(cfg Config, host HostNode) (*Root, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("new root: no registry")
	}
	r := &Root{log: cfg.Logger}
	if r.log == nil {
		r.log = cfg.Registry.log
	}
	if err := r.Init(r, cfg.Registry, host); err != nil {
		cfg.Registry.unbindTree(r)
		return nil, fmt.Errorf("new root: %w", err)
	}
	r.def = &Definition{Name: RootKind, Childless: cfg.Childless}
	if cfg.Observable != nil {
		r.feed = cfg.Observable.NewObserver(func(records []ChangeRecord) error {
			return r.Update(records)
		})
		r.feed.Observe(host, observeAll)
	}
	return r, nil
}

// Dirty reports whether the model has been edited since the last
// reconciliation.
func (r *Root) Dirty() bool { return r.dirty }

func (r *Root) suspend() {
	if r.suspended == 0 && r.feed != nil {
		r.feed.Disconnect()
	}
	r.suspended++
}

func (r *Root) resume() {
	r.suspended--
	if r.suspended == 0 && r.feed != nil {
		r.feed.Observe(r.host, observeAll)
	}
}

// edit runs a model-initiated operation with the feed suspended, after
// reconciling whatever the host has reported so far, and normalizes the
// tree afterwards. Ranges are checked by f, against the reconciled length.
func (r *Root) edit(op string, fields []zap.Field, f func() error) error {
	if err := r.Update(nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.dirty = true
	r.suspend()
	defer r.resume()
	defer r.reg.release()
	r.log.Debug(op, fields...)
	if err := f(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.Optimize(); err != nil {
		return fmt.Errorf("%s: optimize: %w", op, err)
	}
	return nil
}

func (r *Root) checkRange(index, length int) error {
	if index < 0 || length < 0 || index+length > r.Length() {
		return preconditionf("range [%d, %d) outside length %d", index, index+length, r.Length())
	}
	return nil
}

// InsertAt inserts text, or an embed of kind value when def is set. An
// index at the end appends to the root itself.
func (r *Root) InsertAt(index int, value string, def interface{}) error {
	return r.edit("insert", []zap.Field{zap.Int("index", index), zap.String("value", value)}, func() error {
		if index < 0 || index > r.Length() {
			return preconditionf("insert at %d outside length %d", index, r.Length())
		}
		return r.Container.InsertAt(index, value, def)
	})
}

// DeleteAt deletes the range from the content. Deleting everything empties
// the root but never removes it.
func (r *Root) DeleteAt(index, length int) error {
	return r.edit("delete", []zap.Field{zap.Int("index", index), zap.Int("length", length)}, func() error {
		if err := r.checkRange(index, length); err != nil {
			return err
		}
		return r.deleteChildren(index, length)
	})
}

func (r *Root) FormatAt(index, length int, name string, value interface{}) error {
	return r.edit("format", []zap.Field{zap.Int("index", index), zap.Int("length", length), zap.String("name", name)}, func() error {
		if err := r.checkRange(index, length); err != nil {
			return err
		}
		return r.Container.FormatAt(index, length, name, value)
	})
}

// Format applies an attribute format to the root's own host node.
func (r *Root) Format(name string, value interface{}) error {
	if name == r.Kind() {
		return preconditionf("unformat the root")
	}
	return r.edit("format root", []zap.Field{zap.String("name", name)}, func() error {
		return r.Container.Format(name, value)
	})
}

// Update reconciles a batch of host change records. A nil batch means the
// records the feed has collected so far; those are reconciled in any case.
// Each record is dispatched alone to the blot bound to its target, or to
// the nearest bound ancestor of the target. Every record is dispatched even
// if some fail, and the failures are returned joined. Blots detached by the
// batch and not relinked by it are unbound at the end.
func (r *Root) Update(records []ChangeRecord) error {
	if r.feed != nil {
		records = append(records[:len(records):len(records)], r.feed.TakeRecords()...)
	}
	if len(records) == 0 {
		r.dirty = false
		return nil
	}
	r.suspend()
	defer r.resume()
	r.log.Debug("reconcile", zap.Int("records", len(records)))
	var errs []error
	for _, rec := range records {
		if err := r.dispatch(rec); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s of %s: %w", rec.Kind, rec.Target.Name(), err))
		}
	}
	r.reg.release()
	r.dirty = false
	return errors.Join(errs...)
}

// Reconcile applies one record addressed to the root's own host node. The
// blots it detaches are unbound by the next Update unless relinked.
func (r *Root) Reconcile(rec ChangeRecord) error {
	return r.Container.Update([]ChangeRecord{rec})
}

func (r *Root) dispatch(rec ChangeRecord) error {
	blot := r.reg.FindAncestor(rec.Target)
	switch blot {
	case nil:
		return nil
	case Blot(r):
		return r.Reconcile(rec)
	default:
		return blot.Update([]ChangeRecord{rec})
	}
}

// Optimize normalizes the content. An empty root is filled with its
// childless placeholder, if it has one, and is never removed.
func (r *Root) Optimize() error {
	if err := r.optimizeChildren(); err != nil {
		return err
	}
	if r.children.count == 0 {
		_, err := r.fillChildless()
		return err
	}
	return nil
}

func (r *Root) Split(index int, force bool) (Blot, error) {
	return nil, preconditionf("split the root")
}

// Close stops observing the host tree. Host changes made afterwards are
// not reconciled.
func (r *Root) Close() {
	if r.feed != nil {
		r.feed.Disconnect()
		r.feed = nil
	}
}

// Remove closes the root and forgets the whole model tree. The host tree is
// left in place.
func (r *Root) Remove() {
	r.Close()
	r.reg.unbindTree(r)
}

// Save stores a snapshot of the content and returns its link.
func (r *Root) Save(ctx context.Context, store Persist, cache NodeCache) (string, error) {
	if err := r.Update(nil); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	link, err := StoreSnapshot(ctx, Capture(r), store, cache)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	r.log.Debug("saved", zap.String("link", link))
	return link, nil
}

// Load replaces the content with the snapshot stored at link. The content
// is left alone if the snapshot cannot be mirrored.
func (r *Root) Load(ctx context.Context, store Persist, cache NodeCache, link string) error {
	snap, err := LoadSnapshot(ctx, store, cache, link)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	factory := r.reg.Factory()
	if factory == nil {
		return fmt.Errorf("load: registry has no host factory")
	}
	return r.edit("load", []zap.Field{zap.String("link", link)}, func() error {
		blots := make([]Blot, 0, len(snap.Children))
		for _, child := range snap.Children {
			blot, err := r.reg.CreateFromHost(child.Host(factory))
			if err != nil {
				for _, b := range blots {
					r.reg.unbindTree(b)
				}
				return err
			}
			blots = append(blots, blot)
		}
		for _, child := range r.children.slice() {
			child.Remove()
		}
		for _, blot := range blots {
			if err := r.AppendChild(blot); err != nil {
				return err
			}
		}
		return nil
	})
}
