package dom

import (
	"errors"

	"github.com/jrhy/parchment"
)

// Observer collects the change records of an observed subtree until they
// are delivered or taken.
type Observer struct {
	doc      *Document
	callback func([]parchment.ChangeRecord) error
	target   *Node
	options  parchment.ObserveOptions
	pending  []parchment.ChangeRecord
}

func (d *Document) NewObserver(callback func([]parchment.ChangeRecord) error) parchment.ChangeFeed {
	return d.Observer(callback)
}

// Observer creates an inactive observer.
func (d *Document) Observer(callback func([]parchment.ChangeRecord) error) *Observer {
	o := &Observer{doc: d, callback: callback}
	d.observers = append(d.observers, o)
	return o
}

// Observe starts observing target, replacing any previous target. Pending
// records are kept.
func (o *Observer) Observe(target parchment.HostNode, options parchment.ObserveOptions) {
	o.target = target.(*Node)
	o.options = options
}

func (o *Observer) Disconnect() {
	o.target = nil
	o.pending = nil
}

func (o *Observer) TakeRecords() []parchment.ChangeRecord {
	res := o.pending
	o.pending = nil
	return res
}

// Pending returns the number of undelivered records.
func (o *Observer) Pending() int { return len(o.pending) }

func (o *Observer) wants(rec parchment.ChangeRecord) bool {
	if o.target == nil {
		return false
	}
	switch rec.Kind {
	case parchment.ChangeChildList:
		if !o.options.ChildList {
			return false
		}
	case parchment.ChangeAttributes:
		if !o.options.Attributes {
			return false
		}
	case parchment.ChangeCharacterData:
		if !o.options.CharacterData {
			return false
		}
	}
	t := rec.Target.(*Node).n
	if t == o.target.n {
		return true
	}
	if !o.options.Subtree {
		return false
	}
	for a := t.Parent; a != nil; a = a.Parent {
		if a == o.target.n {
			return true
		}
	}
	return false
}

func (d *Document) record(rec parchment.ChangeRecord) {
	for _, o := range d.observers {
		if o.wants(rec) {
			o.pending = append(o.pending, rec)
		}
	}
}

// Deliver hands each observer its pending records, the way a browser does
// between tasks, and returns the callbacks' errors joined.
func (d *Document) Deliver() error {
	var errs []error
	for _, o := range d.observers {
		if len(o.pending) == 0 || o.callback == nil {
			continue
		}
		if err := o.callback(o.TakeRecords()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release forgets an observer so that it no longer costs anything on
// mutation.
func (d *Document) Release(o *Observer) {
	o.Disconnect()
	for i, cur := range d.observers {
		if cur == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}
