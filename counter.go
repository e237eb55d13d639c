package autosurgeon

// Counter is a mergeable numeric value. A fresh Counter (NewCounter)
// reconciles by writing its absolute value. A Counter hydrated out of
// a document only writes the increments made since hydration, so
// concurrent increments from other peers add up instead of clobbering
// each other.
type Counter struct {
	original   int64
	increment  int64
	rehydrated bool
}

// NewCounter returns a fresh Counter starting at v.
func NewCounter(v int64) *Counter { return &Counter{original: v} }

// Value returns the counter's current value.
func (c *Counter) Value() int64 { return c.original + c.increment }

// Increment adds by to the counter.
func (c *Counter) Increment(by int64) {
	if c.rehydrated {
		c.increment += by
	} else {
		c.original += by
	}
}

func (c *Counter) ReconcileTo(r Reconciler) error {
	cr, err := r.Counter()
	if err != nil {
		return err
	}
	if !c.rehydrated {
		return cr.Set(c.original)
	}
	if c.increment == 0 {
		return nil
	}
	return cr.Increment(c.increment)
}

func (c *Counter) HydrateFrom(doc ReadDoc, obj ObjID, prop Prop) error {
	v, _, found, err := doc.Get(obj, prop)
	if err != nil {
		return err
	}
	if !found {
		return &UnexpectedError{Expected: "counter", Found: "nothing"}
	}
	if v.Kind != KindCounter {
		return unexpected("counter", v.Kind)
	}
	*c = Counter{original: v.Int, rehydrated: true}
	return nil
}
