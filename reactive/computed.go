package reactive

// ComputedRef caches the result of a derivation and recomputes it lazily, on
// the first read after one of its sources changed.
type ComputedRef[T any] struct {
	rs     *ReactiveSystem
	effect *ReactiveEffect
	getter func() T
	setter func(T)
	value  T
	dirty  bool
	dep    Dep
}

func Computed[T any](rs *ReactiveSystem, getter func() T) *ComputedRef[T] {
	return WritableComputed(rs, getter, nil)
}

// WritableComputed is Computed with a setter. SetValue only calls setter; the
// cached value changes when the sources it writes to trigger a recompute.
func WritableComputed[T any](rs *ReactiveSystem, getter func() T, setter func(T)) *ComputedRef[T] {
	if setter == nil {
		setter = func(T) {}
	}
	c := &ComputedRef[T]{
		rs:     rs,
		getter: getter,
		setter: setter,
		dirty:  true,
	}
	c.effect = NewEffect(rs, c.compute, WithScheduler(c.invalidate))
	return c
}

func (c *ComputedRef[T]) compute() error {
	c.value = c.getter()
	return nil
}

// invalidate only propagates on the clean to dirty transition, so any number of
// source writes between two reads notify readers once.
func (c *ComputedRef[T]) invalidate() {
	if c.dirty {
		return
	}
	c.dirty = true
	c.rs.triggerDep(&c.dep)
}

func (c *ComputedRef[T]) Value() T {
	c.rs.trackDep(&c.dep)
	if c.dirty {
		c.refresh()
	}
	return c.value
}

// refresh leaves the computed dirty, with its previous value, when the getter
// panics.
func (c *ComputedRef[T]) refresh() {
	c.dirty = false
	ok := false
	defer func() {
		if !ok {
			c.dirty = true
		}
	}()
	// compute never returns an error
	_ = c.effect.Run()
	ok = true
}

func (c *ComputedRef[T]) SetValue(v T) {
	c.setter(v)
}

func (c *ComputedRef[T]) Dirty() bool {
	return c.dirty
}

func (c *ComputedRef[T]) Dep() *Dep {
	return &c.dep
}

// Effect returns the effect that runs the getter.
func (c *ComputedRef[T]) Effect() *ReactiveEffect {
	return c.effect
}

// Stop detaches the computed from its sources. Later reads return the last
// value, or run the getter untracked if it is still dirty.
func (c *ComputedRef[T]) Stop() {
	c.effect.Stop()
}

func (c *ComputedRef[T]) AnyValue() any {
	return c.Value()
}

func (c *ComputedRef[T]) SetAnyValue(v any) {
	if t, ok := v.(T); ok {
		c.SetValue(t)
		return
	}
	var zero T
	if v == nil {
		c.SetValue(zero)
		return
	}
	panic(typeMismatch(v, zero))
}
