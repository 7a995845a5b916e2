package reactive

import (
	"errors"
	"fmt"
)

var ErrRefType = errors.New("value does not match ref type")

// ValueRef is the shape shared by refs, computed refs and property refs.
type ValueRef[T any] interface {
	Value() T
	SetValue(v T)
}

// AnyRef is the untyped view of any ref. Reactive objects use it to unwrap ref
// properties on read and to forward writes into them.
type AnyRef interface {
	AnyValue() any
	SetAnyValue(v any)
}

func IsRef(v any) bool {
	_, ok := v.(AnyRef)
	return ok
}

// Ref is a single reactive cell with its own Dep.
type Ref[T any] struct {
	rs    *ReactiveSystem
	raw   T
	value T
	dep   Dep
}

// NewRef boxes v. When v is a map[string]any or []any and T can hold the
// reactive view, Value returns that view.
func NewRef[T any](rs *ReactiveSystem, v T) *Ref[T] {
	r := &Ref[T]{rs: rs}
	r.store(v)
	return r
}

func (r *Ref[T]) store(v T) {
	r.raw = v
	if w, ok := toReactive(r.rs, any(v)).(T); ok {
		r.value = w
	} else {
		r.value = v
	}
}

func (r *Ref[T]) Value() T {
	r.rs.trackDep(&r.dep)
	return r.value
}

// SetValue ignores values that are the same as the current one: NaN matches NaN,
// while 0 and -0 differ.
func (r *Ref[T]) SetValue(v T) {
	if sameValue(any(r.raw), any(v)) {
		return
	}
	r.store(v)
	r.rs.triggerDep(&r.dep)
}

// Raw returns the unwrapped value without tracking.
func (r *Ref[T]) Raw() T {
	return r.raw
}

// Dep exposes the ref's subscribers.
func (r *Ref[T]) Dep() *Dep {
	return &r.dep
}

func (r *Ref[T]) AnyValue() any {
	return r.Value()
}

// SetAnyValue panics with ErrRefType when v is not a T.
func (r *Ref[T]) SetAnyValue(v any) {
	if v == nil {
		var zero T
		r.SetValue(zero)
		return
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		panic(typeMismatch(v, zero))
	}
	r.SetValue(t)
}

func typeMismatch(got, want any) error {
	return fmt.Errorf("%w: got %T, want %T", ErrRefType, got, want)
}

// Keyed is a reactive container addressed by K, such as *Object or *Array.
type Keyed[K comparable] interface {
	Lookup(key K) (any, bool)
	Peek(key K) (any, bool)
	Set(key K, value any)
}

// PropertyRef forwards to one key of a container. It tracks nothing itself;
// the container does.
type PropertyRef[K comparable] struct {
	target       Keyed[K]
	key          K
	defaultValue any
}

func (p *PropertyRef[K]) Value() any {
	if v, ok := p.target.Lookup(p.key); ok {
		return v
	}
	return p.defaultValue
}

func (p *PropertyRef[K]) SetValue(v any) {
	p.target.Set(p.key, v)
}

func (p *PropertyRef[K]) AnyValue() any {
	return p.Value()
}

func (p *PropertyRef[K]) SetAnyValue(v any) {
	p.SetValue(v)
}

func (p *PropertyRef[K]) Key() K {
	return p.key
}

// ToValue calls v when it is a zero-argument function, then unwraps the result
// if it is a ref.
func ToValue(v any) any {
	if isFunction(v) {
		v = call(v)
	}
	if r, ok := v.(AnyRef); ok {
		return r.AnyValue()
	}
	return v
}

// ToRef calls v when it is a zero-argument function, then returns the result
// unchanged if it is a ref and boxes it in a new Ref otherwise.
func ToRef(rs *ReactiveSystem, v any) AnyRef {
	if isFunction(v) {
		v = call(v)
	}
	if r, ok := v.(AnyRef); ok {
		return r
	}
	return NewRef(rs, v)
}

// ToPropertyRef returns the ref already stored at key, or a PropertyRef bound to
// target and key. The optional default is returned while key is absent.
func ToPropertyRef[K comparable](target Keyed[K], key K, defaultValue ...any) AnyRef {
	if v, ok := target.Peek(key); ok {
		if r, isRef := v.(AnyRef); isRef {
			return r
		}
	}
	p := &PropertyRef[K]{target: target, key: key}
	if len(defaultValue) > 0 {
		p.defaultValue = defaultValue[0]
	}
	return p
}

// ToRefs returns one ref per own key of o. Nested values are not converted.
func ToRefs(o *Object) map[string]AnyRef {
	keys := o.Keys()
	refs := make(map[string]AnyRef, len(keys))
	for _, k := range keys {
		refs[k] = ToPropertyRef[string](o, k)
	}
	return refs
}

// ToArrayRefs is ToRefs for arrays.
func ToArrayRefs(a *Array) []AnyRef {
	keys := a.Keys()
	refs := make([]AnyRef, len(keys))
	for _, i := range keys {
		refs[i] = ToPropertyRef[int](a, i)
	}
	return refs
}
