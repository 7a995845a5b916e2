package reactive

import (
	"reflect"
	"runtime"
	"slices"
	"weak"
)

type iterateKey struct{}

// IterateKey is the key tracked by operations that depend on the set of keys of
// an Object or the length of an Array rather than on one entry.
var IterateKey any = iterateKey{}

// Object is the reactive view of a map. Reads track the key they touch and
// writes trigger it.
type Object struct {
	rs  *ReactiveSystem
	raw map[string]any
}

// Reactive returns the reactive view of raw. The same map always yields the
// same *Object while that view is reachable, which includes every time an
// effect is subscribed to one of its keys.
func Reactive(rs *ReactiveSystem, raw map[string]any) *Object {
	if raw == nil {
		return &Object{rs: rs, raw: map[string]any{}}
	}
	r := rs.registry
	r.sweep()
	key := reflect.ValueOf(raw).Pointer()
	if wp, ok := r.objects[key]; ok {
		if o := wp.Value(); o != nil {
			return o
		}
	}
	o := &Object{rs: rs, raw: raw}
	r.objects[key] = weak.Make(o)
	runtime.AddCleanup(o, r.reclaim, any(key))
	return o
}

func (o *Object) Raw() map[string]any {
	return o.raw
}

// Lookup tracks key and reports its value and whether it is present. Nested maps
// and slices come back wrapped, ref values come back unwrapped.
func (o *Object) Lookup(key string) (any, bool) {
	v, ok := o.raw[key]
	Track(o.rs, o, key)
	if !ok {
		return nil, false
	}
	if r, isRef := v.(AnyRef); isRef {
		return r.AnyValue(), true
	}
	return toReactive(o.rs, v), true
}

func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

func (o *Object) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Peek returns the stored value as is, without tracking.
func (o *Object) Peek(key string) (any, bool) {
	v, ok := o.raw[key]
	return v, ok
}

// Set stores value under key. When the current value is a ref and value is not,
// the write goes through the ref instead.
func (o *Object) Set(key string, value any) {
	old, had := o.raw[key]
	if r, isRef := old.(AnyRef); isRef {
		if _, newIsRef := value.(AnyRef); !newIsRef {
			r.SetAnyValue(value)
			return
		}
	}
	value = ToRaw(value)
	o.raw[key] = value
	switch {
	case !had:
		Trigger(o.rs, o, key)
		Trigger(o.rs, o, IterateKey)
	case !sameValue(old, value):
		Trigger(o.rs, o, key)
	}
}

func (o *Object) Delete(key string) {
	if _, ok := o.raw[key]; !ok {
		return
	}
	delete(o.raw, key)
	Trigger(o.rs, o, key)
	Trigger(o.rs, o, IterateKey)
}

// Keys returns the own keys in sorted order.
func (o *Object) Keys() []string {
	Track(o.rs, o, IterateKey)
	keys := make([]string, 0, len(o.raw))
	for k := range o.raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (o *Object) Len() int {
	Track(o.rs, o, IterateKey)
	return len(o.raw)
}

// Array is the reactive view of a slice. It has a fixed length.
type Array struct {
	rs  *ReactiveSystem
	raw []any
}

// ReactiveArray returns the reactive view of raw. Like Reactive, the same slice
// yields the same view while it is reachable; empty slices share a data pointer,
// so each call gets a fresh view.
func ReactiveArray(rs *ReactiveSystem, raw []any) *Array {
	if len(raw) == 0 {
		return &Array{rs: rs, raw: raw}
	}
	r := rs.registry
	r.sweep()
	key := arrayKey{data: reflect.ValueOf(raw).Pointer(), len: len(raw)}
	if wp, ok := r.arrays[key]; ok {
		if a := wp.Value(); a != nil {
			return a
		}
	}
	a := &Array{rs: rs, raw: raw}
	r.arrays[key] = weak.Make(a)
	runtime.AddCleanup(a, r.reclaim, any(key))
	return a
}

func (a *Array) Raw() []any {
	return a.raw
}

func (a *Array) Lookup(i int) (any, bool) {
	Track(a.rs, a, i)
	if i < 0 || i >= len(a.raw) {
		return nil, false
	}
	v := a.raw[i]
	if r, isRef := v.(AnyRef); isRef {
		return r.AnyValue(), true
	}
	return toReactive(a.rs, v), true
}

func (a *Array) Get(i int) any {
	v, _ := a.Lookup(i)
	return v
}

func (a *Array) Peek(i int) (any, bool) {
	if i < 0 || i >= len(a.raw) {
		return nil, false
	}
	return a.raw[i], true
}

// Set panics when i is out of range.
func (a *Array) Set(i int, value any) {
	old := a.raw[i]
	if r, isRef := old.(AnyRef); isRef {
		if _, newIsRef := value.(AnyRef); !newIsRef {
			r.SetAnyValue(value)
			return
		}
	}
	value = ToRaw(value)
	a.raw[i] = value
	if !sameValue(old, value) {
		Trigger(a.rs, a, i)
	}
}

func (a *Array) Len() int {
	Track(a.rs, a, IterateKey)
	return len(a.raw)
}

func (a *Array) Keys() []int {
	Track(a.rs, a, IterateKey)
	keys := make([]int, len(a.raw))
	for i := range keys {
		keys[i] = i
	}
	return keys
}

func IsReactive(v any) bool {
	switch v.(type) {
	case *Object, *Array:
		return true
	}
	return false
}

// ToRaw returns the map or slice behind a reactive view, or v itself.
func ToRaw(v any) any {
	switch x := v.(type) {
	case *Object:
		return x.raw
	case *Array:
		return x.raw
	}
	return v
}

func toReactive(rs *ReactiveSystem, v any) any {
	switch x := v.(type) {
	case map[string]any:
		return Reactive(rs, x)
	case []any:
		return ReactiveArray(rs, x)
	}
	return v
}
