package reactive

import (
	"sync"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"
)

// registry maps a target and one of its keys to a Dep. Targets are held
// strongly, but only while a Dep under them has subscribers: when the last
// subscriber of a Dep unlinks, the Dep leaves the registry, and the target with
// it once it has no Deps left.
//
// The Object and Array view caches hold views weakly. A view with subscribers
// stays reachable through the registry, so a live subscription always finds the
// same view. When a view is collected its cleanup queues the cache key; the
// queue is drained by the goroutine that owns the system on the next lookup.
type registry struct {
	logger *zap.Logger

	targets map[any]map[any]*Dep
	objects map[uintptr]weak.Pointer[Object]
	arrays  map[arrayKey]weak.Pointer[Array]

	mu        sync.Mutex
	pending   atomic.Bool
	reclaimed []any
}

type arrayKey struct {
	data uintptr
	len  int
}

func newRegistry(logger *zap.Logger) *registry {
	return &registry{
		logger:  logger,
		targets: map[any]map[any]*Dep{},
		objects: map[uintptr]weak.Pointer[Object]{},
		arrays:  map[arrayKey]weak.Pointer[Array]{},
	}
}

// reclaim runs on the runtime's cleanup goroutine.
func (r *registry) reclaim(key any) {
	r.mu.Lock()
	r.reclaimed = append(r.reclaimed, key)
	r.mu.Unlock()
	r.pending.Store(true)
}

func (r *registry) sweep() {
	if !r.pending.Load() {
		return
	}
	r.mu.Lock()
	keys := r.reclaimed
	r.reclaimed = nil
	r.pending.Store(false)
	r.mu.Unlock()

	for _, key := range keys {
		switch k := key.(type) {
		case uintptr:
			// the address may already belong to a newer map
			if wp, ok := r.objects[k]; ok && wp.Value() == nil {
				delete(r.objects, k)
			}
		case arrayKey:
			if wp, ok := r.arrays[k]; ok && wp.Value() == nil {
				delete(r.arrays, k)
			}
		}
	}
	if ce := r.logger.Check(zap.DebugLevel, "view cache swept"); ce != nil {
		ce.Write(zap.Int("reclaimed", len(keys)), zap.Int("objects", len(r.objects)), zap.Int("arrays", len(r.arrays)))
	}
}

func (r *registry) len() int {
	return len(r.targets)
}

func (r *registry) depFor(target, key any, create bool) *Dep {
	keys, ok := r.targets[target]
	if !ok {
		if !create {
			return nil
		}
		keys = map[any]*Dep{}
		r.targets[target] = keys
	}
	dep, ok := keys[key]
	if !ok && create {
		dep = &Dep{reg: r, target: target, key: key}
		keys[key] = dep
	}
	return dep
}

// release drops a Dep whose last subscriber unlinked.
func (r *registry) release(dep *Dep) {
	keys, ok := r.targets[dep.target]
	if !ok || keys[dep.key] != dep {
		return
	}
	delete(keys, dep.key)
	if len(keys) == 0 {
		delete(r.targets, dep.target)
	}
	if ce := r.logger.Check(zap.DebugLevel, "dep released"); ce != nil {
		ce.Write(zap.Any("key", dep.key), zap.Int("targets", len(r.targets)))
	}
}

// Track registers the active effect as interested in target's key. It does
// nothing when no effect is running or tracking is paused. Targets are compared
// by pointer, so all pointers to zero-size values share one identity. A target
// stays referenced while any effect is subscribed to one of its keys.
func Track[T any](rs *ReactiveSystem, target *T, key any) {
	if !rs.canTrack() {
		return
	}
	rs.trackDep(rs.registry.depFor(target, key, true))
}

// Trigger notifies every effect that tracked target's key, except the effect
// that is currently running. Keys nobody is subscribed to trigger nothing.
func Trigger[T any](rs *ReactiveSystem, target *T, key any) {
	dep := rs.registry.depFor(target, key, false)
	if dep == nil {
		return
	}
	rs.triggerDep(dep)
}

// DepOf returns the Dep for target's key, or nil when no effect is subscribed to
// it.
func DepOf[T any](rs *ReactiveSystem, target *T, key any) *Dep {
	return rs.registry.depFor(target, key, false)
}
