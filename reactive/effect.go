package reactive

import (
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

type ErrFn func() error

// ReactiveEffect is a re-runnable computation. While it runs, every tracked
// read registers it on the read slot's Dep; writes to that slot re-run it, or call
// its scheduler when one is set.
type ReactiveEffect struct {
	rs        *ReactiveSystem
	id        uint64
	fn        ErrFn
	scheduler func()
	onStop    func()
	active    bool

	// parent is the effect that was active when this one started running.
	parent *ReactiveEffect

	deps  mapset.Set[*Dep]
	links []*link
}

type effectConfig struct {
	scheduler func()
	onStop    func()
	lazy      bool
}

type EffectOption func(*effectConfig)

// WithScheduler makes a trigger call fn instead of re-running the effect.
func WithScheduler(fn func()) EffectOption {
	return func(c *effectConfig) {
		c.scheduler = fn
	}
}

// WithOnStop registers a hook called once when the effect is stopped.
func WithOnStop(fn func()) EffectOption {
	return func(c *effectConfig) {
		c.onStop = fn
	}
}

// Lazy skips the initial run of Effect.
func Lazy() EffectOption {
	return func(c *effectConfig) {
		c.lazy = true
	}
}

func newEffectConfig(opts []EffectOption) effectConfig {
	var cfg effectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewEffect creates an effect without running it.
func NewEffect(rs *ReactiveSystem, fn ErrFn, opts ...EffectOption) *ReactiveEffect {
	cfg := newEffectConfig(opts)
	return &ReactiveEffect{
		rs:        rs,
		id:        rs.nextID(),
		fn:        fn,
		scheduler: cfg.scheduler,
		onStop:    cfg.onStop,
		active:    true,
		deps:      mapset.NewThreadUnsafeSet[*Dep](),
	}
}

// Effect creates an effect and runs it right away unless Lazy is given. An error
// from that first run goes to the system's error handler.
func Effect(rs *ReactiveSystem, fn ErrFn, opts ...EffectOption) *ReactiveEffect {
	e := NewEffect(rs, fn, opts...)
	if newEffectConfig(opts).lazy {
		return e
	}
	if err := e.Run(); err != nil {
		rs.reportError(e, err)
	}
	return e
}

func (e *ReactiveEffect) ID() uint64 {
	return e.id
}

func (e *ReactiveEffect) Active() bool {
	return e.active
}

// DepCount returns how many Deps currently hold this effect.
func (e *ReactiveEffect) DepCount() int {
	return len(e.links)
}

// Run executes the effect body. A stopped effect still runs its body but
// collects nothing.
func (e *ReactiveEffect) Run() error {
	if !e.active {
		return e.fn()
	}

	rs := e.rs
	prevShouldTrack := rs.shouldTrack
	parent := rs.activeEffect
	e.parent = parent
	rs.activeEffect = e
	rs.shouldTrack = true
	defer func() {
		rs.shouldTrack = prevShouldTrack
		rs.activeEffect = parent
		e.parent = nil
	}()

	return e.fn()
}

// Stop removes the effect from every Dep that collected it and calls its
// onStop hook. Stopping twice is a no-op.
func (e *ReactiveEffect) Stop() {
	if !e.active {
		return
	}
	e.active = false

	for _, l := range e.links {
		l.dep.unlink(l)
	}
	if ce := e.rs.logger.Check(zap.DebugLevel, "effect stopped"); ce != nil {
		ce.Write(zap.Uint64("effect", e.id), zap.Int("deps", len(e.links)))
	}
	e.links = nil
	e.deps.Clear()

	if e.onStop != nil {
		e.onStop()
	}
}

func (e *ReactiveEffect) notify() {
	if e.scheduler != nil {
		e.scheduler()
		return
	}
	if err := e.Run(); err != nil {
		e.rs.reportError(e, err)
	}
}

func (rs *ReactiveSystem) trackDep(dep *Dep) {
	if !rs.canTrack() {
		return
	}
	e := rs.activeEffect
	if e.deps.Contains(dep) {
		return
	}
	e.deps.Add(dep)
	e.links = append(e.links, dep.link(e))
}

func (rs *ReactiveSystem) triggerDep(dep *Dep) {
	links := dep.snapshot()
	if len(links) == 0 {
		return
	}
	if ce := rs.logger.Check(zap.DebugLevel, "trigger"); ce != nil {
		ce.Write(zap.Int("subscribers", len(links)))
	}
	for _, l := range links {
		// unlinked by a stop earlier in this fan-out
		if l.dep == nil {
			continue
		}
		if l.sub == rs.activeEffect {
			continue
		}
		l.sub.notify()
	}
}
