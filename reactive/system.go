// Package reactive tracks which state a computation reads and re-runs it when
// that state changes.
package reactive

import (
	"go.uber.org/zap"
)

type OnErrorFunc func(from *ReactiveEffect, err error)

type Option func(*ReactiveSystem)

// WithLogger sets the logger used for debug tracing and unhandled effect errors.
func WithLogger(logger *zap.Logger) Option {
	return func(rs *ReactiveSystem) {
		if logger != nil {
			rs.logger = logger
		}
	}
}

type ReactiveSystem struct {
	activeEffect *ReactiveEffect
	shouldTrack  bool
	pauseStack   []bool

	registry *registry
	onError  OnErrorFunc
	logger   *zap.Logger
	lastID   uint64
}

func CreateReactiveSystem(onError OnErrorFunc, opts ...Option) *ReactiveSystem {
	rs := &ReactiveSystem{
		onError: onError,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.registry = newRegistry(rs.logger)
	return rs
}

// ActiveEffect returns the effect currently collecting dependencies, or nil.
func (rs *ReactiveSystem) ActiveEffect() *ReactiveEffect {
	return rs.activeEffect
}

func (rs *ReactiveSystem) canTrack() bool {
	return rs.shouldTrack && rs.activeEffect != nil && rs.activeEffect.active
}

// PauseTracking stops dependency collection until the matching ResumeTracking.
// Calls nest.
func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.shouldTrack)
	rs.shouldTrack = false
}

func (rs *ReactiveSystem) ResumeTracking() {
	lastIdx := len(rs.pauseStack) - 1
	if lastIdx < 0 {
		return
	}
	rs.shouldTrack = rs.pauseStack[lastIdx]
	rs.pauseStack = rs.pauseStack[:lastIdx]
}

// Untrack runs fn without registering any of its reads on the active effect.
func Untrack[T any](rs *ReactiveSystem, fn func() T) T {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	return fn()
}

func (rs *ReactiveSystem) untracked(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

func (rs *ReactiveSystem) nextID() uint64 {
	rs.lastID++
	return rs.lastID
}

func (rs *ReactiveSystem) reportError(from *ReactiveEffect, err error) {
	if rs.onError != nil {
		rs.onError(from, err)
		return
	}
	rs.logger.Error("effect failed", zap.Uint64("effect", from.id), zap.Error(err))
}
