package reactive

// OnCleanup registers fn to run before the watcher's next run or when it is
// stopped, whichever comes first.
type OnCleanup func(fn func())

type StopFunc func()

// cleanupSlot holds the cleanup registered during the latest run. Each
// registration is invoked at most once.
type cleanupSlot struct {
	fn func()
}

func (s *cleanupSlot) run() {
	fn := s.fn
	if fn == nil {
		return
	}
	s.fn = nil
	fn()
}

func (s *cleanupSlot) register(e **ReactiveEffect) OnCleanup {
	return func(fn func()) {
		s.fn = fn
		(*e).onStop = s.run
	}
}

// WatchEffect runs source immediately and again whenever anything it read
// changes. Errors from source go to the system's error handler.
func WatchEffect(rs *ReactiveSystem, source func(onCleanup OnCleanup) error) StopFunc {
	var (
		e       *ReactiveEffect
		cleanup cleanupSlot
	)
	onCleanup := cleanup.register(&e)

	getter := func() error {
		cleanup.run()
		return source(onCleanup)
	}
	job := func() {
		if !e.active {
			return
		}
		if err := e.Run(); err != nil {
			rs.reportError(e, err)
		}
	}

	e = NewEffect(rs, getter, WithScheduler(job))
	if err := e.Run(); err != nil {
		rs.reportError(e, err)
	}

	return func() {
		e.Stop()
	}
}

type watchConfig struct {
	immediate bool
}

type WatchOption func(*watchConfig)

// Immediate calls the callback once on creation with the zero value as the old
// value.
func Immediate() WatchOption {
	return func(c *watchConfig) {
		c.immediate = true
	}
}

// Watch tracks source and calls cb with the new and previous result each time
// the result changes.
func Watch[T any](rs *ReactiveSystem, source func() T, cb func(value, oldValue T, onCleanup OnCleanup), opts ...WatchOption) StopFunc {
	var cfg watchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		e        *ReactiveEffect
		cleanup  cleanupSlot
		value    T
		oldValue T
	)
	onCleanup := cleanup.register(&e)

	getter := func() error {
		value = source()
		return nil
	}
	fire := func() {
		cleanup.run()
		prev := oldValue
		oldValue = value
		rs.untracked(func() {
			cb(value, prev, onCleanup)
		})
	}
	job := func() {
		if !e.active {
			return
		}
		_ = e.Run()
		if !sameValue(any(value), any(oldValue)) {
			fire()
		}
	}

	e = NewEffect(rs, getter, WithScheduler(job))
	_ = e.Run()
	if cfg.immediate {
		fire()
	} else {
		oldValue = value
	}

	return func() {
		e.Stop()
	}
}
