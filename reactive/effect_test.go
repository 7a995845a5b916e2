package reactive_test

import (
	"errors"
	"testing"

	"github.com/ZhiYuZhiNiao/Reactive/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newSystem(t *testing.T) *reactive.ReactiveSystem {
	t.Helper()
	return reactive.CreateReactiveSystem(func(from *reactive.ReactiveEffect, err error) {
		assert.FailNow(t, err.Error())
	})
}

// should run once per distinct write to a slot it read
func TestEffectRunsOncePerWrite(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	runs := 0
	reactive.Effect(rs, func() error {
		runs++
		count.Value()
		count.Value()
		return nil
	})
	assert.Equal(t, 1, runs)

	count.SetValue(1)
	assert.Equal(t, 2, runs)
	count.SetValue(2)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 1, count.Dep().Len())
}

// should not run when the written value is the same
func TestEffectSameValueWrite(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 5)

	runs := 0
	reactive.Effect(rs, func() error {
		runs++
		count.Value()
		return nil
	})
	count.SetValue(5)
	assert.Equal(t, 1, runs)
}

// should not trigger after stop
func TestShouldNotTriggerAfterStop(t *testing.T) {
	rs := newSystem(t)
	a := reactive.NewRef(rs, 1)
	b := reactive.NewRef(rs, 1)

	runs := 0
	e := reactive.Effect(rs, func() error {
		runs++
		a.Value()
		b.Value()
		return nil
	})
	assert.Equal(t, 2, e.DepCount())

	e.Stop()
	assert.False(t, e.Active())
	assert.Equal(t, 0, e.DepCount())
	assert.Equal(t, 0, a.Dep().Len())
	assert.Equal(t, 0, b.Dep().Len())

	a.SetValue(2)
	b.SetValue(2)
	assert.Equal(t, 1, runs)
}

// should call onStop once however often stop is called
func TestEffectStopIsIdempotent(t *testing.T) {
	rs := newSystem(t)
	stops := 0
	e := reactive.Effect(rs, func() error { return nil }, reactive.WithOnStop(func() {
		stops++
	}))

	e.Stop()
	e.Stop()
	assert.Equal(t, 1, stops)
}

// should still run the body of a stopped effect without tracking
func TestStoppedEffectRunsUntracked(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	runs := 0
	e := reactive.Effect(rs, func() error {
		runs++
		assert.Nil(t, rs.ActiveEffect())
		count.Value()
		return nil
	}, reactive.Lazy())
	e.Stop()

	require.NoError(t, e.Run())
	assert.Equal(t, 1, runs)
	assert.Equal(t, 0, e.DepCount())
	count.SetValue(1)
	assert.Equal(t, 1, runs)
}

// should not run a lazy effect until asked
func TestLazyEffect(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	runs := 0
	e := reactive.Effect(rs, func() error {
		runs++
		count.Value()
		return nil
	}, reactive.Lazy())
	assert.Equal(t, 0, runs)

	count.SetValue(1)
	assert.Equal(t, 0, runs)

	require.NoError(t, e.Run())
	count.SetValue(2)
	assert.Equal(t, 2, runs)
}

// should call the scheduler instead of re-running
func TestEffectScheduler(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	runs, scheduled := 0, 0
	e := reactive.Effect(rs, func() error {
		runs++
		count.Value()
		return nil
	}, reactive.WithScheduler(func() {
		scheduled++
	}))

	count.SetValue(1)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, scheduled)

	require.NoError(t, e.Run())
	assert.Equal(t, 2, runs)
}

// should attribute reads to the innermost running effect
func TestNestedEffectAttribution(t *testing.T) {
	rs := newSystem(t)
	x := reactive.NewRef(rs, 0)
	y := reactive.NewRef(rs, 0)

	outerRuns, innerRuns := 0, 0
	var inner, seenAfterInner *reactive.ReactiveEffect
	outer := reactive.Effect(rs, func() error {
		outerRuns++
		inner = reactive.Effect(rs, func() error {
			innerRuns++
			x.Value()
			return nil
		})
		seenAfterInner = rs.ActiveEffect()
		y.Value()
		return nil
	})
	assert.Same(t, outer, seenAfterInner)
	assert.Nil(t, rs.ActiveEffect())

	assert.Equal(t, []*reactive.ReactiveEffect{inner}, x.Dep().Subscribers())
	assert.Equal(t, []*reactive.ReactiveEffect{outer}, y.Dep().Subscribers())

	x.SetValue(1)
	assert.Equal(t, 1, outerRuns)
	assert.Equal(t, 2, innerRuns)

	y.SetValue(1)
	assert.Equal(t, 2, outerRuns)
	assert.Equal(t, 3, innerRuns)
}

// should restore the active effect when a body panics
func TestPanicRestoresActiveEffect(t *testing.T) {
	rs := newSystem(t)
	y := reactive.NewRef(rs, 0)

	failing := reactive.NewEffect(rs, func() error {
		panic("boom")
	})
	assert.Panics(t, func() {
		_ = failing.Run()
	})
	assert.Nil(t, rs.ActiveEffect())

	outerRuns := 0
	outer := reactive.Effect(rs, func() error {
		outerRuns++
		func() {
			defer func() {
				recover()
			}()
			_ = failing.Run()
		}()
		y.Value()
		return nil
	})
	assert.True(t, y.Dep().Has(outer))

	y.SetValue(1)
	assert.Equal(t, 2, outerRuns)
}

// should return the body error from a direct run
func TestRunReturnsError(t *testing.T) {
	rs := newSystem(t)
	errBoom := errors.New("boom")
	e := reactive.NewEffect(rs, func() error {
		return errBoom
	})
	assert.ErrorIs(t, e.Run(), errBoom)
	assert.Nil(t, rs.ActiveEffect())
}

// should hand errors of triggered runs to the error handler
func TestTriggeredErrorGoesToHandler(t *testing.T) {
	var (
		gotFrom *reactive.ReactiveEffect
		gotErr  error
	)
	rs := reactive.CreateReactiveSystem(func(from *reactive.ReactiveEffect, err error) {
		gotFrom, gotErr = from, err
	})
	count := reactive.NewRef(rs, 0)
	errOdd := errors.New("odd")

	e := reactive.Effect(rs, func() error {
		if count.Value()%2 == 1 {
			return errOdd
		}
		return nil
	})
	assert.NoError(t, gotErr)

	count.SetValue(1)
	assert.Same(t, e, gotFrom)
	assert.ErrorIs(t, gotErr, errOdd)
}

// should log errors when no handler is set
func TestTriggeredErrorIsLoggedWithoutHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rs := reactive.CreateReactiveSystem(nil, reactive.WithLogger(zap.New(core)))
	count := reactive.NewRef(rs, 0)

	reactive.Effect(rs, func() error {
		if count.Value() > 0 {
			return errors.New("too big")
		}
		return nil
	})
	count.SetValue(1)

	failures := logs.FilterMessage("effect failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Equal(t, 1, logs.FilterMessage("trigger").Len())
}

// should visit subscribers in tracking order
func TestTriggerOrder(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	order := []string{}
	for _, name := range []string{"first", "second", "third"} {
		reactive.Effect(rs, func() error {
			if count.Value() > 0 {
				order = append(order, name)
			}
			return nil
		})
	}

	count.SetValue(1)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

// should not visit a subscriber stopped earlier in the same trigger
func TestTriggerSkipsSubscriberStoppedMidway(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	var second *reactive.ReactiveEffect
	secondRuns := 0
	reactive.Effect(rs, func() error {
		if count.Value() > 0 {
			second.Stop()
		}
		return nil
	})
	second = reactive.Effect(rs, func() error {
		secondRuns++
		count.Value()
		return nil
	})

	count.SetValue(1)
	assert.Equal(t, 1, secondRuns)
}

// should not visit a subscriber added during the same trigger
func TestTriggerUsesSnapshot(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	lateRuns := 0
	spawned := false
	reactive.Effect(rs, func() error {
		if count.Value() > 0 && !spawned {
			spawned = true
			rs.PauseTracking()
			defer rs.ResumeTracking()
			reactive.Effect(rs, func() error {
				lateRuns++
				count.Value()
				return nil
			})
		}
		return nil
	})

	count.SetValue(1)
	assert.Equal(t, 1, lateRuns)
	count.SetValue(2)
	assert.Equal(t, 2, lateRuns)
}

// should not recurse when an effect writes what it reads
func TestSelfWriteDoesNotRecurse(t *testing.T) {
	rs := newSystem(t)
	count := reactive.NewRef(rs, 0)

	runs := 0
	reactive.Effect(rs, func() error {
		runs++
		count.SetValue(count.Value() + 1)
		return nil
	})
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, count.Raw())

	count.SetValue(10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 11, count.Raw())
}

// should notify other subscribers but not the effect that triggers
func TestTriggerSkipsRunningEffect(t *testing.T) {
	rs := newSystem(t)
	type store struct{ n int }
	s := &store{}

	watcherRuns := 0
	reactive.Effect(rs, func() error {
		watcherRuns++
		reactive.Track(rs, s, "n")
		return nil
	})

	writerRuns := 0
	reactive.Effect(rs, func() error {
		writerRuns++
		reactive.Track(rs, s, "n")
		s.n++
		reactive.Trigger(rs, s, "n")
		return nil
	})
	assert.Equal(t, 1, writerRuns)
	assert.Equal(t, 2, watcherRuns)
	assert.Equal(t, 1, s.n)
}

// should pause tracking
func TestShouldPauseTracking(t *testing.T) {
	rs := newSystem(t)
	src := reactive.NewRef(rs, 0)

	c := reactive.Computed(rs, func() int {
		return reactive.Untrack(rs, src.Value)
	})
	assert.Equal(t, 0, c.Value())

	src.SetValue(1)
	assert.Equal(t, 0, c.Value())
}
