package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ZhiYuZhiNiao/Reactive/reactive"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

type propagateConfig struct {
	widths, heights []int
	iterations      int
}

func runPropagate(logger *zap.Logger, cfg propagateConfig) error {
	tbl := table.NewWriter()
	tbl.SetTitle("Propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "effect runs", "avg", "min", "p75", "p99", "max"})

	for _, w := range cfg.widths {
		for _, h := range cfg.heights {
			logger.Info("propagate", zap.Int("width", w), zap.Int("height", h))

			rs := reactive.CreateReactiveSystem(func(from *reactive.ReactiveEffect, err error) {
				logger.Error("effect failed", zap.Uint64("effect", from.ID()), zap.Error(err))
			}, reactive.WithLogger(logger))

			runs := int64(0)
			src := reactive.NewRef(rs, 1)
			for i := 0; i < w; i++ {
				var last reactive.ValueRef[int] = src
				for j := 0; j < h; j++ {
					prev := last
					last = reactive.Computed(rs, func() int {
						return prev.Value() + 1
					})
				}
				reactive.Effect(rs, func() error {
					runs++
					last.Value()
					return nil
				})
			}

			tach := tachymeter.New(&tachymeter.Config{Size: cfg.iterations})
			for i := 0; i < cfg.iterations; i++ {
				start := time.Now()
				src.SetValue(src.Raw() + 1)
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate: %d * %d", w, h),
				humanize.Comma(runs),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	tbl.Render()
	return nil
}
