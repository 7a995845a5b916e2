package main

import (
	"context"
	"os"
	"runtime/pprof"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	cpuProfileKey = "cpuprofile"
	widthKey      = "width"
	heightKey     = "height"
	iterationsKey = "iterations"
	repeatsKey    = "repeats"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Benchmark the reactive engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  cpuProfileKey,
				Usage: "Write a CPU profile to this file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "propagate",
				Usage: "Write one source feeding width chains of height computeds",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{
						Name:  widthKey,
						Usage: "Chain counts to run",
						Value: []int64{1, 10, 100, 1_000},
					},
					&cli.IntSliceFlag{
						Name:  heightKey,
						Usage: "Chain lengths to run",
						Value: []int64{1, 10, 100, 1_000},
					},
					&cli.IntFlag{
						Name:  iterationsKey,
						Usage: "Writes per shape",
						Value: 100,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withProfile(cmd, logger, func() error {
						return runPropagate(logger, propagateConfig{
							widths:     intSlice(cmd.IntSlice(widthKey)),
							heights:    intSlice(cmd.IntSlice(heightKey)),
							iterations: int(cmd.Int(iterationsKey)),
						})
					})
				},
			},
			{
				Name:  "graph",
				Usage: "Run layered computed graphs with static and dynamic nodes",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  repeatsKey,
						Usage: "Timed runs per graph, the best one is reported",
						Value: 5,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withProfile(cmd, logger, func() error {
						return runGraphs(logger, int(cmd.Int(repeatsKey)))
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}
}

func intSlice[T int | int64](in []T) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func withProfile(cmd *cli.Command, logger *zap.Logger, fn func() error) error {
	path := cmd.String(cpuProfileKey)
	if path == "" {
		return fn()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return err
	}
	defer pprof.StopCPUProfile()
	logger.Info("cpu profile enabled", zap.String("path", path))
	return fn()
}
