package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/ZhiYuZhiNiao/Reactive/reactive"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

type graphConfig struct {
	name           string
	width          int
	totalLayers    int
	staticFraction float64 // fraction of nodes that always read all of their sources
	nSources       int     // sources read by each node
	readFraction   float64 // fraction of leaves read per iteration
	iterations     int64
}

var graphConfigs = []graphConfig{
	{name: "simple component", width: 10, totalLayers: 5, staticFraction: 1, nSources: 2, readFraction: 0.2, iterations: 600_000},
	{name: "dynamic component", width: 10, totalLayers: 10, staticFraction: 0.75, nSources: 6, readFraction: 0.2, iterations: 15_000},
	{name: "large web app", width: 1000, totalLayers: 12, staticFraction: 0.95, nSources: 4, readFraction: 1, iterations: 7_000},
	{name: "wide dense", width: 1000, totalLayers: 5, staticFraction: 1, nSources: 25, readFraction: 1, iterations: 3_000},
	{name: "deep", width: 5, totalLayers: 500, staticFraction: 1, nSources: 3, readFraction: 1, iterations: 500},
	{name: "very dynamic", width: 100, totalLayers: 15, staticFraction: 0.5, nSources: 6, readFraction: 1, iterations: 2_000},
}

func (cfg graphConfig) title() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources)
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if cfg.readFraction < 1 {
		fmt.Fprintf(&sb, " read %0.2f%%", 100*cfg.readFraction)
	}
	return sb.String()
}

type graph struct {
	sources []*reactive.Ref[int]
	layers  [][]reactive.ValueRef[int]
}

type graphResult struct {
	duration time.Duration
	count    int64
	digest   uint64
}

func runGraphs(logger *zap.Logger, repeats int) error {
	if repeats < 1 {
		return fmt.Errorf("repeats must be positive, got %d", repeats)
	}

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{
		"size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "updateRate", "digest", "title",
	})

	for _, cfg := range graphConfigs {
		logger.Info("running graph config", zap.String("name", cfg.name))

		best := graphResult{duration: time.Hour}
		for i := 0; i < repeats+1; i++ {
			counter := new(int64)
			rs := reactive.CreateReactiveSystem(nil, reactive.WithLogger(logger))
			g := makeGraph(rs, cfg, counter)

			start := time.Now()
			leaves := runGraph(g, cfg)
			duration := time.Since(start)

			// first run warms up
			if i == 0 {
				continue
			}
			logger.Debug("graph run",
				zap.String("name", cfg.name),
				zap.Int("run", i),
				zap.Duration("duration", duration),
				zap.Int64("count", *counter),
			)
			if duration < best.duration {
				best = graphResult{
					duration: duration,
					count:    *counter,
					digest:   digestLeaves(leaves),
				}
			}
		}

		updateRate := float64(best.count) / (float64(best.duration) / float64(time.Millisecond))
		tbl.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.readFraction),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(cfg.iterations),
			cfg.name,
			fmt.Sprint(best.duration),
			humanize.Comma(int64(updateRate)),
			fmt.Sprintf("%016x", best.digest),
			cfg.title(),
		})
	}

	tbl.Render()
	return nil
}

func makeGraph(rs *reactive.ReactiveSystem, cfg graphConfig, counter *int64) *graph {
	g := &graph{sources: make([]*reactive.Ref[int], cfg.width)}
	prev := make([]reactive.ValueRef[int], cfg.width)
	for i := range g.sources {
		g.sources[i] = reactive.NewRef(rs, i)
		prev[i] = g.sources[i]
	}

	random := rand.New(rand.NewSource(0))
	g.layers = make([][]reactive.ValueRef[int], cfg.totalLayers-1)
	for l := range g.layers {
		g.layers[l] = makeRow(rs, prev, cfg, counter, random)
		prev = g.layers[l]
	}
	return g
}

func makeRow(rs *reactive.ReactiveSystem, sources []reactive.ValueRef[int], cfg graphConfig, counter *int64, random *rand.Rand) []reactive.ValueRef[int] {
	row := make([]reactive.ValueRef[int], len(sources))
	for myDex := range sources {
		mySources := make([]reactive.ValueRef[int], 0, cfg.nSources)
		for sourceDex := 0; sourceDex < cfg.nSources; sourceDex++ {
			mySources = append(mySources, sources[(myDex+sourceDex)%len(sources)])
		}

		if random.Float64() < cfg.staticFraction {
			row[myDex] = reactive.Computed(rs, func() int {
				*counter++
				sum := 0
				for _, source := range mySources {
					sum += source.Value()
				}
				return sum
			})
			continue
		}

		first, tail := mySources[0], mySources[1:]
		row[myDex] = reactive.Computed(rs, func() int {
			*counter++
			sum := first.Value()
			shouldDrop := sum&0x1 > 0
			dropDex := 0
			if len(tail) > 0 {
				dropDex = sum % len(tail)
			}
			for i, source := range tail {
				if shouldDrop && i == dropDex {
					continue
				}
				sum += source.Value()
			}
			return sum
		})
	}
	return row
}

// runGraph writes one source per iteration and reads a fixed subset of leaves.
func runGraph(g *graph, cfg graphConfig) []reactive.ValueRef[int] {
	random := rand.New(rand.NewSource(0))
	leaves := g.layers[len(g.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	readLeaves := removeElems(leaves, skipCount, random)

	for i := 0; i < int(cfg.iterations); i++ {
		sourceDex := i % len(g.sources)
		g.sources[sourceDex].SetValue(i + sourceDex)
		for _, leaf := range readLeaves {
			leaf.Value()
		}
	}
	return readLeaves
}

func digestLeaves(leaves []reactive.ValueRef[int]) uint64 {
	d := xxhash.New()
	buf := make([]byte, 8)
	for _, leaf := range leaves {
		binary.LittleEndian.PutUint64(buf, uint64(leaf.Value()))
		d.Write(buf)
	}
	return d.Sum64()
}

func removeElems[T any](src []T, rmCount int, random *rand.Rand) []T {
	out := make([]T, len(src))
	copy(out, src)
	for i := 0; i < rmCount; i++ {
		rmDex := random.Intn(len(out))
		out[rmDex] = out[len(out)-1]
		out = out[:len(out)-1]
	}
	return out
}
