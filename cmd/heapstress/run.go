package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/osmem/heapkit/heap"
	"github.com/osmem/heapkit/metrics"
)

var (
	runFlags      allocFlags
	runWorkers    int
	runIters      int
	runMaxSize    uint64
	runAlign      uint64
	runListen     string
	runHoldWindow int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runFlags.kind, "allocator", "freelist", "Allocator kind (bump, leak, node, freelist, buddy)")
	cmd.Flags().StringVar(&runFlags.arenaSize, "arena", "1M", "Arena size, with optional K/M/G suffix")
	cmd.Flags().StringVar(&runFlags.strategy, "strategy", "first", "Free-list search strategy (first, best, worst, next)")
	cmd.Flags().Uint64Var(&runFlags.nodeSize, "node-size", 64, "Slot size for the node allocator")
	cmd.Flags().IntVar(&runWorkers, "workers", runtime.GOMAXPROCS(0), "Concurrent worker goroutines")
	cmd.Flags().IntVar(&runIters, "iters", 10000, "Alloc/free iterations per worker")
	cmd.Flags().Uint64Var(&runMaxSize, "max-size", 256, "Largest request size in bytes")
	cmd.Flags().Uint64Var(&runAlign, "align", 8, "Request alignment")
	cmd.Flags().IntVar(&runHoldWindow, "hold", 8, "Live regions each worker holds before recycling")
	cmd.Flags().StringVar(&runListen, "metrics-listen", "", "Serve Prometheus metrics on this address while running")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Hammer an allocator from many goroutines",
		Long: `The run command drives one allocator with concurrent alloc/free
traffic. Every worker stamps its regions with a private marker byte and
verifies the stamp before freeing, so any overlapping grant is caught as
corruption.

Example:
  heapstress run --allocator buddy --arena 4M --workers 16
  heapstress run --allocator freelist --strategy best --iters 100000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

type runReport struct {
	Allocator  string        `json:"allocator"`
	ArenaBytes uintptr       `json:"arena_bytes"`
	Workers    int           `json:"workers"`
	Iters      int           `json:"iters_per_worker"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Allocs     int64         `json:"allocs"`
	OOM        int64         `json:"oom_rejections"`
	Corrupted  int64         `json:"corrupted_regions"`
	Stats      heap.Stats    `json:"allocator_stats"`
}

func runStress() error {
	ar, a, err := runFlags.build()
	if err != nil {
		return err
	}
	defer ar.Close()

	if runListen != "" {
		reg := prometheus.NewRegistry()
		if err := reg.Register(metrics.NewCollector().Track(runFlags.kind, a)); err != nil {
			return err
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(runListen, mux)
		}()
		printVerbose("serving metrics on %s\n", runListen)
	}

	type held struct {
		ptr uintptr
		d   []byte
	}
	var (
		wg        sync.WaitGroup
		allocs    atomic.Int64
		oom       atomic.Int64
		corrupted atomic.Int64
	)
	start := time.Now()
	for w := 0; w < runWorkers; w++ {
		wg.Add(1)
		go func(marker byte) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(marker)<<32))
			live := make([]held, 0, runHoldWindow)
			recycle := func(h held) bool {
				clean := true
				for _, b := range h.d {
					if b != marker {
						clean = false
						break
					}
				}
				if !clean {
					corrupted.Add(1)
				}
				if err := a.Free(h.ptr, uintptr(len(h.d))); err != nil {
					corrupted.Add(1)
				}
				return clean
			}
			for i := 0; i < runIters; i++ {
				size := uintptr(1 + rng.Intn(int(runMaxSize)))
				p, d, err := a.Alloc(size, uintptr(runAlign))
				if errors.Is(err, heap.ErrOutOfMemory) {
					oom.Add(1)
					if len(live) > 0 {
						h := live[len(live)-1]
						live = live[:len(live)-1]
						recycle(h)
					}
					continue
				}
				if err != nil {
					corrupted.Add(1)
					continue
				}
				allocs.Add(1)
				for j := range d {
					d[j] = marker
				}
				live = append(live, held{ptr: p, d: d})
				if len(live) >= runHoldWindow {
					h := live[0]
					live = live[1:]
					recycle(h)
				}
			}
			for _, h := range live {
				recycle(h)
			}
		}(byte(w + 1))
	}
	wg.Wait()

	report := runReport{
		Allocator:  runFlags.kind,
		ArenaBytes: a.ArenaSize(),
		Workers:    runWorkers,
		Iters:      runIters,
		Elapsed:    time.Since(start),
		Allocs:     allocs.Load(),
		OOM:        oom.Load(),
		Corrupted:  corrupted.Load(),
	}
	if sp, ok := a.(heap.StatsProvider); ok {
		report.Stats = sp.Stats()
	}
	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		fmt.Printf("allocator:  %s over %d bytes\n", report.Allocator, report.ArenaBytes)
		fmt.Printf("traffic:    %d workers x %d iters in %v\n", report.Workers, report.Iters, report.Elapsed)
		fmt.Printf("allocs:     %d (%d rejected out-of-memory)\n", report.Allocs, report.OOM)
		fmt.Printf("retries:    %d cas losses\n", report.Stats.Retries)
		fmt.Printf("splits:     %d, merges: %d\n", report.Stats.Splits, report.Stats.Merges)
		fmt.Printf("corrupted:  %d\n", report.Corrupted)
	}
	if report.Corrupted > 0 {
		return fmt.Errorf("%d corrupted regions", report.Corrupted)
	}
	return nil
}
