package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-strand/strand/internal/runtime"
	"github.com/go-strand/strand/pkg/contextlocal"
	"github.com/go-strand/strand/pkg/id"
	"github.com/go-strand/strand/pkg/loop"
	"github.com/go-strand/strand/pkg/log"
	"github.com/go-strand/strand/pkg/metrics"
	"github.com/go-strand/strand/pkg/strand"
)

// strandCapacity returns the ring capacity to build strands with,
// preferring the loaded runtime config over the package's own default.
func strandCapacity() int64 {
	if runtimeCfg != nil && runtimeCfg.StrandRing > 0 {
		return runtimeCfg.StrandRing
	}
	return strand.DefaultCapacity
}

var (
	pingpongTarget     int64
	pingpongMetrics    bool
	pingpongMetricsPort int
)

// pingpongCmd runs two threads repeatedly posting to each
// other's strand, incrementing a shared counter until it reaches
// target.
var pingpongCmd = &cobra.Command{
	Use:   "pingpong",
	Short: "run the two-thread ping-pong scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := id.ScenarioTag()
		logger := log.GetLogger().With("run", runID, "scenario", "pingpong", "target", pingpongTarget)
		logger.Info("starting ping-pong")

		rt := runtime.New(nil)
		threadA, err := rt.AddThread("A")
		if err != nil {
			return err
		}
		threadB, err := rt.AddThread("B")
		if err != nil {
			return err
		}
		if err := rt.AddStrandTo("A", strand.New("a", threadA, strandCapacity())); err != nil {
			return err
		}
		if err := rt.AddStrandTo("B", strand.New("b", threadB, strandCapacity())); err != nil {
			return err
		}

		if pingpongMetrics {
			srv := metrics.NewServer(metrics.MetricsConfig{Enable: true, Port: pingpongMetricsPort})
			if err := srv.RegisterCollector(rt.Collector()); err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() {
				_ = srv.Stop(context.Background())
			}()
		}

		rt.Start()

		strandA := findStrand(rt, "A", "a")
		strandB := findStrand(rt, "B", "b")

		var last atomic.Int64
		done := make(chan struct{})

		var pingpong func(n int64, self, other *strand.Strand)
		pingpong = func(n int64, self, other *strand.Strand) {
			last.Store(n)
			if n >= pingpongTarget {
				close(done)
				return
			}
			next := n + 1
			if err := other.Post(func(ctx *contextlocal.Context) {
				pingpong(next, other, self)
			}); err != nil {
				logger.Errorw("post failed, aborting ping-pong", "error", err)
				close(done)
			}
		}

		if err := strandA.Post(func(ctx *contextlocal.Context) {
			pingpong(1, strandA, strandB)
		}); err != nil {
			return err
		}

		progress := loop.New(loop.WithInterval(time.Second))
		progressDone := make(chan struct{})
		go func() {
			defer close(progressDone)
			_ = progress.Do(func() (bool, error) {
				select {
				case <-done:
					return true, nil
				default:
				}
				logger.Infow("ping-pong progress", "count", last.Load())
				return false, nil
			})
		}()

		<-done
		<-progressDone
		logger.Infow("ping-pong finished", "count", last.Load())

		return rt.Shutdown()
	},
}

func init() {
	pingpongCmd.Flags().Int64Var(&pingpongTarget, "target", 1<<16, "counter value to reach; each one-way post between the two strands adds one")
	pingpongCmd.Flags().BoolVar(&pingpongMetrics, "metrics", false, "serve scheduler Prometheus metrics while the scenario runs")
	pingpongCmd.Flags().IntVar(&pingpongMetricsPort, "metrics-port", 8082, "port for the metrics server")
}

func findStrand(rt *runtime.Runtime, threadName, strandName string) *strand.Strand {
	th := rt.Thread(threadName)
	return th.StrandNamed(strandName)
}
