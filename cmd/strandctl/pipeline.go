package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-strand/strand/pkg/cursor"
	"github.com/go-strand/strand/pkg/id"
	"github.com/go-strand/strand/pkg/log"
	"github.com/go-strand/strand/pkg/parallel"
	"github.com/go-strand/strand/pkg/retry"
	"github.com/go-strand/strand/pkg/ringbuffer"
	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/trace"
	"github.com/go-strand/strand/pkg/waitstrategy"
)

var (
	pipelineCapacity   int64
	pipelineIterations int64
	pipelineFaultAt    int64
)

// pipelineCmd runs the three-stage pipeline scenario: a single producer
// P publishes identity values into a ring; two independent consumers A
// and B read the same published sequence and only advance their own
// cursors, computing nothing; a third consumer C, gated on both A and B
// via a barrier, computes both the square and the cube of each value
// itself (diff = cube - square) and hands each result to a simulated
// flaky sink via pkg/retry. P's own free-slot wait is gated
// on C's progress, so the pipeline's whole point - that P never laps C by
// more than the ring's capacity - holds by construction.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "run the three-stage pipeline scenario",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		spanCtx, span := trace.StartSpan(context.Background(), "strandctl.pipeline")
		defer func() { trace.EndSpan(span, err) }()

		logger := log.GetLogger().With("run", id.RunID(), "scenario", "pipeline", "capacity", pipelineCapacity, "iterations", pipelineIterations)
		logger.Info("starting pipeline")

		ring := ringbuffer.New[int64](pipelineCapacity)
		producer := cursor.NewSingleWriter()

		readA := cursor.NewRead()
		readB := cursor.NewRead()
		readC := cursor.NewRead()

		barrierA := ringbuffer.NewBarrierFor(nil, producer)
		barrierB := ringbuffer.NewBarrierFor(nil, producer)
		barrierC := ringbuffer.NewBarrierFor(nil, readA, readB)

		gating := ringbuffer.GatingSequences(readC)

		stages := parallel.GoGroup(spanCtx)

		// A: the "identity into source" stage. It does no transform of its
		// own; its only job is to gate C alongside B.
		stages.Go(func(ctx context.Context) error {
			for i := int64(0); i < pipelineIterations; i++ {
				if _, err := barrierA.WaitFor(i); err != nil {
					// C gates on this cursor; alert it so C unwinds too
					// instead of spinning on a stage that has exited.
					readA.Sequence().Alert()
					return fmt.Errorf("A: %w", err)
				}
				readA.Advance(i)
			}
			return nil
		})

		// B: advances over each published value without transforming it.
		// The cube is computed by C from the ring value rather than
		// threaded through a second ring, since the pipeline only has one
		// ring of published values to begin with.
		//
		// If --fault-at is set, B raises its own cursor's alert flag on
		// reaching that sequence instead of advancing past it, injecting a
		// cursor fault partway through the run so the abort path gets
		// exercised rather than only ever the clean shutdown. C's barrier
		// is gated on B, so the alert propagates into C's WaitFor and the
		// whole pipeline unwinds with ErrAlerted instead of finishing.
		stages.Go(func(ctx context.Context) error {
			for i := int64(0); i < pipelineIterations; i++ {
				if pipelineFaultAt > 0 && i == pipelineFaultAt {
					logger.Warnw("injecting fault", "at", i)
					readB.Sequence().Alert()
					return fmt.Errorf("B: injected fault at sequence %d", i)
				}
				if _, err := barrierB.WaitFor(i); err != nil {
					readB.Sequence().Alert()
					return fmt.Errorf("B: %w", err)
				}
				readB.Advance(i)
			}
			return nil
		})

		sinkFailureRate := 0.01
		var sinkFailures int
		sink := func(ctx context.Context, diff int64) error {
			return retry.Do(ctx, func(ctx context.Context) error {
				if rand.Float64() < sinkFailureRate {
					sinkFailures++
					return errors.New("pipeline: simulated flaky sink write")
				}
				return nil
			}, retry.WithMaxAttempts(5), retry.WithBackoff(retry.Exponential(time.Microsecond)))
		}

		// C follows both A and B, computing diff = cube - square for the
		// value at each index and handing it to the flaky sink.
		stages.Go(func(ctx context.Context) error {
			for i := int64(0); i < pipelineIterations; i++ {
				if _, err := barrierC.WaitFor(i); err != nil {
					return fmt.Errorf("C: %w", err)
				}
				v := *ring.Get(i)
				square := v * v
				cube := v * v * v
				diff := cube - square
				if err := sink(ctx, diff); err != nil {
					return fmt.Errorf("C: %w", err)
				}
				readC.Advance(i)
			}
			return nil
		})

		// P: publishes sequence values 0..iterations-1. Its free-slot wait
		// checks the group context between backoff ticks so that a faulted
		// run (C stops advancing, the ring fills) unwinds instead of
		// spinning on a consumer that will never move again.
		stages.Go(func(ctx context.Context) error {
			ws := waitstrategy.NewDefaultTiered()
			for i := int64(0); i < pipelineIterations; i++ {
				seq := producer.Next()
				if err := awaitFreeSlotCtx(ctx, pipelineCapacity, seq, gating, ws); err != nil {
					// A and B gate on this cursor alone; alert it so they
					// drain what was published and unwind too.
					producer.Sequence().Alert()
					return fmt.Errorf("P: %w", err)
				}
				ring.Set(seq, seq)
				producer.Publish()
			}
			return nil
		})

		if err := stages.Wait(); err != nil {
			return err
		}

		lag := producer.Get() - readC.Get()
		logger.Infow("pipeline finished", "lag", lag, "sinkRetries", sinkFailures)
		if lag > pipelineCapacity {
			return fmt.Errorf("pipeline: producer lapped C by %d slots, exceeding capacity %d", lag, pipelineCapacity)
		}
		return nil
	},
}

// awaitFreeSlotCtx is ringbuffer.AwaitFreeSlot with cancellation: it
// backs off with ws until claiming nextSeq would not overwrite an unread
// slot, giving up once ctx is done.
func awaitFreeSlotCtx(ctx context.Context, capacity, nextSeq int64, gating []*sequence.Sequence, ws waitstrategy.Strategy) error {
	wrapPoint := nextSeq - capacity
	ws.Reset()
	for wrapPoint > sequence.MinOf(gating) {
		if err := ctx.Err(); err != nil {
			return err
		}
		ws.Wait()
	}
	return nil
}

func init() {
	pipelineCmd.Flags().Int64Var(&pipelineCapacity, "capacity", 1024, "ring buffer capacity (power of two)")
	pipelineCmd.Flags().Int64Var(&pipelineIterations, "iterations", 2_000_000, "number of values to push through the pipeline")
	pipelineCmd.Flags().Int64Var(&pipelineFaultAt, "fault-at", 0, "inject a cursor fault at this sequence in stage B (0 disables)")
}
