package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-strand/strand/pkg/contextlocal"
)

func TestFiberRunsToCompletionWithoutYielding(t *testing.T) {
	ran := false
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		ran = true
	})

	assert.Equal(t, Fresh, f.State())
	_, err := f.Start(contextlocal.New())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, f.Done())
	assert.Equal(t, Done, f.State())
}

func TestFiberYieldAndResume(t *testing.T) {
	var steps []string
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		steps = append(steps, "before-yield")
		f.Yield(ctx)
		steps = append(steps, "after-resume")
	})

	_, err := f.Start(contextlocal.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"before-yield"}, steps)
	assert.Equal(t, Suspended, f.State())
	assert.False(t, f.Done())

	_, err = f.Resume(contextlocal.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"before-yield", "after-resume"}, steps)
	assert.True(t, f.Done())
}

func TestFiberResumeAfterDoneReturnsErrDone(t *testing.T) {
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {})
	_, err := f.Start(contextlocal.New())
	require.NoError(t, err)

	_, err = f.Resume(contextlocal.New())
	assert.ErrorIs(t, err, ErrDone)
}

func TestFiberPanicSetsExitErrAndDone(t *testing.T) {
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		panic("boom")
	})
	_, err := f.Start(contextlocal.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, f.Done())
}

func TestFiberPanicSurfacesOnTheResumeThatHitsIt(t *testing.T) {
	const panicAt = 5
	iteration := 0
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		for {
			iteration++
			if iteration == panicAt {
				panic("iteration 5 boom")
			}
			f.Yield(ctx)
		}
	})

	ctx := contextlocal.New()
	_, err := f.Start(ctx)
	require.NoError(t, err)

	resumes := 1
	for !f.Done() {
		resumes++
		_, err = f.Resume(ctx)
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iteration 5 boom")
	assert.Equal(t, panicAt, resumes, "the error must surface on the resume that hit it, not earlier")
	assert.True(t, f.Done())
}

func TestFiberResetAllowsReuseAfterDone(t *testing.T) {
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {})
	_, err := f.Start(contextlocal.New())
	require.NoError(t, err)
	require.True(t, f.Done())

	ran := false
	f.Reset(func(f *Fiber, ctx *contextlocal.Context) {
		ran = true
	})
	assert.Equal(t, Fresh, f.State())

	_, err = f.Start(contextlocal.New())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, f.Done())
}

func TestFiberResetPanicsIfNotDone(t *testing.T) {
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		f.Yield(ctx)
	})
	_, err := f.Start(contextlocal.New())
	require.NoError(t, err)
	require.False(t, f.Done())

	assert.Panics(t, func() {
		f.Reset(func(f *Fiber, ctx *contextlocal.Context) {})
	})
}

func TestFiberYieldToRunsOtherWithoutHost(t *testing.T) {
	var steps []string

	b := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		steps = append(steps, "b-start")
		f.Yield(ctx)
		steps = append(steps, "b-end")
	})

	a := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		steps = append(steps, "a-before")
		_, err := f.YieldTo(b, ctx)
		require.NoError(t, err)
		steps = append(steps, "a-between")
		_, err = f.YieldTo(b, ctx)
		require.NoError(t, err)
		steps = append(steps, "a-after")
	})

	_, err := a.Start(contextlocal.New())
	require.NoError(t, err)
	assert.True(t, a.Done())
	assert.True(t, b.Done())
	assert.Equal(t, []string{"a-before", "b-start", "a-between", "b-end", "a-after"}, steps)
}

func TestFiberYieldToSurfacesOtherExitError(t *testing.T) {
	b := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		panic("inner boom")
	})

	var yieldToErr error
	a := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		_, yieldToErr = f.YieldTo(b, ctx)
	})

	_, err := a.Start(contextlocal.New())
	require.NoError(t, err)
	require.Error(t, yieldToErr)
	assert.Contains(t, yieldToErr.Error(), "inner boom")
	assert.True(t, b.Done())
}

func TestFiberContextThreadsThroughYield(t *testing.T) {
	var observed int
	f := New(0, func(f *Fiber, ctx *contextlocal.Context) {
		observed = ctx.Value.(int)
		resumed := f.Yield(ctx)
		observed = resumed.Value.(int)
	})

	startCtx := contextlocal.New()
	startCtx.Value = 1
	_, err := f.Start(startCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, observed)

	resumeCtx := contextlocal.New()
	resumeCtx.Value = 2
	_, err = f.Resume(resumeCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, observed)
}
