package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitial(t *testing.T) {
	s := NewInitial()
	assert.Equal(t, Initial, s.Get())
}

func TestSetGet(t *testing.T) {
	s := NewInitial()
	s.Set(41)
	assert.Equal(t, int64(41), s.Get())
}

func TestIncr(t *testing.T) {
	s := New(0)
	assert.Equal(t, int64(1), s.Incr(1))
	assert.Equal(t, int64(4), s.Incr(3))
}

func TestCompareAndSwap(t *testing.T) {
	s := New(5)
	assert.True(t, s.CompareAndSwap(5, 6))
	assert.Equal(t, int64(6), s.Get())
	assert.False(t, s.CompareAndSwap(5, 7))
	assert.Equal(t, int64(6), s.Get())
}

func TestAlert(t *testing.T) {
	s := NewInitial()
	assert.False(t, s.IsAlerted())
	s.Alert()
	assert.True(t, s.IsAlerted())
	s.ClearAlert()
	assert.False(t, s.IsAlerted())
}

func TestMinOf(t *testing.T) {
	a, b, c := New(3), New(1), New(5)
	assert.Equal(t, int64(1), MinOf([]*Sequence{a, b, c}))
}

func TestMinOfPanicsOnEmpty(t *testing.T) {
	require.Panics(t, func() {
		MinOf(nil)
	})
}
