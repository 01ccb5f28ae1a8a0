package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countTo(n int) *Generator[int, struct{}] {
	return NewGenerator(func(y *Yielder[int, struct{}]) {
		for i := 1; i <= n; i++ {
			y.Yield(i)
		}
	})
}

func TestGenerator_NextAndValue(t *testing.T) {
	g := countTo(2)

	_, ok := g.Value()
	assert.False(t, ok, "no value before the first Next")

	require.True(t, g.Next())
	v, ok := g.Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.True(t, g.Next())
	v, _ = g.Value()
	assert.Equal(t, 2, v)

	assert.False(t, g.Next())
	assert.True(t, g.Done())
}

func TestGenerator_AllAndCollect(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4}, Collect(countTo(4)))
	assert.Equal(t, []string{"a", "b"}, Collect(FromSlice([]string{"a", "b"})))
	assert.Empty(t, Collect(FromSlice([]int(nil))))

	var firstTwo []int
	for v := range countTo(10).All() {
		firstTwo = append(firstTwo, v)
		if len(firstTwo) == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, firstTwo)
}

func TestGenerator_SendFeedsReceive(t *testing.T) {
	g := NewGenerator(func(y *Yielder[int, int]) {
		for i := 0; i < 3; i++ {
			x := y.Receive()
			y.Yield(x + i)
		}
	})

	assert.Equal(t, []int{10, 11, 12}, CollectSend(g, 10))
	last, ok := g.LastSent()
	assert.True(t, ok)
	assert.Equal(t, 10, last)
	assert.False(t, g.Send(1), "send after completion is rejected")
}

func TestGenerator_CollectInputs(t *testing.T) {
	double := func() *Generator[int, int] {
		return NewGenerator(func(y *Yielder[int, int]) {
			for {
				y.Yield(y.Receive() * 2)
			}
		})
	}

	assert.Equal(t, []int{2, 4, 6}, CollectInputs(double(), []int{1, 2, 3}))
	assert.Empty(t, CollectInputs(double(), nil))
}

func TestGenerator_ReceiveWithoutSendIsZero(t *testing.T) {
	g := NewGenerator(func(y *Yielder[string, int]) {
		x := y.Receive()
		if x == 0 {
			y.Yield("zero")
		}
	})
	assert.Equal(t, []string{"zero"}, Collect(g))
}

func TestGenerator_StopAndPanic(t *testing.T) {
	g := countTo(100)
	require.True(t, g.Next())
	g.Stop()
	assert.True(t, g.Done())
	assert.False(t, g.Next())

	bad := NewGenerator(func(y *Yielder[int, struct{}]) {
		y.Yield(1)
		panic("generator failed")
	})
	require.True(t, bad.Next())
	assert.PanicsWithValue(t, "generator failed", func() { bad.Next() })
}
