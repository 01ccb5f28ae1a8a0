//go:build slotdebug

package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebug_AwaitOffBodyGoroutinePanics(t *testing.T) {
	hub := NewHub(time.Second)
	li := MakeListener[int](hub, "ints")

	caught := make(chan any, 1)
	s := New(func() {
		go func() {
			defer func() { caught <- recover() }()
			li.Await()
		}()
		for {
			li.Await()
		}
	})
	hub.Bind(s)
	s.Spawn()
	t.Cleanup(hub.Close)

	select {
	case v := <-caught:
		assert.Equal(t, "slot: Await called off the slot body goroutine", v)
	case <-time.After(time.Second):
		t.Fatal("expected the stray Await to panic")
	}
}

func TestDebug_ResumeGuardRejectsOverlap(t *testing.T) {
	var g resumeGuard
	g.enter()
	require.PanicsWithValue(t, "slot: concurrent resume of the same slot", g.enter)
	g.exit()
	require.NotPanics(t, g.enter)
	g.exit()
}

func TestDebug_GoroutineIDIsStable(t *testing.T) {
	id := goid()
	require.NotZero(t, id)
	assert.Equal(t, id, goid())

	other := make(chan uint64)
	go func() { other <- goid() }()
	assert.NotEqual(t, id, <-other)
}
