package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wehubfusion/Ariadne/pkg/errors"
)

func TestController_Iterate_SynchronousWalk(t *testing.T) {
	controller := New[int](DefaultConfig())

	items := []int{1, 2, 3}
	visited := []int{}
	var final []int
	doneCalls := 0

	err := controller.Iterate(context.Background(), items, func(index int, value int, cont *Continuation[int]) {
		visited = append(visited, index)
		cont.Advance()
	}, func(result []int) {
		doneCalls++
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, 1, doneCalls, "done should fire exactly once")
	assert.Equal(t, []int{0, 1, 2}, visited)
	assert.Equal(t, []int{1, 2, 3}, final, "values must be unchanged when advancing without replacement")
}

func TestController_Iterate_ReplacesValues(t *testing.T) {
	controller := New[int](DefaultConfig())

	var final []int
	err := controller.Iterate(context.Background(), []int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		cont.AdvanceWith(value * 2)
	}, func(result []int) {
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, final)
}

func TestController_Iterate_PartialReplacement(t *testing.T) {
	controller := New[string](DefaultConfig())

	var final []string
	err := controller.Iterate(context.Background(), []string{"a", "b", "c"}, func(index int, value string, cont *Continuation[string]) {
		if index == 1 {
			cont.AdvanceWith("B")
			return
		}
		cont.Advance()
	}, func(result []string) {
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "B", "c"}, final, "only the replaced index should change")
}

func TestController_Iterate_AbortStopsWalk(t *testing.T) {
	controller := New[string](DefaultConfig())

	visited := []int{}
	var final []string
	doneCalls := 0

	err := controller.Iterate(context.Background(), []string{"a", "b", "c"}, func(index int, value string, cont *Continuation[string]) {
		visited = append(visited, index)
		if index == 1 {
			cont.Abort()
			return
		}
		cont.Advance()
	}, func(result []string) {
		doneCalls++
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, []int{0, 1}, visited, "indices past the abort must never be visited")
	assert.Equal(t, []string{"a", "b", "c"}, final, "abort without a value leaves items untouched")
}

func TestController_Iterate_AbortWithValue(t *testing.T) {
	controller := New[string](DefaultConfig())

	var final []string
	err := controller.Iterate(context.Background(), []string{"a", "b", "c"}, func(index int, value string, cont *Continuation[string]) {
		if index == 1 {
			cont.AbortWith("X")
			return
		}
		cont.Advance()
	}, func(result []string) {
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "X", "c"}, final)
}

func TestController_Iterate_EmptyItems(t *testing.T) {
	controller := New[int](DefaultConfig())

	err := controller.Iterate(context.Background(), []int{}, func(index int, value int, cont *Continuation[int]) {
		t.Fatal("step should not be called for empty items")
	}, func(result []int) {
		t.Fatal("done should not be called for empty items")
	})

	require.NoError(t, err)
}

func TestController_Iterate_NilStep(t *testing.T) {
	controller := New[int](DefaultConfig())

	err := controller.Iterate(context.Background(), []int{1}, nil, nil)

	require.Error(t, err)
	assert.True(t, sdkerrors.IsInvalidArgument(err))
	assert.ErrorIs(t, err, sdkerrors.ErrStepRequired)
}

func TestController_Iterate_NilDone(t *testing.T) {
	controller := New[int](DefaultConfig())

	count := 0
	err := controller.Iterate(context.Background(), []int{1, 2}, func(index int, value int, cont *Continuation[int]) {
		count++
		cont.Advance()
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestController_Iterate_AsynchronousResumption(t *testing.T) {
	controller := New[int](DefaultConfig())

	visited := make(chan int, 4)
	done := make(chan []int, 1)

	err := controller.Iterate(context.Background(), []int{10, 20, 30}, func(index int, value int, cont *Continuation[int]) {
		visited <- index
		go func() {
			time.Sleep(5 * time.Millisecond)
			cont.AdvanceWith(value + 1)
		}()
	}, func(result []int) {
		done <- result
	})
	require.NoError(t, err)

	select {
	case final := <-done:
		assert.Equal(t, []int{11, 21, 31}, final)
	case <-time.After(2 * time.Second):
		t.Fatal("walk did not complete")
	}

	close(visited)
	order := []int{}
	for i := range visited {
		order = append(order, i)
	}
	assert.Equal(t, []int{0, 1, 2}, order, "steps must run in ascending index order")
}

func TestContinuation_DuplicateAdvanceIsNoOp(t *testing.T) {
	controller := New[int](DefaultConfig())

	var retained *Continuation[int]
	var final []int
	doneCalls := 0

	err := controller.Iterate(context.Background(), []int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		if index == 0 {
			retained = cont
		}
		cont.Advance()
	}, func(result []int) {
		doneCalls++
		final = result
	})
	require.NoError(t, err)
	require.Equal(t, 1, doneCalls)

	// The handle for index 0 already fired; calling it again must neither
	// mutate the sequence nor complete the run a second time.
	retained.AdvanceWith(99)
	retained.Advance()

	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, []int{1, 2, 3}, final)
}

func TestContinuation_AdvanceAfterAbortIsNoOp(t *testing.T) {
	controller := New[int](DefaultConfig())

	doneCalls := 0
	var final []int

	err := controller.Iterate(context.Background(), []int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		// Misbehaving step: aborts, then keeps going anyway.
		cont.Abort()
		cont.Advance()
		cont.AdvanceWith(42)
	}, func(result []int) {
		doneCalls++
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, 1, doneCalls, "advance after abort must not resume the walk")
	assert.Equal(t, []int{1, 2, 3}, final)
}

func TestContinuation_AbortAfterCompletionIsNoOp(t *testing.T) {
	controller := New[int](DefaultConfig())

	var retained *Continuation[int]
	doneCalls := 0
	var final []int

	err := controller.Iterate(context.Background(), []int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		if index == 2 {
			retained = cont
		}
		cont.Advance()
	}, func(result []int) {
		doneCalls++
		final = result
	})
	require.NoError(t, err)
	require.Equal(t, 1, doneCalls)

	// Hardened behavior: a late abort neither re-fires done nor rewrites the
	// finished sequence.
	retained.AbortWith(99)
	retained.Abort()

	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, []int{1, 2, 3}, final)
}

func TestContinuation_RetainedAbortWritesItsOwnIndex(t *testing.T) {
	controller := New[string](DefaultConfig())

	var fromIndexZero *Continuation[string]
	var final []string

	err := controller.Iterate(context.Background(), []string{"a", "b", "c"}, func(index int, value string, cont *Continuation[string]) {
		switch index {
		case 0:
			fromIndexZero = cont
			cont.Advance()
		case 1:
			// Abort through the handle minted at index 0: the overwrite must
			// land on index 0 even though the walk is at index 1.
			fromIndexZero.AbortWith("Z")
		default:
			cont.Advance()
		}
	}, func(result []string) {
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "b", "c"}, final)
}

func TestController_Iterate_SupersedesPriorRun(t *testing.T) {
	controller := New[int](DefaultConfig())

	var stale *Continuation[int]
	err := controller.Iterate(context.Background(), []int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		// Suspend forever; keep the handle around.
		stale = cont
	}, func(result []int) {
		t.Fatal("superseded run must not complete")
	})
	require.NoError(t, err)
	require.NotNil(t, stale)

	second := []int{7, 8}
	visited := 0
	doneCalls := 0
	var final []int
	err = controller.Iterate(context.Background(), second, func(index int, value int, cont *Continuation[int]) {
		visited++
		if index == 0 {
			// Fire the stale handles mid-run; the new run must be unaffected.
			stale.AdvanceWith(99)
			stale.Abort()
		}
		cont.Advance()
	}, func(result []int) {
		doneCalls++
		final = result
	})
	require.NoError(t, err)

	assert.Equal(t, 2, visited)
	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, []int{7, 8}, final)
}

func TestController_Iterate_ConcurrentHandleCalls(t *testing.T) {
	controller := New[int](DefaultConfig())

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	done := make(chan []int, 1)
	err := controller.Iterate(context.Background(), items, func(index int, value int, cont *Continuation[int]) {
		// Hammer the same handle from several goroutines; exactly one call
		// may take effect.
		for g := 0; g < 4; g++ {
			go cont.AdvanceWith(value * 2)
		}
	}, func(result []int) {
		done <- result
	})
	require.NoError(t, err)

	select {
	case final := <-done:
		for i, v := range final {
			assert.Equal(t, i*2, v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("walk did not complete")
	}
}

func TestIterate_ConvenienceWrapper(t *testing.T) {
	var final []int
	err := Iterate([]int{1, 2, 3}, func(index int, value int, cont *Continuation[int]) {
		cont.AdvanceWith(value * 2)
	}, func(result []int) {
		final = result
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, final)
}
