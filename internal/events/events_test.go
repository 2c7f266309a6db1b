package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitRunsEveryHandler(t *testing.T) {
	bus := NewEventBus()
	var calls int32
	var mu sync.Mutex
	var got []interface{}

	for i := 0; i < 3; i++ {
		bus.On(UserDeleted, func(data interface{}) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			got = append(got, data)
			mu.Unlock()
		})
	}

	bus.Emit(UserDeleted, "u-1")
	bus.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []interface{}{"u-1", "u-1", "u-1"}, got)
}

func TestEmitWithoutHandlersIsNoop(t *testing.T) {
	bus := NewEventBus()
	bus.Emit(CommentEdited, nil)
	bus.Wait()
}

func TestPanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewEventBus()
	var calls int32

	bus.On(CommentCreated, func(interface{}) { panic("boom") })
	bus.On(CommentCreated, func(interface{}) { atomic.AddInt32(&calls, 1) })

	bus.Emit(CommentCreated, "c-1")
	bus.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
