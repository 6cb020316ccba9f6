package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kcore/service/messaging"
)

type testPayload struct {
	PID   uint16
	State string
}

func TestQueue(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()
	payload := testPayload{PID: 3, State: "zombie"}

	assert.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotEmpty(t, message.ID())
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
}

func TestQueue_NonBlockingOverflow(t *testing.T) {
	queue := NewQueue[testPayload](Config{QueueBuffer: 2})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		assert.NoError(t, queue.Publish(ctx, &testPayload{PID: uint16(i)}))
	}
	assert.ErrorIs(t, queue.Publish(ctx, &testPayload{PID: 9}), messaging.ErrQueueFull)
	assert.EqualValues(t, 1, queue.Dropped())
	assert.Equal(t, 2, queue.Size())
}

func TestQueue_BlockingHonoursContext(t *testing.T) {
	queue := NewQueue[testPayload](Config{QueueBuffer: 1, Blocking: true})
	assert.NoError(t, queue.Publish(context.Background(), &testPayload{PID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, queue.Publish(ctx, &testPayload{PID: 2}), context.DeadlineExceeded)
}

func TestQueue_NackRetries(t *testing.T) {
	queue := NewQueue[testPayload](Config{QueueBuffer: 4, MaxRetries: 1})
	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &testPayload{PID: 5}))

	first, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, first.Nack(nil))
	assert.Equal(t, 1, queue.Size())

	second, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.NoError(t, second.Nack(nil))
	assert.Equal(t, 0, queue.Size())
	assert.EqualValues(t, 1, queue.Dropped())
}

func TestQueue_ConsumeCancelled(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, err := queue.Consume(ctx)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_Concurrency(t *testing.T) {
	const producers, perProducer = 4, 50
	queue := NewQueue[testPayload](Config{QueueBuffer: producers * perProducer})
	ctx := context.Background()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, queue.Publish(ctx, &testPayload{PID: uint16(p*perProducer + i)}))
			}
		}(p)
	}
	wg.Wait()

	seen := map[uint16]bool{}
	for i := 0; i < producers*perProducer; i++ {
		msg, err := queue.Consume(ctx)
		assert.NoError(t, err)
		seen[msg.T().PID] = true
		assert.NoError(t, msg.Ack())
	}
	assert.Len(t, seen, producers*perProducer)
}
