package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a single logical settlement queue backed by a Redis list.
// Producers LPUSH JSON-encoded events; the consumer BRPOPs them, giving FIFO
// ordering with a single consumer.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue builds a queue over the named Redis list.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

// Publish appends the event to the queue.
func (q *RedisQueue) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode settlement event: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue settlement event: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next event. The second return value is
// false when the wait timed out with an empty queue.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (Event, bool, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if err == redis.Nil {
			return Event{}, false, nil
		}
		return Event{}, false, fmt.Errorf("dequeue settlement event: %w", err)
	}

	// BRPOP returns [key, value].
	var event Event
	if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
		return Event{}, false, fmt.Errorf("decode settlement event: %w", err)
	}
	return event, true, nil
}

// DeadLetter parks an event that must not be retried on the queue's dead
// letter list for operator inspection.
func (q *RedisQueue) DeadLetter(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := q.client.LPush(ctx, q.name+":dead", payload).Err(); err != nil {
		return fmt.Errorf("park dead letter: %w", err)
	}
	return nil
}
