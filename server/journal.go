package server

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"qkd-demo/configs"
)

// Journal keeps recent broadcast frames so late clients can catch up
type Journal interface {
	Append(ctx context.Context, frame []byte) error
	Replay(ctx context.Context) ([][]byte, error)
	Reset(ctx context.Context) error
	Close() error
}

// RedisJournal stores the last configs.JournalLimit frames in a redis list
type RedisJournal struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewRedisJournal connects to redisURL and checks the connection
func NewRedisJournal(ctx context.Context, redisURL, appName string) (*RedisJournal, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &RedisJournal{
		client: client,
		key:    fmt.Sprintf(configs.ServerJournalKey, appName),
		limit:  configs.JournalLimit,
	}, nil
}

// Append pushes a frame and trims the list to the limit
func (j *RedisJournal) Append(ctx context.Context, frame []byte) error {
	_, err := j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, j.key, frame)
		pipe.LTrim(ctx, j.key, -j.limit, -1)
		return nil
	})
	return err
}

// Replay returns the journaled frames, oldest first
func (j *RedisJournal) Replay(ctx context.Context) ([][]byte, error) {
	messages, err := j.client.LRange(ctx, j.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	frames := make([][]byte, 0, len(messages))
	for _, message := range messages {
		frames = append(frames, []byte(message))
	}
	return frames, nil
}

// Reset clears the journal
func (j *RedisJournal) Reset(ctx context.Context) error {
	return j.client.Del(ctx, j.key).Err()
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}
