package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisPublisher 는 Redis Pub/Sub 채널로 메시지를 발행합니다.
type redisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher Redis 발행자 생성. 연결 확인(PING)에 실패하면 에러를 반환합니다.
func NewRedisPublisher(addr, password string, db int, channelPrefix string) (Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis 연결 실패: %w", err)
	}

	return &redisPublisher{client: client, prefix: channelPrefix}, nil
}

func (r *redisPublisher) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := json.Marshal(Envelope{Topic: topic, Time: time.Now().UTC(), Payload: message})
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}
	return r.client.Publish(ctx, r.prefix+topic, payload).Err()
}

func (r *redisPublisher) Close() error {
	return r.client.Close()
}
