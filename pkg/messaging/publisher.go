package messaging

import (
	"context"
	"fmt"
	"time"
)

// Publisher 도메인 이벤트 발행 인터페이스
type Publisher interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Close() error
}

// Envelope 는 모든 드라이버가 공통으로 쓰는 메시지 포맷입니다.
type Envelope struct {
	Topic   string      `json:"topic"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}

// Config 발행자 설정
type Config struct {
	// Driver 는 redis, kafka, none 중 하나
	Driver string `mapstructure:"driver" yaml:"driver"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	ChannelPrefix string `mapstructure:"channel_prefix" yaml:"channel_prefix"`

	KafkaBrokers []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic" yaml:"kafka_topic"`
}

// NewPublisher 는 설정된 드라이버의 발행자를 생성합니다. 드라이버가 비어 있으면 no-op 입니다.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NopPublisher{}, nil
	case "redis":
		return NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ChannelPrefix)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("지원하지 않는 messaging driver: %s", cfg.Driver)
	}
}

// NopPublisher 는 아무 것도 하지 않습니다. 테스트와 messaging 비활성 환경용.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
