package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaPublisher 는 토픽 하나에 이벤트를 쓰고 이벤트 종류는 메시지 키로 구분합니다.
type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher Kafka 발행자 생성
func NewKafkaPublisher(brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka broker 목록이 비어 있습니다")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic 이 비어 있습니다")
	}

	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}, nil
}

func (k *kafkaPublisher) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := json.Marshal(Envelope{Topic: topic, Time: time.Now().UTC(), Payload: message})
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(topic), Value: payload})
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}
