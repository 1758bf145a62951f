package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/docuchat/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// DocumentEvent 文档生命周期事件
type DocumentEvent struct {
	DocumentID   uint      `json:"document_id"`
	OwnerID      uint      `json:"owner_id"`
	Action       string    `json:"action"` // processed | failed | deleted
	PassageCount int       `json:"passage_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewProducer 创建Kafka生产者
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

// SendDocumentEvent 发送文档事件。生产者为nil时静默跳过，不影响主流程。
func (p *Producer) SendDocumentEvent(event DocumentEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal document event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", event.DocumentID)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("owner_id"),
				Value: []byte(fmt.Sprintf("%d", event.OwnerID)),
			},
			{
				Key:   []byte("action"),
				Value: []byte(event.Action),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Error("failed to send document event", zap.Error(err))
		return fmt.Errorf("failed to send document event: %w", err)
	}

	logger.Debug("document event sent",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Uint("document_id", event.DocumentID),
		zap.String("action", event.Action))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
