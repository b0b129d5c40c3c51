/*
 * @module service/event/publisher
 * @description Kafka事件发布器，数据导入完成、组合快照重建等领域事件
 *              以JSON消息写入统一主题，供下游分析管道消费
 * @architecture 分层架构 - 基础设施层
 * @documentReference ai_docs/event_design.md
 * @stateFlow 无状态，写失败仅记录日志不阻断主流程
 * @rules 未配置KAFKA_BROKERS时发布器为nil，调用方必须判空跳过
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/upload/ingest_service.go, service/preprocess/preprocess_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// 领域事件类型
const (
	TypeUploadCompleted    = "planning.upload.completed"
	TypeSnapshotRebuilt    = "planning.combinations.rebuilt"
	TypeLevelScoreFinished = "planning.level_score.finished"
)

// Envelope 事件信封
type Envelope struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher Kafka事件发布器
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisherFromEnv 根据环境变量创建发布器，未配置KAFKA_BROKERS时返回nil
func NewPublisherFromEnv() *Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return nil
	}
	topic := os.Getenv("KAFKA_EVENT_TOPIC")
	if topic == "" {
		topic = "planning-events"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 100 * time.Millisecond,
	}

	slog.Info("Kafka事件发布器已初始化", "brokers", brokers, "topic", topic)
	return &Publisher{writer: writer, topic: topic}
}

// Publish 发布领域事件，事件键为事件类型以保证同类事件有序
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	envelope := Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "planning-service",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: value,
	})
	if err != nil {
		slog.Error("事件发布失败", "type", eventType, "error", err)
		return err
	}
	slog.Debug("事件已发布", "type", eventType, "topic", p.topic)
	return nil
}

// Close 关闭底层写入器
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
