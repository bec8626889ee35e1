// Package events 把档案访问审计事件发布到 Kafka，供下游（报表、告警）消费。
// 发布是尽力而为的旁路操作：失败只记日志，不影响主流程（与审计落库同样不共享事务）。
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"nursing-archive-go/internal/config"
	"nursing-archive-go/internal/model"
	"nursing-archive-go/pkg/log"
)

// AccessEventMessage 是发布到 Kafka 的访问事件结构。
type AccessEventMessage struct {
	ArchiveID  uint      `json:"archive_id"`
	ClientID   uint      `json:"client_id"`
	AccessedBy string    `json:"accessed_by"`
	AccessType string    `json:"access_type"`
	AccessedAt time.Time `json:"accessed_at"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
}

// Publisher 是访问事件发布器的接口，Kafka 关闭时注入 Noop 实现。
type Publisher interface {
	PublishAccess(ctx context.Context, clientID uint, event *model.DocumentAccessEvent) error
	Close() error
}

// KafkaPublisher 通过 Kafka 生产者发布访问事件。
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建 Kafka 访问事件发布器。
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 访问事件生产者初始化成功")
	return &KafkaPublisher{writer: writer}
}

// PublishAccess 把一条访问事件序列化后写入 Kafka，以档案 ID 作为分区键。
func (p *KafkaPublisher) PublishAccess(ctx context.Context, clientID uint, event *model.DocumentAccessEvent) error {
	msg := AccessEventMessage{
		ArchiveID:  event.ArchiveID,
		ClientID:   clientID,
		AccessedBy: event.AccessedBy,
		AccessType: event.AccessType,
		AccessedAt: event.AccessedAt,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ArchiveID), 10)),
		Value: value,
	})
}

// Close 关闭底层 Kafka 连接。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop 是禁用 Kafka 时使用的空发布器。
type Noop struct{}

// PublishAccess 什么也不做。
func (Noop) PublishAccess(context.Context, uint, *model.DocumentAccessEvent) error { return nil }

// Close 什么也不做。
func (Noop) Close() error { return nil }
