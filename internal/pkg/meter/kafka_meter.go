package meter

import (
	"context"
	log "log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const recordBuffer = 256

// usageProducer 收敛 sarama.SyncProducer 中本包用到的能力，便于测试替换
type usageProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
}

// KafkaMeter 把计量记录异步投递到 Kafka 的 usage topic。
// Record 只做入队，后台协程负责发送，队列满时丢弃并记日志
type KafkaMeter struct {
	producer usageProducer
	topic    string

	ch   chan *UsageRecord
	once sync.Once
	done chan struct{}
}

func NewKafkaMeter(producer usageProducer, topic string) *KafkaMeter {
	m := &KafkaMeter{
		producer: producer,
		topic:    topic,
		ch:       make(chan *UsageRecord, recordBuffer),
		done:     make(chan struct{}),
	}
	go m.loop()
	return m
}

// Record 入队即返回，绝不阻塞对话链路
func (m *KafkaMeter) Record(ctx context.Context, rec *UsageRecord) {
	if rec == nil {
		return
	}
	Normalize(rec)
	select {
	case m.ch <- rec:
	default:
		log.WarnContext(ctx, "计量队列已满，记录被丢弃", "conversation_id", rec.ConversationID, "operation", rec.Operation)
	}
}

func (m *KafkaMeter) loop() {
	for rec := range m.ch {
		payload, err := json.Marshal(rec)
		if err != nil {
			log.Error("计量记录序列化失败", "err", err, "record_id", rec.ID)
			continue
		}
		_, _, err = m.producer.SendMessage(&sarama.ProducerMessage{
			Topic: m.topic,
			// 同会话记录落同分区，保证消费端按会话有序
			Key:   sarama.StringEncoder(rec.ConversationID),
			Value: sarama.ByteEncoder(payload),
		})
		if err != nil {
			log.Error("计量记录投递失败", "err", err, "record_id", rec.ID)
		}
	}
	close(m.done)
}

// Close 停止接收新记录并等待队列发送完毕
func (m *KafkaMeter) Close() {
	m.once.Do(func() {
		close(m.ch)
	})
	<-m.done
}
