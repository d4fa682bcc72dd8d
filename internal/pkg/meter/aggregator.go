package meter

import (
	"context"
	"sync"
)

// Aggregator 进程内计量聚合器，按会话累计 token 总量。
// 主要用于测试和调用侧对账，生产投递走 KafkaMeter
type Aggregator struct {
	mux     sync.RWMutex
	records []*UsageRecord
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Record(_ context.Context, rec *UsageRecord) {
	if rec == nil {
		return
	}
	Normalize(rec)
	a.mux.Lock()
	defer a.mux.Unlock()
	cp := *rec
	a.records = append(a.records, &cp)
}

// Records 返回已记录条目的快照
func (a *Aggregator) Records() []*UsageRecord {
	a.mux.RLock()
	defer a.mux.RUnlock()
	out := make([]*UsageRecord, len(a.records))
	copy(out, a.records)
	return out
}

// TotalTokensByConversation 会话维度 token 总量，对账基准
func (a *Aggregator) TotalTokensByConversation(convID string) int {
	a.mux.RLock()
	defer a.mux.RUnlock()
	total := 0
	for _, rec := range a.records {
		if rec.ConversationID == convID {
			total += rec.TotalTokens
		}
	}
	return total
}
