package service

import (
	"Leadnest/internal/pkg/bant"
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/redis"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// BantStateTTL 会话状态保留时长，远大于一通会话的生命周期
const BantStateTTL = 72 * time.Hour

// conversationLockTTL 单回合处理的最长占锁时间
const conversationLockTTL = 10 * time.Second

// BANTStateStore 会话 BANT 状态的持久化边界
type BANTStateStore interface {
	Load(ctx context.Context, conversationID string) (bant.State, error)
	Save(ctx context.Context, conversationID string, state bant.State) error
}

type redisStateStoreImpl struct{}

func NewBANTStateStore() BANTStateStore {
	return &redisStateStoreImpl{}
}

func (s *redisStateStoreImpl) Load(ctx context.Context, conversationID string) (bant.State, error) {
	value, err := redis.GetValue(ctx, consts.BantStateKey+conversationID)
	if err != nil {
		return bant.State{}, err
	}
	if value == "" {
		return bant.State{}, nil
	}

	var state bant.State
	if err = json.Unmarshal([]byte(value), &state); err != nil {
		// 脏数据按空状态处理，重新采集
		log.ErrorContext(ctx, "BANT状态反序列化失败", "conversation_id", conversationID, "err", err)
		return bant.State{}, nil
	}
	return state, nil
}

func (s *redisStateStoreImpl) Save(ctx context.Context, conversationID string, state bant.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, consts.BantStateKey+conversationID, string(data), BantStateTTL)
}

// ConversationLocker 同一会话的单写者约束：并发回合必须串行，防止状态合并丢更新
type ConversationLocker interface {
	TryLock(ctx context.Context, conversationID string) (token string, ok bool, err error)
	Unlock(ctx context.Context, conversationID string, token string)
}

type redisLockerImpl struct{}

func NewConversationLocker() ConversationLocker {
	return &redisLockerImpl{}
}

func (s *redisLockerImpl) TryLock(ctx context.Context, conversationID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := redis.TryLock(ctx, consts.ConversationLock+conversationID, token, conversationLockTTL, 25)
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (s *redisLockerImpl) Unlock(ctx context.Context, conversationID string, token string) {
	redis.UnLock(ctx, consts.ConversationLock+conversationID, token)
}
